package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	kctx "kubeship/internal/context"
)

// contextListing renders stored contexts, marking the current one.
type contextListing struct {
	config *kctx.ContextConfig
}

func (l contextListing) Headers() []string {
	return []string{"CURRENT", "NAME", "REGION", "CONFIG PATH"}
}

func (l contextListing) Rows() [][]string {
	rows := make([][]string, 0, len(l.config.Contexts))
	for _, c := range l.config.Contexts {
		current := ""
		if c.Name == l.config.CurrentContext {
			current = "*"
		}
		rows = append(rows, []string{current, c.Name, c.Region, c.ConfigPath})
	}
	return rows
}

func (l contextListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.config)
}

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage stored region selections",
	}
	cmd.AddCommand(newContextSetCmd(), newContextUseCmd(), newContextListCmd(), newContextCurrentCmd(), newContextDeleteCmd())
	return cmd
}

func newContextSetCmd() *cobra.Command {
	var (
		configPath string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "set <name> <region>",
		Short: "Create or replace a context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := kctx.NewStorage()
			if err != nil {
				return err
			}
			c := kctx.Context{Name: args[0], Region: args[1], ConfigPath: configPath}
			if output != "" {
				c.Settings = &kctx.ContextSettings{Output: output}
			}
			if err := storage.SetContext(c); err != nil {
				return err
			}
			if !rootFlags.Quiet {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Context %s set to region %s", c.Name, c.Region)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "dir", "", "Configuration directory selected by the context")
	cmd.Flags().StringVar(&output, "default-output", "", "Output format used by default in the context")
	return cmd
}

func newContextUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := kctx.NewStorage()
			if err != nil {
				return err
			}
			if err := storage.SetCurrentContext(args[0]); err != nil {
				return err
			}
			if !rootFlags.Quiet {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Switched to context "+args[0]))
			}
			return nil
		},
	}
}

func newContextListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := kctx.NewStorage()
			if err != nil {
				return err
			}
			config, err := storage.Load()
			if err != nil {
				return err
			}
			formatter, err := rootFlags.Formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return formatter.FormatData(contextListing{config: config})
		},
	}
}

func newContextCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the name of the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := kctx.NewStorage()
			if err != nil {
				return err
			}
			current, err := storage.GetCurrentContext()
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("no current context")
			}
			fmt.Fprintln(cmd.OutOrStdout(), current.Name)
			return nil
		},
	}
}

func newContextDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := kctx.NewStorage()
			if err != nil {
				return err
			}
			return storage.DeleteContext(args[0])
		},
	}
}
