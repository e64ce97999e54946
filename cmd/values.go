package cmd

import (
	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	"kubeship/internal/template"
	"kubeship/internal/upgrade"
)

func newValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "values <service>",
		Short: "Render the values artifact of a service",
		Long: `Render the values artifact that reconcile would apply for a service,
with config file templates executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			m, err := ws.Store.Load(args[0], ws.Config, ws.Region)
			if err != nil {
				return err
			}

			data, err := upgrade.RenderValues(m, template.New())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
