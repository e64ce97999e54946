package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	"kubeship/internal/config"
	kctx "kubeship/internal/context"
	"kubeship/internal/manifest"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, rollout failed).
	ExitCodeError = 1
	// ExitCodeInvalidConfig indicates the configuration or a manifest is invalid.
	ExitCodeInvalidConfig = 2
)

// rootFlags are the persistent flags shared by all subcommands.
var rootFlags cli.CommandFlags

// rootCmd represents the base command for the kubeship application.
var rootCmd = &cobra.Command{
	Use:   "kubeship",
	Short: "Resolve service manifests and roll them out to Kubernetes",
	Long: `kubeship resolves layered service configuration into one manifest per
service and region, and reconciles those manifests against the cluster
backing the region.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootFlags.InitLogging(cmd.ErrOrStderr())
		if cmd.HasParent() && cmd.Parent().Name() == "context" {
			return nil
		}
		storage, err := kctx.NewStorage()
		if err != nil {
			return err
		}
		return rootFlags.ApplyContext(cmd, storage)
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// Interrupts cancel the command context; rollouts in flight stop polling.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kubeship version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var confErr config.ConfigurationError
	if errors.As(err, &confErr) {
		return ExitCodeInvalidConfig
	}

	var validationErr *manifest.ValidationError
	if errors.As(err, &validationErr) {
		return ExitCodeInvalidConfig
	}

	var configValidation config.ValidationErrors
	if errors.As(err, &configValidation) {
		return ExitCodeInvalidConfig
	}

	return ExitCodeError
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &rootFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newValuesCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newContextCmd())
}
