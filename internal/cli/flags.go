package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"kubeship/internal/config"
	kctx "kubeship/internal/context"
	"kubeship/internal/formatting"
	"kubeship/pkg/logging"
)

// RegionEnv names the region used when --region is not given.
const RegionEnv = "KUBESHIP_REGION"

// CommandFlags holds the flag values shared by every command.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// Quiet suppresses decorative output
	Quiet bool
	// Debug enables debug logging
	Debug bool
	// ConfigPath is the configuration directory
	ConfigPath string
	// Region is the region to operate on
	Region string
	// Context names the stored context to take defaults from
	Context string
}

// RegisterCommonFlags registers the shared flags as persistent flags of cmd.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --quiet/-q: Suppress decorative output
//   - --debug: Enable debug logging
//   - --config-path: Configuration directory (env: KUBESHIP_CONFIG_PATH)
//   - --region/-r: Region to operate on (env: KUBESHIP_REGION)
//   - --context: Stored context to use (env: KUBESHIP_CONTEXT)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", config.GetDefaultConfigPath(), "Configuration directory (env: KUBESHIP_CONFIG_PATH)")
	cmd.PersistentFlags().StringVarP(&flags.Region, "region", "r", os.Getenv(RegionEnv), "Region to operate on (env: KUBESHIP_REGION)")
	cmd.PersistentFlags().StringVar(&flags.Context, "context", "", "Stored context to use (env: KUBESHIP_CONTEXT)")
}

// ApplyContext fills the region, configuration directory and output format
// from the context in effect, for each of them not set by a flag or its
// environment variable.
func (f *CommandFlags) ApplyContext(cmd *cobra.Command, storage *kctx.Storage) error {
	selected, err := storage.Resolve(f.Context)
	if err != nil || selected == nil {
		return err
	}
	logging.Debug("CLI", "Using context %s (region %s)", selected.Name, selected.Region)

	flags := cmd.Flags()
	if !flags.Changed("region") && os.Getenv(RegionEnv) == "" {
		f.Region = selected.Region
	}
	if selected.ConfigPath != "" && !flags.Changed("config-path") && os.Getenv(config.DefaultConfigPathEnv) == "" {
		f.ConfigPath = selected.ConfigPath
	}
	if selected.Settings != nil && selected.Settings.Output != "" && !flags.Changed("output") {
		f.OutputFormat = selected.Settings.Output
	}
	return nil
}

// InitLogging configures logging for a command run.
func (f *CommandFlags) InitLogging(w io.Writer) {
	level := logging.LevelInfo
	if f.Debug {
		level = logging.LevelDebug
	} else if f.Quiet {
		level = logging.LevelWarn
	}
	logging.InitForCLI(level, w)
}

// Formatter returns the formatter selected by --output, writing to w.
func (f *CommandFlags) Formatter(w io.Writer) (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(f.OutputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Writer: w,
		Quiet:  f.Quiet,
		Color:  !f.Quiet && format == formatting.FormatTable,
	}), nil
}
