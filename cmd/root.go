package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/affiance/pkg/buildinfo"
	"github.com/fulmenhq/affiance/pkg/config"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// newRootCommand creates a fresh root command instance so tests can build
// isolated command trees.
func newRootCommand() *cobra.Command {
	settings := config.LoadSettings()
	cmd := &cobra.Command{
		Use:   "affiance",
		Short: "Git hook manager",
		Long: `Affiance runs the checks configured for a git hook.

Examples:
   affiance run pre-commit          # Run the pre-commit hooks (called by the hook script)
   affiance run --all pre-commit    # Run the pre-commit hooks against every tracked file
   affiance sign                    # Approve the current configuration
   affiance sign pre-commit         # Approve plugin and ad-hoc pre-commit hooks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", settings.LogLevel, "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", settings.LogJSON, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("affiance {{.Version}}\n")
	return cmd
}

// registerSubcommands adds all subcommands to root.
func registerSubcommands(root *cobra.Command) {
	root.AddCommand(newRunCommand())
	root.AddCommand(newSignCommand())
	root.AddCommand(newVersionCommand())
}

// NewCommand returns the complete command tree.
func NewCommand() *cobra.Command {
	root := newRootCommand()
	registerSubcommands(root)
	return root
}

// Execute runs the CLI and exits with the code of the error kind, if any.
func Execute() {
	err := NewCommand().Execute()
	code := ExitCode(err)
	if err != nil && !errors.Is(err, errHooksFailed) {
		logger.Error(err.Error())
	}
	os.Exit(code)
}

// normalizeFlagName accepts underscores in place of dashes (--log_level).
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func initializeLogger(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	return logger.Initialize(logger.Config{
		Level:     logger.ParseLevel(level),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "affiance",
		Output:    cmd.ErrOrStderr(),
	})
}
