package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "solicit",
		Short: "Solicitation document intelligence pipeline",
		Long: `Reads solicitation packages (PDF, DOCX, XLSX, HTML, scans), classifies each
file into its section, extracts structured section data through a language
model and tracks requirements for proposal compliance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigPath != "" {
				return os.Setenv("SOLICIT_CONFIG", opts.ConfigPath)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides SOLICIT_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")

	cmd.AddCommand(newExtractCommand(opts))
	cmd.AddCommand(newRequirementsCommand(opts))
	cmd.AddCommand(newShredCommand(opts))
	cmd.AddCommand(newClassifyCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	return cmd
}

// newLogger installs the JSON slog handler as default. Logs go to stderr
// so command output on stdout stays machine readable.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
