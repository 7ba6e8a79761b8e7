// Package cli wires the pdfbind command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfbind/observability"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "pdfbind",
	Short: "Combine PDF documents into one file",
	Long: `pdfbind maintains an ordered set of source PDFs and concatenates
their pages into a single output document.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the logger shared by subcommands, honouring --verbose.
func newLogger() observability.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return observability.NewSlogLogger(slog.New(h))
}
