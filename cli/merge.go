package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfbind/merge"
	"github.com/wudi/pdfbind/session"
)

var (
	mergeOutput string
	mergeForce  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Combine PDFs in argument order",
	Long: `Combine the given PDF files into one output document. Pages keep
their per-file order; files contribute in argument order. Non-PDF
arguments are skipped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", session.DefaultOutputName, "Output file path")
	mergeCmd.Flags().BoolVarP(&mergeForce, "force", "f", false, "Overwrite the output file if it exists")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	log := newLogger()
	sess := session.New(merge.NewEngine(merge.WithLogger(log)), log)

	added, skipped, err := sess.AddFiles(args)
	if err != nil {
		return err
	}
	for _, p := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: not a PDF\n", p)
	}
	if added < 2 {
		return fmt.Errorf("need at least 2 PDF inputs, got %d", added)
	}

	path, err := sess.CombineTo(cmd.Context(), mergeOutput, mergeForce)
	if err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}
