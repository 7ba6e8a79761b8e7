package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wudi/pdfbind/merge"
	"github.com/wudi/pdfbind/session"
	"github.com/wudi/pdfbind/tui"
)

var (
	tuiOutput string
	tuiForce  bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui [files...]",
	Short: "Reorder and combine PDFs interactively",
	Long: `Open an interactive list of the given PDF files.

Controls:
  ↑/k, ↓/j         - Move selection
  K/J (shift+↑/↓)  - Move document up/down
  x/delete         - Remove document
  Enter            - Combine and write output
  q/Esc            - Quit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiOutput, "output", "o", session.DefaultOutputName, "Output file path")
	tuiCmd.Flags().BoolVarP(&tuiForce, "force", "f", false, "Overwrite the output file if it exists")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	log := newLogger()
	sess := session.New(merge.NewEngine(merge.WithLogger(log)), log)

	_, skipped, err := sess.AddFiles(args)
	if err != nil {
		return err
	}
	for _, p := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: not a PDF\n", p)
	}
	if sess.Len() == 0 {
		return fmt.Errorf("no PDF inputs")
	}

	model := tui.New(sess, tuiOutput, tuiForce)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
