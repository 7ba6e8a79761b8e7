// Package tui renders the interactive document list: reorder with adjacent
// swaps, remove entries, and trigger a combine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wudi/pdfbind/session"
)

// State tracks what the screen is doing.
type State int

const (
	StateReady State = iota
	StateCombining
	StateDone
	StateError
)

// Model is the bubbletea model for the document list screen.
type Model struct {
	sess     *session.Session
	keymap   KeyMap
	styles   *Styles
	selected int
	state    State
	message  string
	output   string
	force    bool
	width    int
	height   int
}

// combineDoneMsg carries the result of a background combine.
type combineDoneMsg struct {
	path string
	err  error
}

func New(sess *session.Session, output string, force bool) *Model {
	return &Model{
		sess:   sess,
		keymap: DefaultKeyMap(),
		styles: DefaultStyles(),
		output: output,
		force:  force,
		width:  80,
		height: 24,
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case combineDoneMsg:
		if msg.err != nil {
			m.state = StateError
			m.message = msg.err.Error()
		} else {
			m.state = StateDone
			m.message = fmt.Sprintf("wrote %s", msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) {
		return m, tea.Quit
	}
	// While a combine runs only quit is honoured; the session would answer
	// ErrBusy anyway, but not offering the mutation keeps the contract
	// visible.
	if m.state == StateCombining {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.selected < m.sess.Len()-1 {
			m.selected++
		}
	case key.Matches(msg, m.keymap.MoveUp):
		if err := m.sess.MoveUp(m.selected); err == nil {
			m.selected--
			m.state = StateReady
			m.message = ""
		}
	case key.Matches(msg, m.keymap.MoveDown):
		if err := m.sess.MoveDown(m.selected); err == nil {
			m.selected++
			m.state = StateReady
			m.message = ""
		}
	case key.Matches(msg, m.keymap.Remove):
		if err := m.sess.Remove(m.selected); err == nil {
			if m.selected >= m.sess.Len() && m.selected > 0 {
				m.selected--
			}
			m.state = StateReady
			m.message = ""
		}
	case key.Matches(msg, m.keymap.Combine):
		if m.sess.Len() < 2 {
			m.state = StateError
			m.message = "need at least 2 documents"
			return m, nil
		}
		m.state = StateCombining
		m.message = ""
		return m, m.combineCmd()
	}
	return m, nil
}

func (m *Model) combineCmd() tea.Cmd {
	sess, output, force := m.sess, m.output, m.force
	return func() tea.Msg {
		path, err := sess.CombineTo(context.Background(), output, force)
		return combineDoneMsg{path: path, err: err}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	names := m.sess.Names()

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(names))))
	b.WriteString("\n")

	if len(names) == 0 {
		b.WriteString(m.styles.Muted.Render("No documents"))
		b.WriteString("\n")
	}
	for i, name := range names {
		line := fmt.Sprintf("%2d. %s", i+1, name)
		if i == m.selected {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.state {
	case StateCombining:
		b.WriteString(m.styles.Muted.Render("combining..."))
	case StateDone:
		b.WriteString(m.styles.Success.Render(m.message))
	case StateError:
		b.WriteString(m.styles.Error.Render(m.message))
	default:
		b.WriteString(m.styles.Muted.Render("↑/↓ select · K/J reorder · x remove · enter combine · q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// Selected exposes the cursor position for tests.
func (m *Model) Selected() int { return m.selected }

// CurrentState exposes the screen state for tests.
func (m *Model) CurrentState() State { return m.state }
