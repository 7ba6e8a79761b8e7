package tui

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfbind/session"
)

func onePagePDF() []byte {
	var buf bytes.Buffer
	offsets := make(map[int]int)
	buf.WriteString("%PDF-1.7\n")
	write := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, "<< /Type /Pages /Count 1 /Kids [3 0 R] >>")
	write(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	xrefOff := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for num := 1; num <= 3; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOff)
	return buf.Bytes()
}

func newTestSession(t *testing.T, names ...string) (*session.Session, string) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], onePagePDF(), 0o644))
	}
	s := session.New(nil, nil)
	_, _, err := s.AddFiles(paths)
	require.NoError(t, err)
	return s, dir
}

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(*Model), cmd
}

func TestSelectionMovesAndClamps(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf", "b.pdf", "c.pdf")
	m := New(sess, "", false)

	m, _ = update(m, keyRunes('j'))
	assert.Equal(t, 1, m.Selected())
	m, _ = update(m, keyRunes('j'))
	m, _ = update(m, keyRunes('j'))
	assert.Equal(t, 2, m.Selected(), "selection must clamp at the last entry")

	m, _ = update(m, keyRunes('k'))
	m, _ = update(m, keyRunes('k'))
	m, _ = update(m, keyRunes('k'))
	assert.Equal(t, 0, m.Selected(), "selection must clamp at the first entry")
}

func TestReorderFollowsSelection(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf", "b.pdf", "c.pdf")
	m := New(sess, "", false)

	m, _ = update(m, keyRunes('j'))
	m, _ = update(m, keyRunes('K'))
	assert.Equal(t, []string{"b.pdf", "a.pdf", "c.pdf"}, sess.Names())
	assert.Equal(t, 0, m.Selected(), "cursor must follow the moved document")

	m, _ = update(m, keyRunes('J'))
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, sess.Names())
	assert.Equal(t, 1, m.Selected())
}

func TestReorderAtBoundaryIsNoOp(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf", "b.pdf")
	m := New(sess, "", false)

	m, _ = update(m, keyRunes('K'))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, sess.Names())
	assert.Equal(t, 0, m.Selected())
}

func TestRemoveAdjustsSelection(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf", "b.pdf")
	m := New(sess, "", false)

	m, _ = update(m, keyRunes('j'))
	m, _ = update(m, keyRunes('x'))
	assert.Equal(t, []string{"a.pdf"}, sess.Names())
	assert.Equal(t, 0, m.Selected(), "cursor must not point past the end")
}

func TestCombineRequiresTwoDocuments(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf")
	m := New(sess, "", false)

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, StateError, m.CurrentState())
}

func TestCombineRoundTrip(t *testing.T) {
	sess, dir := newTestSession(t, "a.pdf", "b.pdf")
	out := filepath.Join(dir, "out.pdf")
	m := New(sess, out, false)

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, StateCombining, m.CurrentState())

	// Mutations are ignored while combining.
	m, _ = update(m, keyRunes('x'))
	assert.Equal(t, 2, sess.Len())

	msg := cmd()
	done, ok := msg.(combineDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m, _ = update(m, msg)
	assert.Equal(t, StateDone, m.CurrentState())
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestCombineFailureShowsError(t *testing.T) {
	sess, dir := newTestSession(t, "a.pdf", "b.pdf")
	existing := filepath.Join(dir, "taken.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("occupied"), 0o644))
	m := New(sess, existing, false)

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(m, cmd())
	assert.Equal(t, StateError, m.CurrentState())
}

func TestViewListsDocuments(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf", "b.pdf")
	m := New(sess, "", false)

	view := m.View()
	assert.True(t, strings.Contains(view, "a.pdf"))
	assert.True(t, strings.Contains(view, "b.pdf"))
}

func TestQuit(t *testing.T) {
	sess, _ := newTestSession(t, "a.pdf")
	m := New(sess, "", false)

	_, cmd := update(m, keyRunes('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
