package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfbind/merge"
)

// onePagePDF builds a minimal single-page document good enough for the full
// parse-combine-write path.
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

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestAddFilesFiltersNonPDF(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFixture(t, dir, "a.pdf", onePagePDF())
	txt := writeFixture(t, dir, "b.txt", []byte("just text"))

	s := New(nil, nil)
	added, skipped, err := s.AddFiles([]string{pdf, txt})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{txt}, skipped)
	assert.Equal(t, []string{"a.pdf"}, s.Names())
}

func TestAddFilesAllFilteredIsNoOp(t *testing.T) {
	dir := t.TempDir()
	txt := writeFixture(t, dir, "b.txt", []byte("just text"))

	s := New(nil, nil)
	added, skipped, err := s.AddFiles([]string{txt})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, skipped, 1)
	assert.Equal(t, 0, s.Len())
}

func TestAddFilesMissingFile(t *testing.T) {
	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{filepath.Join(t.TempDir(), "nope.pdf")})
	assert.Error(t, err)
}

func TestAddFilesPreservesArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())
	b := writeFixture(t, dir, "b.pdf", onePagePDF())

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf", "a.pdf"}, s.Names())
}

func TestReorderAndRemove(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())
	b := writeFixture(t, dir, "b.pdf", onePagePDF())
	c := writeFixture(t, dir, "c.pdf", onePagePDF())

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{a, b, c})
	require.NoError(t, err)

	require.NoError(t, s.MoveUp(1))
	assert.Equal(t, []string{"b.pdf", "a.pdf", "c.pdf"}, s.Names())

	require.NoError(t, s.MoveDown(1))
	assert.Equal(t, []string{"b.pdf", "c.pdf", "a.pdf"}, s.Names())

	require.NoError(t, s.Remove(1))
	assert.Equal(t, []string{"b.pdf", "a.pdf"}, s.Names())

	assert.Error(t, s.MoveUp(0))
	assert.Error(t, s.MoveDown(1))
	assert.Error(t, s.Remove(2))
}

func TestCombineEmptySession(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Combine(context.Background())
	assert.ErrorIs(t, err, merge.ErrEmptySet)
	assert.False(t, s.Busy())
}

func TestCombineLeavesSetIntact(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())
	b := writeFixture(t, dir, "b.pdf", onePagePDF())

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{a, b})
	require.NoError(t, err)

	data, err := s.Combine(context.Background())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, s.Names())
	assert.False(t, s.Busy())
}

func TestCombineToWritesFile(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())
	b := writeFixture(t, dir, "b.pdf", onePagePDF())
	out := filepath.Join(dir, "out.pdf")

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{a, b})
	require.NoError(t, err)

	path, err := s.CombineTo(context.Background(), out, false)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestCombineToRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())
	existing := writeFixture(t, dir, "out.pdf", []byte("precious"))

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{a})
	require.NoError(t, err)

	_, err = s.CombineTo(context.Background(), existing, false)
	require.Error(t, err)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data), "refused overwrite must leave the file alone")

	_, err = s.CombineTo(context.Background(), existing, true)
	require.NoError(t, err)
}

func TestCombineToDefaultName(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", onePagePDF())

	s := New(nil, nil)
	_, _, err := s.AddFiles([]string{a})
	require.NoError(t, err)

	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	path, err := s.CombineTo(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputName, path)
	_, err = os.Stat(DefaultOutputName)
	assert.NoError(t, err)
}
