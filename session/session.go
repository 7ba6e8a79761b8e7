// Package session owns the mutable state behind an interactive combine:
// the ordered document set and the busy flag that serialises mutation
// against an in-flight combine.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wudi/pdfbind/docset"
	"github.com/wudi/pdfbind/merge"
	"github.com/wudi/pdfbind/observability"
)

// DefaultOutputName names the artifact when the caller does not.
const DefaultOutputName = "combined.pdf"

// ErrBusy is returned when a mutation arrives while a combine is running.
var ErrBusy = errors.New("combine in progress")

var pdfHeader = []byte("%PDF-")

// Session holds one user's working state. All methods are safe to call from
// a single goroutine plus one background combine; mutations are rejected
// with ErrBusy while a combine runs rather than interleaving with it.
type Session struct {
	mu     sync.Mutex
	set    *docset.Set
	busy   bool
	engine *merge.Engine
	log    observability.Logger
}

func New(engine *merge.Engine, log observability.Logger) *Session {
	if engine == nil {
		engine = merge.NewEngine()
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Session{set: docset.NewSet(), engine: engine, log: log}
}

// AddFiles appends the given paths that sniff as PDF, in argument order.
// Non-PDF files are silently filtered out of the batch and reported in
// skipped; a batch that filters down to nothing is a no-op, not an error.
func (s *Session) AddFiles(paths []string) (added int, skipped []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return 0, nil, ErrBusy
	}
	batch := make([]*docset.SourceDocument, 0, len(paths))
	for _, p := range paths {
		ok, err := sniffPDF(p)
		if err != nil {
			return 0, nil, fmt.Errorf("read %s: %w", p, err)
		}
		if !ok {
			skipped = append(skipped, p)
			s.log.Warn("skipping non-PDF file", observability.String("path", p))
			continue
		}
		batch = append(batch, docset.NewSourceDocument(filepath.Base(p), docset.FileSource{Path: p}))
	}
	s.set.Append(batch...)
	return len(batch), skipped, nil
}

// Remove detaches the document at index and releases its resources.
func (s *Session) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	doc, err := s.set.RemoveAt(index)
	if err != nil {
		return err
	}
	if rerr := doc.Release(); rerr != nil {
		s.log.Warn("release removed document", observability.Error("err", rerr))
	}
	return nil
}

// MoveUp swaps the document at index with its predecessor.
func (s *Session) MoveUp(index int) error { return s.swap(index, docset.DirUp) }

// MoveDown swaps the document at index with its successor.
func (s *Session) MoveDown(index int) error { return s.swap(index, docset.DirDown) }

func (s *Session) swap(index int, dir docset.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	return s.set.SwapAdjacent(index, dir)
}

// Names returns the display names in current order.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.set.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Len()
}

// Busy reports whether a combine is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Combine runs the merge engine over the current set. While it runs, all
// mutating calls fail with ErrBusy; the set itself is not touched.
func (s *Session) Combine(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	set := s.set
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	return s.engine.Combine(ctx, set)
}

// CombineTo combines and writes the result to path (DefaultOutputName when
// empty). Refuses to overwrite unless force is set.
func (s *Session) CombineTo(ctx context.Context, path string, force bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultOutputName
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use force to overwrite)", path)
		}
	}
	data, err := s.Combine(ctx)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// sniffPDF reports whether the file starts with the PDF header magic.
func sniffPDF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	buf := make([]byte, len(pdfHeader))
	n, _ := f.Read(buf)
	if n < len(pdfHeader) {
		return false, nil
	}
	for i := range pdfHeader {
		if buf[i] != pdfHeader[i] {
			return false, nil
		}
	}
	return true, nil
}
