// Package docset maintains the ordered collection of source documents that
// feed a combine operation.
package docset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// ErrIndexOutOfRange reports a position outside the set's current bounds.
// Callers compute indices from the set's own length, so hitting this is a
// contract violation rather than a data problem.
var ErrIndexOutOfRange = errors.New("index out of range")

// Direction selects the neighbour for an adjacent swap.
type Direction int

const (
	DirUp   Direction = -1
	DirDown Direction = 1
)

// Source provides re-readable access to a document's bytes. Combine re-opens
// each source, so the bytes need not stay resident between operations.
type Source interface {
	Open() (io.ReaderAt, int64, error)
}

// FileSource reads a document from the filesystem on demand.
type FileSource struct {
	Path string
}

func (f FileSource) Open() (io.ReaderAt, int64, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, 0, err
	}
	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, 0, err
	}
	return fh, st.Size(), nil
}

// BytesSource serves a document held in memory.
type BytesSource struct {
	Data []byte
}

func (b BytesSource) Open() (io.ReaderAt, int64, error) {
	return bytesReaderAt(b.Data), int64(len(b.Data)), nil
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if off+int64(n) >= int64(len(b)) {
		return n, io.EOF
	}
	return n, nil
}

// SourceDocument is one entry in the ordered set. Name is for display only
// and never participates in combine logic.
type SourceDocument struct {
	ID     string
	Name   string
	Source Source
}

// NewSourceDocument assigns a fresh handle ID.
func NewSourceDocument(name string, src Source) *SourceDocument {
	return &SourceDocument{ID: uuid.NewString(), Name: name, Source: src}
}

// Release closes any resource the source still holds. RemoveAt detaches an
// entry; releasing it is owed to the caller at that boundary.
func (d *SourceDocument) Release() error {
	if c, ok := d.Source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Set is an ordered sequence of source documents. Positions are always
// contiguous 0..Len()-1. Operations are atomic: a failing call leaves the
// set unchanged. The set itself is not safe for concurrent use; callers
// serialise access (see session).
type Set struct {
	entries []*SourceDocument
}

func NewSet() *Set { return &Set{} }

func (s *Set) Len() int { return len(s.entries) }

// At returns the entry at position i.
func (s *Set) At(i int) (*SourceDocument, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.entries))
	}
	return s.entries[i], nil
}

// Entries returns a snapshot of the current order.
func (s *Set) Entries() []*SourceDocument {
	out := make([]*SourceDocument, len(s.entries))
	copy(out, s.entries)
	return out
}

// Append adds documents to the tail, preserving the batch's relative order.
// Duplicates are permitted; an empty batch is a no-op.
func (s *Set) Append(docs ...*SourceDocument) {
	s.entries = append(s.entries, docs...)
}

// RemoveAt detaches and returns the entry at position i. The caller is
// responsible for calling Release on the returned document.
func (s *Set) RemoveAt(i int) (*SourceDocument, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, fmt.Errorf("%w: remove at %d (len %d)", ErrIndexOutOfRange, i, len(s.entries))
	}
	doc := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return doc, nil
}

// SwapAdjacent exchanges the entry at i with its immediate neighbour. This
// is the only reordering primitive; there is no move-to-position operation.
func (s *Set) SwapAdjacent(i int, dir Direction) error {
	if dir != DirUp && dir != DirDown {
		return fmt.Errorf("invalid direction %d", dir)
	}
	j := i + int(dir)
	if i < 0 || i >= len(s.entries) || j < 0 || j >= len(s.entries) {
		return fmt.Errorf("%w: swap %d with %d (len %d)", ErrIndexOutOfRange, i, j, len(s.entries))
	}
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	return nil
}
