package writer

import (
	"context"
	"io"

	"github.com/wudi/pdfbind/ir/raw"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	Version PDFVersion
}

// Writer serialises a raw document to a well-formed, independently openable
// PDF byte stream.
type Writer interface {
	Write(ctx context.Context, doc *raw.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

func NewWriter() Writer { return &impl{} }
