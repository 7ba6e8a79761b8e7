// Package merge concatenates the pages of an ordered document set into one
// output PDF.
package merge

import (
	"bytes"
	"context"
	"io"

	"github.com/wudi/pdfbind/docset"
	"github.com/wudi/pdfbind/ir/raw"
	"github.com/wudi/pdfbind/observability"
	"github.com/wudi/pdfbind/parser"
	"github.com/wudi/pdfbind/writer"
)

const producer = "pdfbind"

// Engine combines document sets. It is stateless between Combine calls; a
// single Combine runs strictly sequentially over the set, because output
// page order depends on stable source enumeration.
type Engine struct {
	parser *parser.DocumentParser
	writer writer.Writer
	log    observability.Logger
}

type Option func(*Engine)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithParserConfig overrides the parser configuration.
func WithParserConfig(cfg parser.Config) Option {
	return func(e *Engine) { e.parser = parser.NewDocumentParser(cfg) }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		parser: parser.NewDocumentParser(parser.Config{}),
		writer: writer.NewWriter(),
		log:    observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Combine reads every source in set order, appends their pages in native
// stored order to a fresh document, and serialises it. Any source failing to
// parse aborts the whole operation with a *ParseError; later sources are not
// touched. Serialisation failure yields a *SerializeError.
func (e *Engine) Combine(ctx context.Context, set *docset.Set) ([]byte, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptySet
	}

	out := raw.NewDocument()
	catalogRef := raw.ObjectRef{Num: 1}
	pagesRef := raw.ObjectRef{Num: 2}
	nextNum := 3

	kids := raw.NewArray()
	total := 0

	for i, src := range set.Entries() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		n, err := e.appendSource(ctx, out, pagesRef, &nextNum, kids, src)
		if err != nil {
			return nil, &ParseError{Index: i, Name: src.Name, Err: err}
		}
		e.log.Debug("source appended",
			observability.Int("index", i),
			observability.String("name", src.Name),
			observability.Int("pages", n))
		total += n
	}

	pagesDict := raw.Dict()
	pagesDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pagesDict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(total)))
	pagesDict.Set(raw.NameLiteral("Kids"), kids)
	out.Objects[pagesRef] = pagesDict

	catalogDict := raw.Dict()
	catalogDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalogDict.Set(raw.NameLiteral("Pages"), raw.Ref(pagesRef.Num, pagesRef.Gen))
	out.Objects[catalogRef] = catalogDict

	infoRef := raw.ObjectRef{Num: nextNum}
	nextNum++
	infoDict := raw.Dict()
	infoDict.Set(raw.NameLiteral("Producer"), raw.Str([]byte(producer)))
	out.Objects[infoRef] = infoDict

	out.Trailer.Set(raw.NameLiteral("Root"), raw.Ref(catalogRef.Num, catalogRef.Gen))
	out.Trailer.Set(raw.NameLiteral("Info"), raw.Ref(infoRef.Num, infoRef.Gen))

	var buf bytes.Buffer
	if err := e.writer.Write(ctx, out, &buf, writer.Config{Version: writer.PDF17}); err != nil {
		return nil, &SerializeError{Err: err}
	}
	e.log.Info("combine finished",
		observability.Int("sources", set.Len()),
		observability.Int("pages", total),
		observability.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// appendSource parses one source and copies its pages into out. Returns the
// number of pages appended.
func (e *Engine) appendSource(ctx context.Context, out *raw.Document, pagesRef raw.ObjectRef, nextNum *int, kids *raw.ArrayObj, src *docset.SourceDocument) (int, error) {
	r, _, err := src.Source.Open()
	if err != nil {
		return 0, err
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	doc, err := e.parser.Parse(ctx, r)
	if err != nil {
		return 0, err
	}

	pages, err := collectPages(doc)
	if err != nil {
		return 0, err
	}

	c := &copier{src: doc, dst: out, next: nextNum, mapping: make(map[raw.ObjectRef]raw.ObjectRef)}
	for _, p := range pages {
		newRef := c.copyPage(p, pagesRef)
		kids.Append(raw.Ref(newRef.Num, newRef.Gen))
	}
	return len(pages), nil
}
