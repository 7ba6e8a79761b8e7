package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/pdfbind/filters"
	"github.com/wudi/pdfbind/ir/raw"
	"github.com/wudi/pdfbind/scanner"
)

// Table holds object locations for a document's cross-reference data.
type Table interface {
	// Lookup returns the byte offset of an uncompressed object.
	Lookup(objNum int) (offset int64, gen int, found bool)
	// ObjStream locates an object stored inside an object stream.
	ObjStream(objNum int) (streamNum int, idx int, found bool)
	Objects() []int
	Trailer() raw.Dictionary
	Type() string
}

// Resolver locates and parses xref information in a PDF.
type Resolver interface {
	Resolve(ctx context.Context, r io.ReaderAt) (Table, error)
}

type ResolverConfig struct {
	MaxSections  int
	FilterLimits filters.Limits
}

// NewResolver returns a resolver handling classic tables and xref streams,
// following /Prev chains and hybrid /XRefStm pointers.
func NewResolver(cfg ResolverConfig) Resolver {
	if cfg.MaxSections <= 0 {
		cfg.MaxSections = 64
	}
	return &tableResolver{cfg: cfg}
}

type entry struct {
	offset    int64
	gen       int
	inStream  bool
	streamNum int
	streamIdx int
}

type table struct {
	entries map[int]entry
	trailer *raw.DictObj
	kind    string
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok || e.inStream {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) ObjStream(objNum int) (int, int, bool) {
	e, ok := t.entries[objNum]
	if !ok || !e.inStream {
		return 0, 0, false
	}
	return e.streamNum, e.streamIdx, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *table) Trailer() raw.Dictionary {
	if t.trailer == nil {
		return nil
	}
	return t.trailer
}

func (t *table) Type() string { return t.kind }

type tableResolver struct {
	cfg ResolverConfig
}

func (t *tableResolver) Resolve(ctx context.Context, r io.ReaderAt) (Table, error) {
	data := readAll(r)

	start, err := findStartXref(data)
	if err != nil {
		return nil, err
	}

	tbl := &table{entries: make(map[int]entry), kind: "table"}
	visited := make(map[int64]bool)
	queue := []int64{start}

	for sections := 0; len(queue) > 0; sections++ {
		if sections >= t.cfg.MaxSections {
			return nil, errors.New("xref chain too long")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		offset := queue[0]
		queue = queue[1:]
		if visited[offset] {
			continue
		}
		visited[offset] = true
		if offset <= 0 || offset >= int64(len(data)) {
			return nil, fmt.Errorf("xref offset out of range: %d", offset)
		}

		var next []int64
		if isClassicSection(data, offset) {
			next, err = t.parseClassic(data, offset, tbl)
		} else {
			tbl.kind = "stream"
			next, err = t.parseStream(ctx, data, offset, tbl)
		}
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}

	if len(tbl.entries) == 0 {
		return nil, errors.New("empty xref")
	}
	return tbl, nil
}

func findStartXref(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	rest := data[idx+len("startxref"):]
	for _, line := range strings.FieldsFunc(string(rest), func(r rune) bool { return r == '\r' || r == '\n' }) {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse startxref: %w", err)
		}
		return val, nil
	}
	return 0, errors.New("startxref value missing")
}

func isClassicSection(data []byte, offset int64) bool {
	rest := data[offset:]
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\r' || rest[i] == '\n' || rest[i] == '\t') {
		i++
	}
	return bytes.HasPrefix(rest[i:], []byte("xref"))
}

// parseClassic reads one classic xref section plus its trailer. It returns
// offsets of chained sections (/Prev, /XRefStm).
func (t *tableResolver) parseClassic(data []byte, offset int64, tbl *table) ([]int64, error) {
	s := scanner.New(bytes.NewReader(data[offset:]), scanner.Config{})
	tok, err := s.Next()
	if err != nil {
		return nil, fmt.Errorf("read xref keyword: %w", err)
	}
	if tok.Type != scanner.TokenKeyword || tok.Str != "xref" {
		return nil, errors.New("xref keyword not found at offset")
	}

	for {
		tok, err = s.Next()
		if err != nil {
			return nil, fmt.Errorf("read xref subsection: %w", err)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			break
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, errors.New("invalid xref subsection header")
		}
		startObj := int(tok.Int)
		tok, err = s.Next()
		if err != nil || tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, errors.New("invalid xref subsection count")
		}
		count := int(tok.Int)
		for i := 0; i < count; i++ {
			offTok, err := s.Next()
			if err != nil || offTok.Type != scanner.TokenNumber || !offTok.IsInt {
				return nil, errors.New("invalid xref entry offset")
			}
			genTok, err := s.Next()
			if err != nil || genTok.Type != scanner.TokenNumber || !genTok.IsInt {
				return nil, errors.New("invalid xref entry generation")
			}
			kindTok, err := s.Next()
			if err != nil || kindTok.Type != scanner.TokenKeyword {
				return nil, errors.New("invalid xref entry type")
			}
			if kindTok.Str != "n" {
				continue // free entry
			}
			num := startObj + i
			if _, exists := tbl.entries[num]; !exists {
				tbl.entries[num] = entry{offset: offTok.Int, gen: int(genTok.Int)}
			}
		}
	}

	trailerObj, err := parseObject(&tokenReader{s: s})
	if err != nil {
		return nil, fmt.Errorf("parse trailer: %w", err)
	}
	trailer, ok := trailerObj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("trailer is not a dictionary")
	}
	if tbl.trailer == nil {
		tbl.trailer = trailer
	}

	var next []int64
	// Hybrid files point at an xref stream carrying the compressed entries.
	if v, ok := raw.DictInt(trailer, "XRefStm"); ok {
		next = append(next, v)
	}
	if v, ok := raw.DictInt(trailer, "Prev"); ok {
		next = append(next, v)
	}
	return next, nil
}

// parseStream reads an xref stream section at offset.
func (t *tableResolver) parseStream(ctx context.Context, data []byte, offset int64, tbl *table) ([]int64, error) {
	s := scanner.New(bytes.NewReader(data[offset:]), scanner.Config{})
	tr := &tokenReader{s: s}

	numTok, err := tr.next()
	if err != nil || numTok.Type != scanner.TokenNumber {
		return nil, errors.New("xref stream: object header expected")
	}
	genTok, err := tr.next()
	if err != nil || genTok.Type != scanner.TokenNumber {
		return nil, errors.New("xref stream: generation expected")
	}
	objTok, err := tr.next()
	if err != nil || objTok.Type != scanner.TokenKeyword || objTok.Str != "obj" {
		return nil, errors.New("xref stream: obj keyword expected")
	}

	dictObj, err := parseObject(tr)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	dict, ok := dictObj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("xref stream: dictionary expected")
	}
	length, ok := raw.DictInt(dict, "Length")
	if !ok {
		return nil, errors.New("xref stream: direct Length required")
	}
	s.SetNextStreamLength(length)
	streamTok, err := tr.next()
	if err != nil {
		return nil, fmt.Errorf("xref stream payload: %w", err)
	}
	if streamTok.Type != scanner.TokenStream {
		return nil, errors.New("xref stream: stream payload expected")
	}

	payload := streamTok.Bytes
	names, params := filters.ExtractFilters(dict)
	if len(names) > 0 {
		decoded, err := filters.NewDefault(t.cfg.FilterLimits).Decode(ctx, payload, names, params)
		if err != nil {
			return nil, fmt.Errorf("decode xref stream: %w", err)
		}
		payload = decoded
	}

	if err := parseStreamEntries(dict, payload, tbl); err != nil {
		return nil, err
	}

	if tbl.trailer == nil {
		tbl.trailer = dict
	}
	var next []int64
	if v, ok := raw.DictInt(dict, "Prev"); ok {
		next = append(next, v)
	}
	return next, nil
}

func parseStreamEntries(dict *raw.DictObj, payload []byte, tbl *table) error {
	wObj, ok := dict.Get(raw.NameObj{Val: "W"})
	if !ok {
		return errors.New("xref stream: W missing")
	}
	wArr, ok := wObj.(*raw.ArrayObj)
	if !ok || wArr.Len() < 3 {
		return errors.New("xref stream: W malformed")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, ok := raw.IntValue(wArr.Items[i])
		if !ok || v < 0 || v > 8 {
			return errors.New("xref stream: W field out of range")
		}
		w[i] = int(v)
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return errors.New("xref stream: zero-width rows")
	}

	size, _ := raw.DictInt(dict, "Size")
	var index []int64
	if idxObj, ok := dict.Get(raw.NameObj{Val: "Index"}); ok {
		arr, ok := idxObj.(*raw.ArrayObj)
		if !ok || arr.Len()%2 != 0 {
			return errors.New("xref stream: Index malformed")
		}
		for _, it := range arr.Items {
			v, ok := raw.IntValue(it)
			if !ok {
				return errors.New("xref stream: Index malformed")
			}
			index = append(index, v)
		}
	} else {
		index = []int64{0, size}
	}

	pos := 0
	readField := func(width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(payload[pos])
			pos++
		}
		return v
	}

	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowLen > len(payload) {
				return errors.New("xref stream: payload truncated")
			}
			typ := int64(1) // default when W[0] == 0
			if w[0] > 0 {
				typ = readField(w[0])
			}
			f1 := readField(w[1])
			f2 := readField(w[2])
			num := int(first + j)
			if _, exists := tbl.entries[num]; exists {
				continue
			}
			switch typ {
			case 0: // free
			case 1:
				tbl.entries[num] = entry{offset: f1, gen: int(f2)}
			case 2:
				tbl.entries[num] = entry{inStream: true, streamNum: int(f1), streamIdx: int(f2)}
			}
		}
	}
	return nil
}

func readAll(r io.ReaderAt) []byte {
	var buf bytes.Buffer
	const chunk = int64(32 * 1024)
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil {
			break
		}
		if int64(n) < chunk {
			break
		}
	}
	return buf.Bytes()
}
