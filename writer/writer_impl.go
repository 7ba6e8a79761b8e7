package writer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wudi/pdfbind/ir/raw"
)

type impl struct{}

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	body, err := serializePrimitive(obj)
	if err != nil {
		return nil, err
	}
	buf.Write(body)
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

func (w *impl) Write(ctx context.Context, doc *raw.Document, out io.Writer, cfg Config) error {
	if doc == nil || len(doc.Objects) == 0 {
		return errors.New("document has no objects")
	}
	version := cfg.Version
	if version == "" {
		version = PDF17
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + string(version) + "\n")
	// Binary marker comment so transfer agents treat the file as binary.
	buf.WriteString("%\xE2\xE3\xCF\xD3\n")

	ordered := make([]raw.ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	offsets := make(map[int]int64, len(ordered))
	for _, ref := range ordered {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		offsets[ref.Num] = int64(buf.Len())
		serialized, err := w.SerializeObject(ref, doc.Objects[ref])
		if err != nil {
			return fmt.Errorf("serialize object %d: %w", ref.Num, err)
		}
		buf.Write(serialized)
	}

	maxObjNum := ordered[len(ordered)-1].Num
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.Dict()
	trailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(maxObjNum+1)))
	if doc.Trailer != nil {
		if root, ok := doc.Trailer.Get(raw.NameLiteral("Root")); ok {
			trailer.Set(raw.NameLiteral("Root"), root)
		}
		if info, ok := doc.Trailer.Get(raw.NameLiteral("Info")); ok {
			trailer.Set(raw.NameLiteral("Info"), info)
		}
	}
	if _, ok := trailer.Get(raw.NameLiteral("Root")); !ok {
		return errors.New("trailer missing Root")
	}
	id := fileID(buf.Bytes())
	trailer.Set(raw.NameLiteral("ID"), raw.NewArray(id, id))

	buf.WriteString("trailer\n")
	trailerBytes, err := serializePrimitive(trailer)
	if err != nil {
		return err
	}
	buf.Write(trailerBytes)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err = out.Write(buf.Bytes())
	return err
}

// fileID derives the trailer /ID from the serialised content so that
// identical documents get identical identifiers.
func fileID(content []byte) raw.HexStringObj {
	sum := md5.Sum(content)
	return raw.HexStringObj{Bytes: sum[:]}
}

func serializePrimitive(o raw.Object) ([]byte, error) {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte(encodeName(v.Value())), nil
	case raw.NumberObj:
		if v.IsInteger() {
			return strconv.AppendInt(nil, v.Int(), 10), nil
		}
		return strconv.AppendFloat(nil, v.Float(), 'f', -1, 64), nil
	case raw.BoolObj:
		if v.Value() {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case raw.NullObj:
		return []byte("null"), nil
	case raw.StringObj:
		return encodeString(v.Value()), nil
	case raw.HexStringObj:
		return []byte("<" + hex.EncodeToString(v.Value()) + ">"), nil
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			item, err := serializePrimitive(it)
			if err != nil {
				return nil, err
			}
			b.Write(item)
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	case *raw.DictObj:
		return serializeDict(v)
	case *raw.StreamObj:
		var b bytes.Buffer
		if v.Dict == nil {
			v.Dict = raw.Dict()
		}
		v.Dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(v.Data))))
		d, err := serializeDict(v.Dict)
		if err != nil {
			return nil, err
		}
		b.Write(d)
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes(), nil
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.Ref().Num, v.Ref().Gen)), nil
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("cannot serialize object type %q", o.Type())
	}
}

func serializeDict(d *raw.DictObj) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<<")
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(encodeName(k))
		b.WriteByte(' ')
		val, err := serializePrimitive(d.KV[k])
		if err != nil {
			return nil, err
		}
		b.Write(val)
		b.WriteByte(' ')
	}
	b.WriteString(">>")
	return b.Bytes(), nil
}

// encodeName writes a name with #-escapes for delimiters and non-regular
// characters.
func encodeName(name string) string {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || c == '#' || isDelimiterByte(c) {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isDelimiterByte(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// encodeString emits a literal string when the bytes are mostly printable,
// otherwise a hex string.
func encodeString(s []byte) []byte {
	binary := 0
	for _, c := range s {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' || c >= 0x7f {
			binary++
		}
	}
	if len(s) > 0 && binary*4 > len(s) {
		return []byte("<" + hex.EncodeToString(s) + ">")
	}
	var b bytes.Buffer
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
