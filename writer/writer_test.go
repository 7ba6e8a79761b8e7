package writer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wudi/pdfbind/ir/raw"
	"github.com/wudi/pdfbind/parser"
)

func serialize(t *testing.T, obj raw.Object) string {
	t.Helper()
	b, err := serializePrimitive(obj)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return string(b)
}

func TestSerializeScalars(t *testing.T) {
	cases := []struct {
		obj  raw.Object
		want string
	}{
		{raw.NameLiteral("Type"), "/Type"},
		{raw.NumberInt(42), "42"},
		{raw.NumberInt(-7), "-7"},
		{raw.NumberFloat(2.5), "2.5"},
		{raw.Bool(true), "true"},
		{raw.Bool(false), "false"},
		{raw.NullObj{}, "null"},
		{raw.Ref(5, 2), "5 2 R"},
		{raw.Str([]byte("hello")), "(hello)"},
		{raw.HexStringObj{Bytes: []byte{0xDE, 0xAD}}, "<dead>"},
	}
	for _, c := range cases {
		if got := serialize(t, c.obj); got != c.want {
			t.Fatalf("got %q, want %q", got, c.want)
		}
	}
}

func TestSerializeNameEscapes(t *testing.T) {
	if got := serialize(t, raw.NameLiteral("A B/C#D")); got != "/A#20B#2FC#23D" {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeStringEscapes(t *testing.T) {
	got := serialize(t, raw.Str([]byte("a(b)c\\d\ne")))
	if got != `(a\(b\)c\\d\ne)` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeBinaryStringUsesHex(t *testing.T) {
	got := serialize(t, raw.Str([]byte{0x00, 0x01, 0x02, 0x03}))
	if !strings.HasPrefix(got, "<") || !strings.HasSuffix(got, ">") {
		t.Fatalf("binary string should serialise as hex, got %q", got)
	}
}

func TestSerializeArrayAndDict(t *testing.T) {
	arr := raw.NewArray(raw.NumberInt(1), raw.NameLiteral("Two"), raw.Ref(3, 0))
	if got := serialize(t, arr); got != "[1 /Two 3 0 R]" {
		t.Fatalf("got %q", got)
	}

	d := raw.Dict()
	d.Set(raw.NameLiteral("B"), raw.NumberInt(2))
	d.Set(raw.NameLiteral("A"), raw.NumberInt(1))
	// Keys come out sorted so output is deterministic.
	if got := serialize(t, d); got != "<</A 1 /B 2 >>" {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeStreamSetsLength(t *testing.T) {
	st := raw.NewStream(raw.Dict(), []byte("payload"))
	got := serialize(t, st)
	if !strings.Contains(got, "/Length 7") {
		t.Fatalf("stream must carry accurate Length, got %q", got)
	}
	if !strings.Contains(got, "stream\npayload\nendstream") {
		t.Fatalf("got %q", got)
	}
}

func buildDoc() *raw.Document {
	doc := raw.NewDocument()

	page := raw.Dict()
	page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
	page.Set(raw.NameLiteral("Parent"), raw.Ref(2, 0))
	page.Set(raw.NameLiteral("MediaBox"), raw.NewArray(
		raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(612), raw.NumberInt(792)))
	doc.Objects[raw.ObjectRef{Num: 3}] = page

	pages := raw.Dict()
	pages.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pages.Set(raw.NameLiteral("Count"), raw.NumberInt(1))
	pages.Set(raw.NameLiteral("Kids"), raw.NewArray(raw.Ref(3, 0)))
	doc.Objects[raw.ObjectRef{Num: 2}] = pages

	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalog.Set(raw.NameLiteral("Pages"), raw.Ref(2, 0))
	doc.Objects[raw.ObjectRef{Num: 1}] = catalog

	doc.Trailer.Set(raw.NameLiteral("Root"), raw.Ref(1, 0))
	return doc
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(context.Background(), buildDoc(), &buf, Config{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-1.7\n")) {
		t.Fatalf("missing header: %q", buf.Bytes()[:16])
	}

	parsed, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	rootObj, ok := parsed.Trailer.Get(raw.NameLiteral("Root"))
	if !ok {
		t.Fatal("round-tripped trailer missing Root")
	}
	catalog, ok := parsed.Resolve(rootObj).(*raw.DictObj)
	if !ok {
		t.Fatal("catalog did not survive the round trip")
	}
	pagesObj, _ := catalog.Get(raw.NameLiteral("Pages"))
	pages, ok := parsed.Resolve(pagesObj).(*raw.DictObj)
	if !ok {
		t.Fatal("page tree root did not survive the round trip")
	}
	if count, _ := raw.DictInt(pages, "Count"); count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}
}

func TestWriteVersionConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(context.Background(), buildDoc(), &buf, Config{Version: PDF14}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-1.4\n")) {
		t.Fatalf("got header %q", buf.Bytes()[:16])
	}
}

func TestWriteDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := NewWriter().Write(context.Background(), buildDoc(), &a, Config{}); err != nil {
		t.Fatal(err)
	}
	if err := NewWriter().Write(context.Background(), buildDoc(), &b, Config{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("identical documents must serialise identically")
	}
}

func TestWriteRequiresRoot(t *testing.T) {
	doc := raw.NewDocument()
	doc.Objects[raw.ObjectRef{Num: 1}] = raw.Dict()
	var buf bytes.Buffer
	if err := NewWriter().Write(context.Background(), doc, &buf, Config{}); err == nil {
		t.Fatal("document without Root must fail")
	}
}

func TestWriteEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(context.Background(), raw.NewDocument(), &buf, Config{}); err == nil {
		t.Fatal("empty document must fail")
	}
}

func TestWriteTrailerCarriesID(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter().Write(context.Background(), buildDoc(), &buf, Config{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("/ID")) {
		t.Fatal("trailer must carry a file ID")
	}
}
