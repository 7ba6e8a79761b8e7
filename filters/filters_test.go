package filters

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"testing"

	"github.com/wudi/pdfbind/ir/raw"
)

func decodeOne(t *testing.T, name string, input []byte, params raw.Dictionary) []byte {
	t.Helper()
	out, err := NewDefault(Limits{}).Decode(context.Background(), input, []string{name}, []raw.Dictionary{params})
	if err != nil {
		t.Fatalf("%s decode: %v", name, err)
	}
	return out
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFlateDecodeZlib(t *testing.T) {
	want := []byte("stream payload with some repetition repetition repetition")
	got := decodeOne(t, "FlateDecode", zlibCompress(t, want), nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFlateDecodeRawDeflate(t *testing.T) {
	want := []byte("raw deflate without the zlib wrapper")
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got := decodeOne(t, "FlateDecode", buf.Bytes(), nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLZWDecode(t *testing.T) {
	want := []byte("lzw encoded content, msb first, eight bit literals")
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got := decodeOne(t, "LZWDecode", buf.Bytes(), nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	got := decodeOne(t, "ASCIIHexDecode", []byte("48 65 6C\n6C 6F>garbage after EOD"), nil)
	if string(got) != "Hello" {
		t.Fatalf("got %q, want Hello", got)
	}
}

func TestASCIIHexDecodeOddLengthPads(t *testing.T) {
	// Trailing odd digit is padded with zero per the filter definition.
	got := decodeOne(t, "ASCIIHexDecode", []byte("417>"), nil)
	if !bytes.Equal(got, []byte{0x41, 0x70}) {
		t.Fatalf("got % X, want 41 70", got)
	}
}

func TestASCII85Decode(t *testing.T) {
	want := []byte("ascii85 round trip payload")
	enc := make([]byte, stdascii85.MaxEncodedLen(len(want)))
	n := stdascii85.Encode(enc, want)
	input := append(enc[:n], []byte("~>")...)

	got := decodeOne(t, "ASCII85Decode", input, nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// Literal run of 3 bytes, repeat run of 3 'z', then EOD.
	input := []byte{2, 'a', 'b', 'c', 254, 'z', 128}
	got := decodeOne(t, "RunLengthDecode", input, nil)
	if string(got) != "abczzz" {
		t.Fatalf("got %q, want abczzz", got)
	}
}

func TestRunLengthDecodeTruncated(t *testing.T) {
	_, err := NewDefault(Limits{}).Decode(context.Background(), []byte{5, 'a'}, []string{"RunLengthDecode"}, nil)
	if err == nil {
		t.Fatal("truncated literal run must fail")
	}
}

func TestUnknownFilter(t *testing.T) {
	_, err := NewDefault(Limits{}).Decode(context.Background(), []byte("x"), []string{"JBIG2Decode"}, nil)
	if err == nil {
		t.Fatal("unknown filter must fail")
	}
}

func TestPipelineAppliesFiltersInOrder(t *testing.T) {
	want := []byte("double wrapped payload")
	compressed := zlibCompress(t, want)
	hexed := make([]byte, 0, len(compressed)*2+1)
	const digits = "0123456789ABCDEF"
	for _, b := range compressed {
		hexed = append(hexed, digits[b>>4], digits[b&0xF])
	}
	hexed = append(hexed, '>')

	got, err := NewDefault(Limits{}).Decode(context.Background(), hexed,
		[]string{"ASCIIHexDecode", "FlateDecode"}, nil)
	if err != nil {
		t.Fatalf("chained decode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func pngParams(predictor, columns int64) raw.Dictionary {
	d := raw.Dict()
	d.Set(raw.NameLiteral("Predictor"), raw.NumberInt(predictor))
	d.Set(raw.NameLiteral("Columns"), raw.NumberInt(columns))
	return d
}

func TestPredictorPNGUp(t *testing.T) {
	// Row 1: filter None, [1 2 3 4]. Row 2: filter Up with deltas [1 1 1 1].
	input := []byte{0, 1, 2, 3, 4, 2, 1, 1, 1, 1}
	got, err := applyPredictor(input, pngParams(12, 4))
	if err != nil {
		t.Fatalf("predictor: %v", err)
	}
	want := []byte{1, 2, 3, 4, 2, 3, 4, 5}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPredictorPNGSub(t *testing.T) {
	input := []byte{1, 1, 1, 1, 1}
	got, err := applyPredictor(input, pngParams(11, 4))
	if err != nil {
		t.Fatalf("predictor: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPredictorTIFF(t *testing.T) {
	input := []byte{1, 1, 1, 1}
	got, err := applyPredictor(input, pngParams(2, 4))
	if err != nil {
		t.Fatalf("predictor: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPredictorRejectsPartialRows(t *testing.T) {
	if _, err := applyPredictor([]byte{0, 1, 2}, pngParams(12, 4)); err == nil {
		t.Fatal("partial row must fail")
	}
}

func TestPredictorIdentity(t *testing.T) {
	input := []byte{9, 9, 9}
	got, err := applyPredictor(input, nil)
	if err != nil || !bytes.Equal(got, input) {
		t.Fatalf("identity predictor changed data: %v %v", got, err)
	}
}
