package filters

import (
	"testing"

	"github.com/wudi/pdfbind/ir/raw"
)

func TestExtractFiltersSingleName(t *testing.T) {
	d := raw.Dict()
	d.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))

	names, params := ExtractFilters(d)
	if len(names) != 1 || names[0] != "FlateDecode" {
		t.Fatalf("names %v", names)
	}
	if len(params) != 0 {
		t.Fatalf("params %v, want none", params)
	}
}

func TestExtractFiltersArrayWithParms(t *testing.T) {
	parms := raw.Dict()
	parms.Set(raw.NameLiteral("Predictor"), raw.NumberInt(12))

	d := raw.Dict()
	d.Set(raw.NameLiteral("Filter"), raw.NewArray(
		raw.NameLiteral("ASCIIHexDecode"), raw.NameLiteral("FlateDecode")))
	d.Set(raw.NameLiteral("DecodeParms"), raw.NewArray(raw.NullObj{}, parms))

	names, params := ExtractFilters(d)
	if len(names) != 2 || names[0] != "ASCIIHexDecode" || names[1] != "FlateDecode" {
		t.Fatalf("names %v", names)
	}
	if len(params) != 2 {
		t.Fatalf("params length %d, want 2", len(params))
	}
	if params[0] != nil {
		t.Fatal("null DecodeParms entry must map to nil")
	}
	if v, _ := raw.DictInt(params[1].(*raw.DictObj), "Predictor"); v != 12 {
		t.Fatalf("Predictor %d, want 12", v)
	}
}

func TestExtractFiltersNone(t *testing.T) {
	names, params := ExtractFilters(raw.Dict())
	if len(names) != 0 || len(params) != 0 {
		t.Fatalf("got %v %v, want empty", names, params)
	}
}
