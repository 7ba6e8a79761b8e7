package xref

import (
	"errors"

	"github.com/wudi/pdfbind/ir/raw"
	"github.com/wudi/pdfbind/scanner"
)

// Minimal token-to-object parsing for trailer and xref stream dictionaries.
// The full object loader lives in the parser package; xref cannot depend on
// it without a cycle, so the little it needs is duplicated here.

type tokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

func parseObject(tr *tokenReader) (raw.Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberObj{I: tok.Int, IsInt: true}, nil
		}
		return raw.NumberObj{F: tok.Float, IsInt: false}, nil
	case scanner.TokenBoolean:
		return raw.BoolObj{V: tok.Bool}, nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		if tok.IsHex {
			return raw.HexStringObj{Bytes: tok.Bytes}, nil
		}
		return raw.StringObj{Bytes: tok.Bytes}, nil
	case scanner.TokenRef:
		return raw.RefObj{R: raw.ObjectRef{Num: int(tok.Int), Gen: tok.Gen}}, nil
	case scanner.TokenArray:
		arr := &raw.ArrayObj{}
		for {
			tok, err := tr.next()
			if err != nil {
				return nil, err
			}
			if tok.Type == scanner.TokenKeyword && tok.Str == "]" {
				return arr, nil
			}
			tr.unread(tok)
			item, err := parseObject(tr)
			if err != nil {
				return nil, err
			}
			arr.Append(item)
		}
	case scanner.TokenDict:
		d := raw.Dict()
		for {
			tok, err := tr.next()
			if err != nil {
				return nil, err
			}
			if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
				return d, nil
			}
			if tok.Type != scanner.TokenName {
				return nil, errors.New("expected name in dict")
			}
			val, err := parseObject(tr)
			if err != nil {
				return nil, err
			}
			d.Set(raw.NameObj{Val: tok.Str}, val)
		}
	}
	return nil, errors.New("unexpected token")
}
