package filters

import (
	"errors"

	"github.com/wudi/pdfbind/ir/raw"
)

// applyPredictor undoes the TIFF/PNG predictors described by a DecodeParms
// dictionary. Predictor 1 (or no params) is the identity.
func applyPredictor(data []byte, params raw.Dictionary) ([]byte, error) {
	pd, _ := params.(*raw.DictObj)
	if pd == nil {
		return data, nil
	}
	predictor, ok := raw.DictInt(pd, "Predictor")
	if !ok || predictor <= 1 {
		return data, nil
	}
	colors := int64(1)
	if v, ok := raw.DictInt(pd, "Colors"); ok {
		colors = v
	}
	bpc := int64(8)
	if v, ok := raw.DictInt(pd, "BitsPerComponent"); ok {
		bpc = v
	}
	columns := int64(1)
	if v, ok := raw.DictInt(pd, "Columns"); ok {
		columns = v
	}
	bpp := int((colors*bpc + 7) / 8) // bytes per pixel
	rowLen := int((colors*bpc*columns + 7) / 8)
	if bpp <= 0 || rowLen <= 0 {
		return nil, errors.New("predictor: invalid parameters")
	}

	if predictor == 2 {
		// TIFF horizontal differencing, 8-bit components only.
		if bpc != 8 {
			return nil, errors.New("predictor: unsupported TIFF bit depth")
		}
		for r := 0; r+rowLen <= len(data); r += rowLen {
			row := data[r : r+rowLen]
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		}
		return data, nil
	}

	// PNG predictors: each row is prefixed with a filter-type byte.
	if len(data)%(rowLen+1) != 0 {
		return nil, errors.New("predictor: data not a whole number of rows")
	}
	rows := len(data) / (rowLen + 1)
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	row := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*(rowLen+1)]
		copy(row, data[r*(rowLen+1)+1:(r+1)*(rowLen+1)])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				left, upLeft := 0, 0
				if i >= bpp {
					left = int(row[i-bpp])
					upLeft = int(prev[i-bpp])
				}
				row[i] += paeth(left, int(prev[i]), upLeft)
			}
		default:
			return nil, errors.New("predictor: unknown PNG filter type")
		}
		out = append(out, row...)
		copy(prev, row)
	}
	return out, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	switch {
	case pa <= pb && pa <= pc:
		return byte(a)
	case pb <= pc:
		return byte(b)
	default:
		return byte(c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
