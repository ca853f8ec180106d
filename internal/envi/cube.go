package envi

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Window is a half-open spatial region [Row0,Row1) x [Col0,Col1) of the cube.
type Window struct {
	Row0, Row1 int
	Col0, Col1 int
}

// FullWindow covers the whole frame.
func FullWindow(h Header) Window {
	return Window{Row0: 0, Row1: h.Lines, Col0: 0, Col1: h.Samples}
}

// CenteredWindow returns a centered crop keeping the given fraction of rows
// and columns. Fractions >= 1 cover the full frame; at least one row and one
// column are always kept.
func CenteredWindow(h Header, fraction float64) Window {
	if fraction >= 1 {
		return FullWindow(h)
	}
	r0, r1 := cropSpan(h.Lines, fraction)
	c0, c1 := cropSpan(h.Samples, fraction)
	return Window{Row0: r0, Row1: r1, Col0: c0, Col1: c1}
}

func cropSpan(n int, fraction float64) (int, int) {
	keep := int(math.Round(float64(n) * fraction))
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}
	start := (n - keep) / 2
	return start, start + keep
}

func (w Window) validate(h Header) error {
	if w.Row0 < 0 || w.Col0 < 0 || w.Row1 > h.Lines || w.Col1 > h.Samples {
		return fmt.Errorf("window %+v outside frame %dx%d", w, h.Lines, h.Samples)
	}
	if w.Row0 >= w.Row1 || w.Col0 >= w.Col1 {
		return fmt.Errorf("window %+v is empty", w)
	}
	return nil
}

// MeanSpectrum reduces the cube at path to a per-band spatial mean over the
// given window, reading one line (or band row) at a time so the cube is never
// materialized. NaN pixels are excluded from the mean; a band whose window is
// entirely NaN is an error. Infinities are carried into the mean so
// downstream validation can identify the affected file.
func MeanSpectrum(path string, h Header, win Window) ([]float64, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if err := win.validate(h); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cube: %w", err)
	}
	defer file.Close()

	elem := int64(h.DataType.Size())
	expected := h.HeaderOffset + int64(h.Lines)*int64(h.Samples)*int64(h.Bands)*elem
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat cube: %w", err)
	}
	if info.Size() < expected {
		return nil, fmt.Errorf("cube truncated: need %d bytes, have %d", expected, info.Size())
	}

	order := h.byteOrder()
	sums := make([]float64, h.Bands)
	counts := make([]int64, h.Bands)

	accumulate := func(band int, value float64) {
		if math.IsNaN(value) {
			return
		}
		sums[band] += value
		counts[band]++
	}

	switch h.Interleave {
	case InterleaveBIL:
		lineStride := int64(h.Bands) * int64(h.Samples) * elem
		buf := make([]byte, lineStride)
		for r := win.Row0; r < win.Row1; r++ {
			if _, err := file.ReadAt(buf, h.HeaderOffset+int64(r)*lineStride); err != nil {
				return nil, fmt.Errorf("read line %d: %w", r, err)
			}
			for b := 0; b < h.Bands; b++ {
				base := (int64(b)*int64(h.Samples) + int64(win.Col0)) * elem
				for c := win.Col0; c < win.Col1; c++ {
					accumulate(b, decodeValue(buf, base, h.DataType, order))
					base += elem
				}
			}
		}
	case InterleaveBIP:
		lineStride := int64(h.Samples) * int64(h.Bands) * elem
		buf := make([]byte, lineStride)
		for r := win.Row0; r < win.Row1; r++ {
			if _, err := file.ReadAt(buf, h.HeaderOffset+int64(r)*lineStride); err != nil {
				return nil, fmt.Errorf("read line %d: %w", r, err)
			}
			for c := win.Col0; c < win.Col1; c++ {
				base := int64(c) * int64(h.Bands) * elem
				for b := 0; b < h.Bands; b++ {
					accumulate(b, decodeValue(buf, base, h.DataType, order))
					base += elem
				}
			}
		}
	case InterleaveBSQ:
		bandStride := int64(h.Lines) * int64(h.Samples) * elem
		rowStride := int64(h.Samples) * elem
		buf := make([]byte, rowStride)
		for b := 0; b < h.Bands; b++ {
			for r := win.Row0; r < win.Row1; r++ {
				off := h.HeaderOffset + int64(b)*bandStride + int64(r)*rowStride
				if _, err := file.ReadAt(buf, off); err != nil {
					return nil, fmt.Errorf("read band %d line %d: %w", b, r, err)
				}
				base := int64(win.Col0) * elem
				for c := win.Col0; c < win.Col1; c++ {
					accumulate(b, decodeValue(buf, base, h.DataType, order))
					base += elem
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported interleave %q", string(h.Interleave))
	}

	mean := make([]float64, h.Bands)
	for b := range mean {
		if counts[b] == 0 {
			return nil, fmt.Errorf("band %d is entirely NaN in window", b)
		}
		mean[b] = sums[b] / float64(counts[b])
	}
	return mean, nil
}

func (h Header) byteOrder() binary.ByteOrder {
	if h.ByteOrder == 1 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeValue(buf []byte, off int64, dt DataType, order binary.ByteOrder) float64 {
	switch dt {
	case DataTypeUint8:
		return float64(buf[off])
	case DataTypeInt16:
		return float64(int16(order.Uint16(buf[off:])))
	case DataTypeInt32:
		return float64(int32(order.Uint32(buf[off:])))
	case DataTypeFloat32:
		return float64(math.Float32frombits(order.Uint32(buf[off:])))
	case DataTypeFloat64:
		return math.Float64frombits(order.Uint64(buf[off:]))
	case DataTypeUint16:
		return float64(order.Uint16(buf[off:]))
	default:
		return math.NaN()
	}
}
