package testsupport

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CubeSpec describes a synthetic ENVI fixture. Zero values fall back to a
// 2x2 float32 little-endian bil cube. Bands is derived from BandValues.
type CubeSpec struct {
	Samples      int
	Lines        int
	Interleave   string
	DataTypeCode int
	ByteOrder    int
	HeaderOffset int
	// Wavelengths is emitted as the header wavelength list when non-nil.
	Wavelengths []float64
	// BandValues fills every pixel of band b with BandValues[b].
	BandValues []float64
	// Pixels overrides BandValues per pixel when non-nil.
	Pixels func(row, col, band int) float64
	// CubeExt is the binary file extension, default ".bil".
	CubeExt string
	// ExtraHeaderLines are appended verbatim to the header.
	ExtraHeaderLines []string
}

func (s *CubeSpec) fillDefaults(t testing.TB) {
	t.Helper()
	if s.Samples == 0 {
		s.Samples = 2
	}
	if s.Lines == 0 {
		s.Lines = 2
	}
	if s.Interleave == "" {
		s.Interleave = "bil"
	}
	if s.DataTypeCode == 0 {
		s.DataTypeCode = 4
	}
	if s.CubeExt == "" {
		s.CubeExt = ".bil"
	}
	if len(s.BandValues) == 0 {
		t.Fatal("CubeSpec.BandValues must name at least one band")
	}
}

// WriteCubePair writes an ENVI header/cube pair under dir using the given
// filename stem and returns both paths.
func WriteCubePair(t testing.TB, dir, stem string, spec CubeSpec) (string, string) {
	t.Helper()
	spec.fillDefaults(t)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	hdrPath := filepath.Join(dir, stem+".hdr")
	cubePath := filepath.Join(dir, stem+spec.CubeExt)

	if err := os.WriteFile(hdrPath, []byte(headerText(spec)), 0o644); err != nil {
		t.Fatalf("write header %s: %v", hdrPath, err)
	}
	if err := os.WriteFile(cubePath, cubeBytes(t, spec), 0o644); err != nil {
		t.Fatalf("write cube %s: %v", cubePath, err)
	}
	return hdrPath, cubePath
}

func headerText(spec CubeSpec) string {
	var sb strings.Builder
	sb.WriteString("ENVI\n")
	sb.WriteString("description = {leafspec test fixture}\n")
	fmt.Fprintf(&sb, "samples = %d\n", spec.Samples)
	fmt.Fprintf(&sb, "lines = %d\n", spec.Lines)
	fmt.Fprintf(&sb, "bands = %d\n", len(spec.BandValues))
	fmt.Fprintf(&sb, "header offset = %d\n", spec.HeaderOffset)
	sb.WriteString("file type = ENVI Standard\n")
	fmt.Fprintf(&sb, "data type = %d\n", spec.DataTypeCode)
	fmt.Fprintf(&sb, "interleave = %s\n", spec.Interleave)
	fmt.Fprintf(&sb, "byte order = %d\n", spec.ByteOrder)
	if spec.Wavelengths != nil {
		sb.WriteString("wavelength = {")
		for i, wl := range spec.Wavelengths {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", wl)
		}
		sb.WriteString("}\n")
	}
	for _, line := range spec.ExtraHeaderLines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func cubeBytes(t testing.TB, spec CubeSpec) []byte {
	t.Helper()

	bands := len(spec.BandValues)
	valueAt := spec.Pixels
	if valueAt == nil {
		valueAt = func(_, _, band int) float64 { return spec.BandValues[band] }
	}

	var order binary.ByteOrder = binary.LittleEndian
	if spec.ByteOrder == 1 {
		order = binary.BigEndian
	}

	var out []byte
	for i := 0; i < spec.HeaderOffset; i++ {
		out = append(out, 0)
	}
	put := func(v float64) {
		out = appendValue(t, out, v, spec.DataTypeCode, order)
	}

	switch strings.ToLower(spec.Interleave) {
	case "bil":
		for r := 0; r < spec.Lines; r++ {
			for b := 0; b < bands; b++ {
				for c := 0; c < spec.Samples; c++ {
					put(valueAt(r, c, b))
				}
			}
		}
	case "bip":
		for r := 0; r < spec.Lines; r++ {
			for c := 0; c < spec.Samples; c++ {
				for b := 0; b < bands; b++ {
					put(valueAt(r, c, b))
				}
			}
		}
	case "bsq":
		for b := 0; b < bands; b++ {
			for r := 0; r < spec.Lines; r++ {
				for c := 0; c < spec.Samples; c++ {
					put(valueAt(r, c, b))
				}
			}
		}
	default:
		t.Fatalf("unsupported interleave %q", spec.Interleave)
	}
	return out
}

func appendValue(t testing.TB, out []byte, v float64, dataType int, order binary.ByteOrder) []byte {
	t.Helper()
	switch dataType {
	case 1:
		return append(out, byte(uint8(v)))
	case 2:
		var buf [2]byte
		order.PutUint16(buf[:], uint16(int16(v)))
		return append(out, buf[:]...)
	case 3:
		var buf [4]byte
		order.PutUint32(buf[:], uint32(int32(v)))
		return append(out, buf[:]...)
	case 4:
		var buf [4]byte
		order.PutUint32(buf[:], math.Float32bits(float32(v)))
		return append(out, buf[:]...)
	case 5:
		var buf [8]byte
		order.PutUint64(buf[:], math.Float64bits(v))
		return append(out, buf[:]...)
	case 12:
		var buf [2]byte
		order.PutUint16(buf[:], uint16(v))
		return append(out, buf[:]...)
	default:
		t.Fatalf("unsupported data type code %d", dataType)
		return nil
	}
}
