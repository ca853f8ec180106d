package envi_test

import (
	"strings"
	"testing"

	"leafspec/internal/envi"
)

const sampleHeader = `ENVI
description = {
  VISNIR acquisition, leaf tray 3}
samples = 4
lines = 3
bands = 2
header offset = 0
file type = ENVI Standard
data type = 4
interleave = bil
byte order = 0
wavelength units = Nanometers
wavelength = { 450.5,
  672.0 }
`

func TestParseHeader(t *testing.T) {
	header, err := envi.ParseHeader(strings.NewReader(sampleHeader))
	if err != nil {
		t.Fatalf("ParseHeader returned error: %v", err)
	}
	if header.Samples != 4 || header.Lines != 3 || header.Bands != 2 {
		t.Fatalf("unexpected geometry: %+v", header)
	}
	if header.DataType != envi.DataTypeFloat32 {
		t.Fatalf("unexpected data type: %v", header.DataType)
	}
	if header.Interleave != envi.InterleaveBIL {
		t.Fatalf("unexpected interleave: %v", header.Interleave)
	}
	if len(header.Wavelengths) != 2 || header.Wavelengths[0] != 450.5 || header.Wavelengths[1] != 672.0 {
		t.Fatalf("unexpected wavelengths: %v", header.Wavelengths)
	}

	axis, fromHeader := header.WavelengthAxis()
	if !fromHeader {
		t.Fatal("expected axis from header")
	}
	if len(axis) != 2 || axis[0] != 450.5 {
		t.Fatalf("unexpected axis: %v", axis)
	}
}

func TestParseHeaderRejectsMissingMagic(t *testing.T) {
	_, err := envi.ParseHeader(strings.NewReader("samples = 4\nlines = 3\n"))
	if err == nil {
		t.Fatal("expected error for missing ENVI magic")
	}
}

func TestParseHeaderRejectsMissingField(t *testing.T) {
	content := "ENVI\nsamples = 4\nlines = 3\ndata type = 4\ninterleave = bil\n"
	_, err := envi.ParseHeader(strings.NewReader(content))
	if err == nil {
		t.Fatal("expected error for missing bands field")
	}
	if !strings.Contains(err.Error(), "bands") {
		t.Fatalf("expected bands in error, got %v", err)
	}
}

func TestParseHeaderRejectsUnknownDataType(t *testing.T) {
	content := "ENVI\nsamples = 4\nlines = 3\nbands = 2\ndata type = 6\ninterleave = bil\n"
	_, err := envi.ParseHeader(strings.NewReader(content))
	if err == nil {
		t.Fatal("expected error for complex data type")
	}
}

func TestWavelengthAxisFallsBackOnLengthMismatch(t *testing.T) {
	content := "ENVI\nsamples = 4\nlines = 3\nbands = 3\ndata type = 4\ninterleave = bil\nwavelength = {450.0, 672.0}\n"
	header, err := envi.ParseHeader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseHeader returned error: %v", err)
	}

	axis, fromHeader := header.WavelengthAxis()
	if fromHeader {
		t.Fatal("expected synthetic axis for mismatched wavelength list")
	}
	if len(axis) != 3 {
		t.Fatalf("unexpected axis length: %d", len(axis))
	}
	for i, want := range []float64{0, 1, 2} {
		if axis[i] != want {
			t.Fatalf("axis[%d] = %g, want %g", i, axis[i], want)
		}
	}
}

func TestWavelengthAxisFallsBackOnMalformedList(t *testing.T) {
	content := "ENVI\nsamples = 4\nlines = 3\nbands = 2\ndata type = 4\ninterleave = bil\nwavelength = {450.0, oops}\n"
	header, err := envi.ParseHeader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseHeader returned error: %v", err)
	}
	if header.Wavelengths != nil {
		t.Fatalf("expected nil wavelengths for malformed list, got %v", header.Wavelengths)
	}
	if _, fromHeader := header.WavelengthAxis(); fromHeader {
		t.Fatal("expected synthetic axis for malformed list")
	}
}
