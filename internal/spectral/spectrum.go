package spectral

import (
	"fmt"
	"math"
)

// Spectrum pairs a wavelength axis with per-band values.
type Spectrum struct {
	Wavelengths []float64
	Values      []float64
}

// Bands returns the band count.
func (s Spectrum) Bands() int {
	return len(s.Values)
}

// Validate checks the structural invariants every exported spectrum must
// satisfy: matching axis and value lengths, at least one band, a strictly
// increasing wavelength axis, and finite values.
func (s Spectrum) Validate() error {
	if len(s.Values) == 0 {
		return fmt.Errorf("spectrum has no bands")
	}
	if len(s.Wavelengths) != len(s.Values) {
		return fmt.Errorf("axis length %d does not match value length %d", len(s.Wavelengths), len(s.Values))
	}
	if !MonotonicWavelengths(s.Wavelengths) {
		return fmt.Errorf("wavelength axis is not strictly increasing")
	}
	if idx, ok := firstNonFinite(s.Values); !ok {
		return fmt.Errorf("non-finite value at band %d", idx)
	}
	return nil
}

// MonotonicWavelengths reports whether the axis is strictly increasing.
func MonotonicWavelengths(wavelengths []float64) bool {
	for i := 1; i < len(wavelengths); i++ {
		if !(wavelengths[i] > wavelengths[i-1]) {
			return false
		}
	}
	return true
}

// AllFinite reports whether every value is finite.
func AllFinite(values []float64) bool {
	_, ok := firstNonFinite(values)
	return ok
}

func firstNonFinite(values []float64) (int, bool) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, false
		}
	}
	return 0, true
}
