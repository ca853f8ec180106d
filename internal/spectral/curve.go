package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MeanCurve averages a set of equal-length spectra band-wise, producing the
// reference curve the baseline normalization divides by.
func MeanCurve(curves [][]float64) ([]float64, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("no curves to average")
	}
	bands := len(curves[0])
	if bands == 0 {
		return nil, fmt.Errorf("curves have no bands")
	}
	sum := make([]float64, bands)
	for i, c := range curves {
		if len(c) != bands {
			return nil, fmt.Errorf("curve %d has %d bands, expected %d", i, len(c), bands)
		}
		floats.Add(sum, c)
	}
	floats.Scale(1/float64(len(curves)), sum)
	return sum, nil
}
