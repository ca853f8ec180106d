package spectral

import (
	"fmt"
	"math"
)

// Canonical wavelength targets in nanometers for the built-in indices.
const (
	WavelengthRedNm     = 670.0
	WavelengthNIRNm     = 800.0
	WavelengthPRI531Nm  = 531.0
	WavelengthPRI570Nm  = 570.0
	WavelengthNDWINIRNm = 860.0
	WavelengthSWIRNm    = 1240.0
)

// PickBand returns the index of the band whose wavelength is closest to
// target. A positive tol rejects matches further than tol nanometers away;
// tol <= 0 accepts the nearest band unconditionally.
func PickBand(wavelengths []float64, target, tol float64) (int, error) {
	if len(wavelengths) == 0 {
		return 0, fmt.Errorf("no wavelengths to search")
	}
	best := 0
	bestDist := math.Abs(wavelengths[0] - target)
	for i := 1; i < len(wavelengths); i++ {
		d := math.Abs(wavelengths[i] - target)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	if tol > 0 && bestDist > tol {
		return 0, fmt.Errorf("no band within %.1f nm of %.1f nm (nearest at %.1f nm)", tol, target, wavelengths[best])
	}
	return best, nil
}

// normalizedDifference computes (a-b)/(a+b), the shared shape of the
// vegetation indices. A zero denominator yields NaN.
func normalizedDifference(a, b float64) float64 {
	return (a - b) / (a + b)
}

// NDVI is the normalized difference of near-infrared and red reflectance.
func NDVI(nir, red float64) float64 {
	return normalizedDifference(nir, red)
}

// PRI is the photochemical reflectance index over the 531/570 nm pair.
func PRI(r531, r570 float64) float64 {
	return normalizedDifference(r531, r570)
}

// NDWI is the normalized difference water index over the 860/1240 nm pair.
func NDWI(nir, swir float64) float64 {
	return normalizedDifference(nir, swir)
}
