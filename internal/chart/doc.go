// Package chart renders exported spectra into a self-contained HTML page.
//
// The page carries one line chart per sensor so VISNIR and SWIR axes never
// share an x-axis. It is a read-only view over the processed directory and
// is safe to regenerate at any time.
package chart
