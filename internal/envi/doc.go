// Package envi reads ENVI hyperspectral cubes: a text header describing the
// cube geometry paired with a flat binary file in bil, bip, or bsq layout.
//
// The reader never materializes a cube. MeanSpectrum streams the binary file
// one line at a time and reduces it to a per-band spatial mean over a window,
// which is all the pipeline needs from a cube. Wavelength axes come from the
// header when the list length matches the band count; otherwise a synthetic
// band-index axis is substituted so a sloppy header degrades the axis, not
// the run.
package envi
