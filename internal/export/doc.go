// Package export implements the second pipeline stage: turning each
// inventoried cube into one normalized spectrum file.
//
// For every non-reference metadata row the exporter loads the ENVI header,
// verifies the wavelength axis, reduces the configured region of interest to
// a mean curve, runs the normalization cascade against the resolved cloth and
// baseline references, and writes <sample_id>_spectrum.csv atomically. Cloth
// curves are reduced once up front and shared read-only across the worker
// pool. The batch records per-sample failures and keeps going; only
// infrastructure faults abort it. Each run also writes the
// export_spectra_run.csv report and appends one trace line.
//
// The package additionally owns the spectrum and baseline file formats and
// the baseline builder behind the baseline command.
package export
