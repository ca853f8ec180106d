// Package spectral implements reflectance normalization and the derived
// vegetation indices.
//
// A mean spectrum enters as raw sensor counts and leaves as normalized
// reflectance via one of three modes: CLOTH divides by a reference-cloth
// spectrum captured alongside the sample, BASELINE divides by a persisted
// per-sensor mean curve, and ZSCORE standardizes the curve against itself
// when no external reference exists. The AUTO policy cascades through the
// three in that order and records which mode actually ran, so downstream
// validation can compare the recorded mode against current policy.
package spectral
