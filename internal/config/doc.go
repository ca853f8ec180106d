// Package config loads, normalizes, and validates leafspec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from the default location or a project
// override. The Config type centralizes every knob the CLI and pipeline
// stages need, so directory roots and the normalization policy are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical normalization modes, and clear validation
// errors.
package config
