// Package selfcheck validates the processed artifacts end to end: the
// metadata table, every exported spectrum file, their pairing, and the
// configured normalization policy. The battery enumerates all violations
// instead of stopping at the first, renders a report, appends one trace
// line, and mirrors the metadata table to the audit directory on PASS.
//
// A FAIL verdict is data feedback, not a fault: the checker returns
// ErrCheckFailed next to the completed report so callers can render it and
// exit 1. Only infrastructure problems (processed dir missing, trace log
// unwritable) surface as ordinary errors.
package selfcheck
