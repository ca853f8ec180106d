// Package runs keeps a sqlite ledger of stage invocations next to the other
// report artifacts. The ledger is history, not state: every pipeline stage
// works identically when it is unavailable, so callers open it best effort
// and record through a possibly-nil Store.
package runs
