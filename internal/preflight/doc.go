// Package preflight provides readiness checks for the filesystem roots the
// pipeline depends on. The run command executes RunAll before touching any
// cube so a doomed batch fails in milliseconds instead of mid-export, and
// the status command renders the same results for inspection.
package preflight
