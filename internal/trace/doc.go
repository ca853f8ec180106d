// Package trace maintains the append-only audit log every pipeline stage
// writes exactly one line to per invocation. The log is never truncated and
// appends happen under a scoped file lock, so the line sequence is a durable
// record of what ran, when, and with what outcome.
package trace
