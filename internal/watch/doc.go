// Package watch turns the pipeline into a long-running loop: it monitors the
// raw tree for arriving header/cube pairs and reruns ingestion after the
// filesystem has been quiet for a debounce window, so half-copied cubes are
// not scanned mid-transfer.
package watch
