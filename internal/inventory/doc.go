// Package inventory implements the first pipeline stage: walking the raw
// acquisition root, pairing ENVI headers with their cube files, and writing
// the metadata table downstream stages consume.
//
// A sample enters the table only when both files of the pair exist and the
// name carries a recognizable sensor token; everything else is reported on
// the scan result's skip list. The table is rewritten atomically on every
// scan and its row order is lexicographic by sample id, so rescanning an
// unchanged tree produces a byte-identical file.
package inventory
