package inventory

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// MetaFileName is the metadata table's name under the processed directory.
const MetaFileName = "hsi_meta.csv"

// Sensor families recorded in the metadata table.
const (
	SensorVISNIR = "VISNIR"
	SensorSWIR   = "SWIR"
)

// Columns is the stable column order of the metadata table. Downstream
// consumers depend on this exact set.
var Columns = []string{
	"sample_id",
	"file_name",
	"sensor",
	"timepoint",
	"acquired_at",
	"is_ref",
	"has_cloth_ref",
	"hdr_path",
	"cube_path",
}

// Record is one row of the metadata table: a discovered header/cube pair with
// its acquisition metadata.
type Record struct {
	SampleID    string
	FileName    string
	Sensor      string
	Timepoint   string
	AcquiredAt  time.Time
	IsRef       bool
	HasClothRef bool
	HdrPath     string
	CubePath    string
}

func (r Record) row() []string {
	return []string{
		r.SampleID,
		r.FileName,
		r.Sensor,
		r.Timepoint,
		formatTime(r.AcquiredAt),
		formatBool(r.IsRef),
		formatBool(r.HasClothRef),
		r.HdrPath,
		r.CubePath,
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func encodeTable(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(r.row()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Table is a parsed metadata table. Rows are kept in file order; absent
// columns parse to zero values so a structurally deficient table can still be
// inspected rather than failing outright.
type Table struct {
	Path    string
	Header  []string
	Records []Record
}

// ReadTable loads the metadata table at path.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read metadata table: %w", err)
	}

	table := &Table{Path: path}
	if len(rows) == 0 {
		return table, nil
	}
	table.Header = rows[0]

	index := make(map[string]int, len(table.Header))
	for i, col := range table.Header {
		index[col] = i
	}
	for n, row := range rows[1:] {
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("metadata row %d: %w", n+2, err)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

// MissingColumns reports required columns absent from the header row.
func (t *Table) MissingColumns() []string {
	present := make(map[string]struct{}, len(t.Header))
	for _, col := range t.Header {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range Columns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Samples returns the non-reference rows in table order.
func (t *Table) Samples() []Record {
	var samples []Record
	for _, r := range t.Records {
		if !r.IsRef {
			samples = append(samples, r)
		}
	}
	return samples
}

// ClothFor locates the cloth reference for a sample: first a cloth row with
// the same sensor and timepoint, then any cloth row with the same sensor. The
// first match in table order wins, keeping reference selection deterministic.
func (t *Table) ClothFor(sensor, timepoint string) (Record, bool) {
	for _, r := range t.Records {
		if r.IsRef && r.Sensor == sensor && r.Timepoint == timepoint {
			return r, true
		}
	}
	for _, r := range t.Records {
		if r.IsRef && r.Sensor == sensor {
			return r, true
		}
	}
	return Record{}, false
}

func parseRow(row []string, index map[string]int) (Record, error) {
	get := func(col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	rec := Record{
		SampleID:  get("sample_id"),
		FileName:  get("file_name"),
		Sensor:    get("sensor"),
		Timepoint: get("timepoint"),
		HdrPath:   get("hdr_path"),
		CubePath:  get("cube_path"),
	}
	if v := get("acquired_at"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Record{}, fmt.Errorf("acquired_at %q: %w", v, err)
		}
		rec.AcquiredAt = ts
	}
	var err error
	if rec.IsRef, err = parseBoolColumn(get("is_ref")); err != nil {
		return Record{}, fmt.Errorf("is_ref: %w", err)
	}
	if rec.HasClothRef, err = parseBoolColumn(get("has_cloth_ref")); err != nil {
		return Record{}, fmt.Errorf("has_cloth_ref: %w", err)
	}
	return rec, nil
}

func parseBoolColumn(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("value %q is not a boolean", v)
	}
	return b, nil
}
