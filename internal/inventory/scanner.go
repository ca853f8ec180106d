package inventory

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"leafspec/internal/config"
	"leafspec/internal/fileutil"
	"leafspec/internal/logging"
	"leafspec/internal/pipeline"
	"leafspec/internal/trace"
)

// cubeExtensions are tried in order when pairing a header with its cube.
var cubeExtensions = []string{".bil", ".bsq", ".bip", ".img", ".dat"}

// IsRawArtifact reports whether name looks like one half of a header/cube
// pair, so callers reacting to filesystem events can ignore unrelated files.
func IsRawArtifact(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".hdr" {
		return true
	}
	for _, cube := range cubeExtensions {
		if ext == cube {
			return true
		}
	}
	return false
}

var timepointPattern = regexp.MustCompile(`D(\d+)`)

// SkippedFile records a header that was discovered but not inventoried.
type SkippedFile struct {
	Path   string
	Reason string
}

// Result is the outcome of one scan.
type Result struct {
	Records  []Record
	Skipped  []SkippedFile
	MetaPath string
}

// Scanner walks the raw acquisition root and writes the metadata table.
type Scanner struct {
	cfg    *config.Config
	logger *slog.Logger
	trace  *trace.Writer
}

// NewScanner constructs a scanner for the configured raw root.
func NewScanner(cfg *config.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "inventory"),
		trace:  trace.NewWriter(filepath.Join(cfg.Paths.ReportsDir, trace.FileName)),
	}
}

// Scan discovers header/cube pairs under the raw root and writes the metadata
// table atomically. A missing root or a scan that finds no pairs is fatal;
// an empty table is never written silently, since downstream stages would
// treat it as a valid empty dataset.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	log := logging.WithContext(ctx, s.logger)
	root := s.cfg.Paths.RawDir
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		s.traceErr("raw root unavailable")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "open raw root", root, err)
	}

	log.Info("scanning raw root", logging.String("path", root))

	headers, err := collectHeaders(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.traceErr("walk failed")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "walk raw root", root, err)
	}

	records, skipped := s.classify(root, headers)
	if len(records) == 0 {
		s.traceErr("no header/cube pairs")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "discover samples",
			"no header/cube pairs under "+root, nil)
	}

	markClothAvailability(records)
	sort.Slice(records, func(i, j int) bool {
		return records[i].SampleID < records[j].SampleID
	})

	data, err := encodeTable(records)
	if err != nil {
		s.traceErr("encode failed")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "encode metadata table", "", err)
	}
	metaPath := filepath.Join(s.cfg.Paths.ProcessedDir, MetaFileName)
	if err := fileutil.WriteFileAtomic(metaPath, data, 0o644); err != nil {
		s.traceErr("write failed")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "write metadata table", metaPath, err)
	}

	log.Info("metadata table written",
		logging.String("path", metaPath),
		logging.Int("records", len(records)),
		logging.Int("skipped", len(skipped)))

	if err := s.trace.Append(pipeline.StageInventory, trace.MarkerOK,
		trace.Int("records", len(records)),
		trace.Int("skipped", len(skipped)),
		trace.F("src", root),
	); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageInventory, "append trace line", "", err)
	}

	return &Result{Records: records, Skipped: skipped, MetaPath: metaPath}, nil
}

func (s *Scanner) traceErr(reason string) {
	if err := s.trace.Append(pipeline.StageInventory, trace.MarkerErr, trace.F("err", reason)); err != nil {
		s.logger.Warn("trace append failed", logging.Error(err))
	}
}

func collectHeaders(ctx context.Context, root string) ([]string, error) {
	var headers []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".hdr") {
			headers = append(headers, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(headers)
	return headers, nil
}

func (s *Scanner) classify(root string, headers []string) ([]Record, []SkippedFile) {
	var records []Record
	var skipped []SkippedFile
	seen := make(map[string]string, len(headers))

	skip := func(path, reason string) {
		skipped = append(skipped, SkippedFile{Path: path, Reason: reason})
		s.logger.Warn("skipping header", logging.String("path", path), logging.String("reason", reason))
	}

	for _, hdr := range headers {
		base := filepath.Base(hdr)
		stem := strings.TrimSuffix(base, filepath.Ext(base))

		if first, dup := seen[stem]; dup {
			skip(hdr, "duplicate sample id (first seen at "+first+")")
			continue
		}

		rel, err := filepath.Rel(root, hdr)
		if err != nil {
			rel = base
		}
		sensor, ok := DetectSensor(rel)
		if !ok {
			skip(hdr, "no sensor token in name")
			continue
		}

		cube, acquired, ok := findCube(hdr, stem)
		if !ok {
			skip(hdr, "no cube file")
			continue
		}

		seen[stem] = hdr
		records = append(records, Record{
			SampleID:   stem,
			FileName:   base,
			Sensor:     sensor,
			Timepoint:  detectTimepoint(base),
			AcquiredAt: acquired,
			IsRef:      strings.Contains(strings.ToLower(base), "cloth"),
			HdrPath:    hdr,
			CubePath:   cube,
		})
	}
	return records, skipped
}

// DetectSensor infers the sensor family from path tokens, most specific
// first: "visnir" before "swir" before the bare "vis" shorthand. The
// exporter and self-check reuse it to recover sensors from spectrum file
// names, so the convention stays in one place.
func DetectSensor(path string) (string, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "visnir"):
		return SensorVISNIR, true
	case strings.Contains(lower, "swir"):
		return SensorSWIR, true
	case strings.Contains(lower, "vis"):
		return SensorVISNIR, true
	}
	return "", false
}

// detectTimepoint infers the sampling timepoint from the filename: a "2h"
// token wins over a D<n> day token, and a name with neither is the
// pre-treatment acquisition.
func detectTimepoint(filename string) string {
	if strings.Contains(filename, "2h") {
		return "2h"
	}
	if m := timepointPattern.FindStringSubmatch(filename); m != nil {
		return "D" + m[1]
	}
	return "before"
}

func findCube(hdrPath, stem string) (string, time.Time, bool) {
	dir := filepath.Dir(hdrPath)
	for _, ext := range cubeExtensions {
		candidate := filepath.Join(dir, stem+ext)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return candidate, info.ModTime().UTC().Truncate(time.Second), true
	}
	return "", time.Time{}, false
}

func markClothAvailability(records []Record) {
	type key struct{ sensor, timepoint string }
	cloths := make(map[key]struct{})
	for _, r := range records {
		if r.IsRef {
			cloths[key{r.Sensor, r.Timepoint}] = struct{}{}
		}
	}
	for i := range records {
		_, ok := cloths[key{records[i].Sensor, records[i].Timepoint}]
		records[i].HasClothRef = ok
	}
}
