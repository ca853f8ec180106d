package envi

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DataType is the numeric ENVI data type code.
type DataType int

// Supported ENVI data type codes.
const (
	DataTypeUint8   DataType = 1
	DataTypeInt16   DataType = 2
	DataTypeInt32   DataType = 3
	DataTypeFloat32 DataType = 4
	DataTypeFloat64 DataType = 5
	DataTypeUint16  DataType = 12
)

// Size returns the element size in bytes, or 0 for unsupported codes.
func (d DataType) Size() int {
	switch d {
	case DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeFloat32:
		return 4
	case DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// Interleave is the band layout of the binary cube file.
type Interleave string

const (
	InterleaveBIL Interleave = "bil"
	InterleaveBIP Interleave = "bip"
	InterleaveBSQ Interleave = "bsq"
)

// Header holds the fields of an ENVI text header needed to read the cube.
// Samples is the pixel count per line (columns), Lines the row count.
type Header struct {
	Samples      int
	Lines        int
	Bands        int
	DataType     DataType
	Interleave   Interleave
	ByteOrder    int
	HeaderOffset int64
	// Wavelengths is the header wavelength list, nil when absent or
	// unparseable. Use WavelengthAxis to obtain a usable axis.
	Wavelengths []float64
}

// Validate checks that the header describes a readable cube.
func (h Header) Validate() error {
	if h.Samples < 1 {
		return fmt.Errorf("samples must be >= 1 (got %d)", h.Samples)
	}
	if h.Lines < 1 {
		return fmt.Errorf("lines must be >= 1 (got %d)", h.Lines)
	}
	if h.Bands < 1 {
		return fmt.Errorf("bands must be >= 1 (got %d)", h.Bands)
	}
	if h.DataType.Size() == 0 {
		return fmt.Errorf("unsupported data type code %d", int(h.DataType))
	}
	switch h.Interleave {
	case InterleaveBIL, InterleaveBIP, InterleaveBSQ:
	default:
		return fmt.Errorf("unsupported interleave %q", string(h.Interleave))
	}
	if h.ByteOrder != 0 && h.ByteOrder != 1 {
		return fmt.Errorf("byte order must be 0 or 1 (got %d)", h.ByteOrder)
	}
	if h.HeaderOffset < 0 {
		return fmt.Errorf("header offset must be >= 0 (got %d)", h.HeaderOffset)
	}
	return nil
}

// WavelengthAxis returns the axis for this cube and whether it came from the
// header. When the header list is absent or its length does not match the
// band count, a synthetic 0..bands-1 axis is returned instead.
func (h Header) WavelengthAxis() ([]float64, bool) {
	if len(h.Wavelengths) == h.Bands && h.Bands > 0 {
		axis := make([]float64, h.Bands)
		copy(axis, h.Wavelengths)
		return axis, true
	}
	axis := make([]float64, h.Bands)
	for i := range axis {
		axis[i] = float64(i)
	}
	return axis, false
}

// ReadHeader parses the ENVI text header at path.
func ReadHeader(path string) (Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open header: %w", err)
	}
	defer file.Close()

	header, err := ParseHeader(file)
	if err != nil {
		return Header{}, fmt.Errorf("parse header %s: %w", path, err)
	}
	return header, nil
}

// ParseHeader parses an ENVI header from r. The first non-blank line must be
// the ENVI magic. Values wrapped in braces may span multiple lines; keys are
// matched case-insensitively with whitespace collapsed.
func ParseHeader(r io.Reader) (Header, error) {
	fields, err := scanFields(r)
	if err != nil {
		return Header{}, err
	}

	header := Header{ByteOrder: 0, HeaderOffset: 0}

	if header.Samples, err = requiredInt(fields, "samples"); err != nil {
		return Header{}, err
	}
	if header.Lines, err = requiredInt(fields, "lines"); err != nil {
		return Header{}, err
	}
	if header.Bands, err = requiredInt(fields, "bands"); err != nil {
		return Header{}, err
	}

	dataType, err := requiredInt(fields, "data type")
	if err != nil {
		return Header{}, err
	}
	header.DataType = DataType(dataType)

	interleave, ok := fields["interleave"]
	if !ok {
		return Header{}, fmt.Errorf("missing required field %q", "interleave")
	}
	header.Interleave = Interleave(strings.ToLower(strings.TrimSpace(interleave)))

	if raw, ok := fields["byte order"]; ok {
		order, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Header{}, fmt.Errorf("field %q: %w", "byte order", err)
		}
		header.ByteOrder = order
	}
	if raw, ok := fields["header offset"]; ok {
		offset, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Header{}, fmt.Errorf("field %q: %w", "header offset", err)
		}
		header.HeaderOffset = offset
	}

	// A malformed wavelength list degrades to the synthetic axis rather
	// than failing the whole header.
	if raw, ok := fields["wavelength"]; ok {
		if values, err := parseFloatList(raw); err == nil {
			header.Wavelengths = values
		}
	}

	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}

func scanFields(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	fields := make(map[string]string)
	sawMagic := false
	var braceKey string
	var braceValue strings.Builder

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawMagic {
			if !strings.EqualFold(line, "ENVI") {
				return nil, fmt.Errorf("not an ENVI header (first line %q)", line)
			}
			sawMagic = true
			continue
		}
		if strings.HasPrefix(line, ";") {
			continue
		}

		if braceKey != "" {
			braceValue.WriteByte(' ')
			braceValue.WriteString(line)
			if strings.Contains(line, "}") {
				fields[braceKey] = stripBraces(braceValue.String())
				braceKey = ""
				braceValue.Reset()
			}
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := normalizeKey(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if strings.HasPrefix(value, "{") && !strings.Contains(value, "}") {
			braceKey = key
			braceValue.Reset()
			braceValue.WriteString(value)
			continue
		}
		fields[key] = stripBraces(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !sawMagic {
		return nil, fmt.Errorf("not an ENVI header (empty input)")
	}
	if braceKey != "" {
		return nil, fmt.Errorf("unterminated brace value for field %q", braceKey)
	}
	return fields, nil
}

func normalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

func stripBraces(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		value = value[1 : len(value)-1]
	}
	return strings.TrimSpace(value)
}

func requiredInt(fields map[string]string, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return value, nil
}

func parseFloatList(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		values = append(values, value)
	}
	return values, nil
}
