// Package csvfile serializes canonical tables as delimited text.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

// Supported formats.
const (
	FormatCSV = "csv"
	FormatTSV = "tsv"
)

// Header is the canonical column order.
var Header = []string{
	"station_id", "timestamp", "variable", "value", "unit",
	"quality_flag", "latitude", "longitude", "elevation",
}

// Writer writes canonical tables to disk. It implements pipeline.TableWriter.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Delimiter returns the field separator for format.
func Delimiter(format string) (rune, error) {
	switch format {
	case "", FormatCSV:
		return ',', nil
	case FormatTSV:
		return '\t', nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// Write serializes table to path. Data goes to a temporary file in the same
// directory which is renamed over path only after a successful flush, so a
// failure never leaves a truncated file at path.
func (w *Writer) Write(table domain.CanonicalTable, path, format string) (domain.WriteResult, error) {
	delim, err := Delimiter(format)
	if err != nil {
		return domain.WriteResult{}, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: create output dir: %v", domain.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: create temp file: %v", domain.ErrIO, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()           //nolint:errcheck // already failing
			os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	rows, err := encode(tmp, table, delim)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: sync %s: %v", domain.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: close %s: %v", domain.ErrIO, path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: chmod %s: %v", domain.ErrIO, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		committed = true
		return domain.WriteResult{}, fmt.Errorf("%w: rename into %s: %v", domain.ErrIO, path, err)
	}
	committed = true

	return domain.WriteResult{RowsWritten: rows, Path: path}, nil
}

func encode(w io.Writer, table domain.CanonicalTable, delim rune) (int, error) {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = delim

	if err := cw.Write(Header); err != nil {
		return 0, err
	}
	rec := make([]string, len(Header))
	for _, o := range table {
		rec[0] = o.StationID
		rec[1] = o.Timestamp.UTC().Format(time.RFC3339Nano)
		rec[2] = string(o.Variable)
		rec[3] = formatValue(o)
		rec[4] = o.Unit
		rec[5] = string(o.QualityFlag)
		rec[6] = formatOptional(o.Latitude)
		rec[7] = formatOptional(o.Longitude)
		rec[8] = formatOptional(o.Elevation)
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(table), bw.Flush()
}

func formatValue(o domain.Observation) string {
	if o.Missing {
		return ""
	}
	return ftoa(o.Value)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
