package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

// errHeader reports a file whose header is not the canonical one.
var errHeader = errors.New("header does not match canonical columns")

// Read loads a canonical file written by Writer. The format is inferred from
// the file extension.
func Read(path string) (domain.CanonicalTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	defer f.Close()

	format := FormatCSV
	if strings.HasSuffix(strings.ToLower(path), "."+FormatTSV) {
		format = FormatTSV
	}
	return Decode(f, format)
}

// Decode reads a canonical table from r.
func Decode(r io.Reader, format string) (domain.CanonicalTable, error) {
	delim, err := Delimiter(format)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrMalformedInput, err)
	}
	for i, h := range Header {
		if header[i] != h {
			return nil, fmt.Errorf("%w: %w: column %d is %q, want %q", domain.ErrMalformedInput, errHeader, i+1, header[i], h)
		}
	}

	var table domain.CanonicalTable
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		o, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedInput, line, err)
		}
		table = append(table, o)
	}
	return table, nil
}

func decodeRow(rec []string) (domain.Observation, error) {
	ts, err := time.Parse(time.RFC3339, rec[1])
	if err != nil {
		return domain.Observation{}, fmt.Errorf("timestamp: %w", err)
	}
	o := domain.Observation{
		StationID:   rec[0],
		Timestamp:   ts,
		Variable:    domain.Variable(rec[2]),
		Unit:        rec[4],
		QualityFlag: domain.QualityFlag(rec[5]),
	}
	if rec[3] == "" {
		o.Missing = true
	} else if o.Value, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return domain.Observation{}, fmt.Errorf("value: %w", err)
	}
	if o.Latitude, err = parseOptional(rec[6]); err != nil {
		return domain.Observation{}, fmt.Errorf("latitude: %w", err)
	}
	if o.Longitude, err = parseOptional(rec[7]); err != nil {
		return domain.Observation{}, fmt.Errorf("longitude: %w", err)
	}
	if o.Elevation, err = parseOptional(rec[8]); err != nil {
		return domain.Observation{}, fmt.Errorf("elevation: %w", err)
	}
	return o, nil
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
