// Package stationfile reads station directories from CSV files, such as the
// station lists networks publish alongside their exports.
package stationfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

// Loader reads a station directory file. It implements pipeline.StationSource.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads path using the given column names. Rows whose coordinates or
// elevation are missing or unparsable are dropped.
func (l *Loader) Load(path string, cols domain.StationColumns) (domain.StationDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open station file: %v", domain.ErrIO, err)
	}
	defer f.Close()

	dir, dropped, err := Parse(f, cols.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("station file %s: %w", path, err)
	}
	if dropped > 0 {
		l.logger.Warn("station rows dropped", "path", path, "dropped", dropped, "kept", len(dir))
	}
	return dir, nil
}

// Parse reads a station CSV. It returns the directory and the number of
// rows dropped for missing coordinates.
func Parse(r io.Reader, cols domain.StationColumns) (domain.StationDirectory, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: empty station file", domain.ErrMalformedInput)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range []string{cols.ID, cols.Latitude, cols.Longitude} {
		if _, ok := idx[name]; !ok {
			return nil, 0, fmt.Errorf("%w: station column %q not found", domain.ErrMalformedInput, name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	dir := domain.StationDirectory{}
	dropped := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}

		id := field(rec, cols.ID)
		lat, errLat := strconv.ParseFloat(field(rec, cols.Latitude), 64)
		lon, errLon := strconv.ParseFloat(field(rec, cols.Longitude), 64)
		elev, errElev := parseElevation(field(rec, cols.Elevation), idx, cols.Elevation)
		if id == "" || errLat != nil || errLon != nil || errElev != nil {
			dropped++
			continue
		}
		dir[id] = domain.Station{
			ID:        id,
			Name:      field(rec, cols.Name),
			Latitude:  lat,
			Longitude: lon,
			Elevation: elev,
		}
	}
	return dir, dropped, nil
}

// parseElevation treats an absent elevation column as zero; a present but
// unparsable cell drops the row.
func parseElevation(s string, idx map[string]int, col string) (float64, error) {
	if _, ok := idx[col]; !ok {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
