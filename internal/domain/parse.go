package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

const utf8BOM = "\ufeff"

// Parse reads a wide-format CSV export into a WideTable using profile.
// name is the file name the data came from; it supplies the station id for
// profiles whose column headers carry none.
//
// The file fails as a whole only when it is empty, has no timestamp column,
// or has no column that maps to a known variable. Rows with unparsable
// timestamps are skipped and counted.
func Parse(r io.Reader, name string, profile NetworkProfile) (WideTable, Warnings, error) {
	var warn Warnings

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return WideTable{}, warn, fmt.Errorf("%w: %s: empty file", ErrMalformedInput, name)
	}
	if err != nil {
		return WideTable{}, warn, fmt.Errorf("%w: %s: read header: %v", ErrMalformedInput, name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	tsIdx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == profile.TimestampColumn {
			tsIdx = i
			break
		}
	}
	if tsIdx < 0 {
		return WideTable{}, warn, fmt.Errorf("%w: %s: timestamp column %q not found", ErrMalformedInput, name, profile.TimestampColumn)
	}

	defaultStation, _ := profile.StationFromFilename(filepath.Base(name))
	if profile.columnRe.SubexpIndex("station") < 0 && defaultStation == "" {
		return WideTable{}, warn, fmt.Errorf("%w: %s: file name does not identify a station", ErrMalformedInput, name)
	}

	table := WideTable{
		NetworkID: profile.NetworkID,
		RawUnits:  map[ColumnKey]string{},
		Units:     map[ColumnKey]string{},
	}
	colIdx := map[int]ColumnKey{}
	unitIdx := map[int]ColumnKey{}
	seen := map[ColumnKey]bool{}
	for i, h := range header {
		if i == tsIdx {
			continue
		}
		h = strings.TrimSpace(h)
		if key, ok := companionUnit(profile, h, defaultStation); ok {
			unitIdx[i] = key
			continue
		}
		key, unit, ok := profile.matchColumn(h, defaultStation)
		if !ok {
			continue
		}
		if seen[key] {
			warn.DuplicateColumns++
			continue
		}
		seen[key] = true
		colIdx[i] = key
		table.Columns = append(table.Columns, key)
		if unit != "" {
			table.RawUnits[key] = unit
		}
	}
	if len(colIdx) == 0 {
		return WideTable{}, warn, fmt.Errorf("%w: %s: no column maps to a known variable", ErrMalformedInput, name)
	}
	sortColumns(table.Columns)
	for i, key := range unitIdx {
		if !seen[key] {
			delete(unitIdx, i)
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			warn.SkippedRows++
			continue
		}
		if err != nil {
			return WideTable{}, warn, fmt.Errorf("%w: %s: %v", ErrIO, name, err)
		}
		if len(rec) <= tsIdx {
			warn.SkippedRows++
			continue
		}

		ts, err := time.ParseInLocation(profile.TimestampFormat, strings.TrimSpace(rec[tsIdx]), profile.Location())
		if err != nil {
			warn.SkippedRows++
			continue
		}

		row := WideRow{Time: ts, Cells: make(map[ColumnKey]Cell, len(colIdx))}
		for i, key := range colIdx {
			if i >= len(rec) {
				continue
			}
			row.Cells[key] = Cell{Raw: strings.TrimSpace(rec[i])}
		}
		for i, key := range unitIdx {
			cell, ok := row.Cells[key]
			if !ok || i >= len(rec) {
				continue
			}
			cell.Unit = strings.TrimSpace(rec[i])
			row.Cells[key] = cell
		}
		table.Rows = append(table.Rows, row)
	}

	return table, warn, nil
}

// companionUnit reports whether header is a "<value column>_unit" column
// declaring the unit of each cell of that value column.
func companionUnit(profile NetworkProfile, header, defaultStation string) (ColumnKey, bool) {
	base, ok := cutSuffixFold(header, unitSuffix)
	if !ok || base == "" {
		return ColumnKey{}, false
	}
	key, _, ok := profile.matchColumn(base, defaultStation)
	return key, ok
}

const unitSuffix = "_unit"

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}
