package domain

import (
	"regexp"
	"strconv"
)

// numericRe extracts the first numeric literal from a cell such as "15.2 ppb".
var numericRe = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// Normalize converts timestamps to UTC, collapses duplicate timestamps and
// resolves every cell to a number or the missing marker.
//
// Rows sharing a UTC timestamp keep the last one read; each dropped row is
// counted in DuplicateRows. Sentinel tokens count as MissingCells. Tokens
// that fail numeric coercion become missing and count as MalformedCells.
func Normalize(wide WideTable, profile NetworkProfile) (WideTable, Warnings) {
	var warn Warnings

	out := wide.shape()
	index := map[int64]int{}

	for _, row := range wide.Rows {
		row.Time = row.Time.UTC()
		key := row.Time.UnixNano()
		if i, ok := index[key]; ok {
			out.Rows[i] = row
			warn.DuplicateRows++
			continue
		}
		index[key] = len(out.Rows)
		out.Rows = append(out.Rows, row)
	}

	for i, row := range out.Rows {
		cells := make(map[ColumnKey]Cell, len(row.Cells))
		for key, cell := range row.Cells {
			cells[key] = normalizeCell(cell, profile, &warn)
		}
		out.Rows[i] = WideRow{Time: row.Time, Cells: cells}
	}

	return out, warn
}

func normalizeCell(c Cell, profile NetworkProfile, warn *Warnings) Cell {
	if profile.IsMissing(c.Raw) {
		warn.MissingCells++
		return Cell{Raw: c.Raw, Unit: c.Unit, Missing: true}
	}
	v, ok := parseNumber(c.Raw, profile.LenientNumbers)
	if !ok {
		warn.MalformedCells++
		return Cell{Raw: c.Raw, Unit: c.Unit, Missing: true}
	}
	return Cell{Raw: c.Raw, Unit: c.Unit, Value: v}
}

func parseNumber(s string, lenient bool) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && lenient {
		if m := numericRe.FindString(s); m != "" {
			v, err = strconv.ParseFloat(m, 64)
		}
	}
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
