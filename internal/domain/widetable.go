package domain

import (
	"math"
	"sort"
	"time"
)

// Cell is one station×variable value at one timestamp. Raw holds the token
// as read; Value and Missing are set by Normalize. Unit is the unit declared
// for this cell by a companion "<column>_unit" column, if the file has one;
// ConvertUnits clears it once applied.
type Cell struct {
	Raw     string
	Unit    string
	Value   float64
	Missing bool
}

// WideRow is one timestamp of a wide table. Cells absent from the map were
// never reported for that timestamp.
type WideRow struct {
	Time  time.Time
	Cells map[ColumnKey]Cell
}

// WideTable is the intermediate station×variable layout. Stages treat it as
// a value: each returns a new table and leaves its input untouched.
type WideTable struct {
	NetworkID string
	Columns   []ColumnKey
	// RawUnits holds units embedded in column headers, keyed by column.
	RawUnits map[ColumnKey]string
	// Units holds the unit each column's values are currently expressed in.
	// It is empty until ConvertUnits runs.
	Units map[ColumnKey]string
	Rows  []WideRow
}

// Clone returns a deep copy of t.
func (t WideTable) Clone() WideTable {
	out := t.shape()
	out.Rows = make([]WideRow, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = WideRow{Time: r.Time, Cells: copyMap(r.Cells)}
	}
	return out
}

// shape copies everything but the rows.
func (t WideTable) shape() WideTable {
	return WideTable{
		NetworkID: t.NetworkID,
		Columns:   append([]ColumnKey(nil), t.Columns...),
		RawUnits:  copyMap(t.RawUnits),
		Units:     copyMap(t.Units),
	}
}

// CellCount returns the number of present cells.
func (t WideTable) CellCount() int {
	n := 0
	for _, r := range t.Rows {
		n += len(r.Cells)
	}
	return n
}

// ToWide pivots a canonical table back to the wide layout. Values stay in
// canonical units; Units records the canonical unit per column.
func ToWide(table CanonicalTable) WideTable {
	out := WideTable{
		RawUnits: map[ColumnKey]string{},
		Units:    map[ColumnKey]string{},
	}
	byTime := map[time.Time]int{}
	seen := map[ColumnKey]bool{}

	for _, o := range table {
		key := ColumnKey{Station: o.StationID, Variable: o.Variable}
		if !seen[key] {
			seen[key] = true
			out.Columns = append(out.Columns, key)
			out.Units[key] = o.Unit
		}
		i, ok := byTime[o.Timestamp]
		if !ok {
			i = len(out.Rows)
			byTime[o.Timestamp] = i
			out.Rows = append(out.Rows, WideRow{Time: o.Timestamp, Cells: map[ColumnKey]Cell{}})
		}
		cell := Cell{Missing: o.Missing}
		if !o.Missing {
			cell.Value = o.Value
		}
		out.Rows[i].Cells[key] = cell
	}

	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].Time.Before(out.Rows[j].Time) })
	sortColumns(out.Columns)
	return out
}

func sortColumns(cols []ColumnKey) {
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Station != cols[j].Station {
			return cols[i].Station < cols[j].Station
		}
		return cols[i].Variable < cols[j].Variable
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
