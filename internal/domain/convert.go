package domain

import "fmt"

// ConvertUnits rewrites every value into the canonical unit of its variable.
//
// A cell's source unit is the one declared by its companion unit column,
// then the one embedded in its column header, then the profile's declared
// unit. All conversions are resolved before any value is touched, so an
// unsupported unit fails the call with ErrUnsupportedUnit and nothing is
// converted. Missing cells pass through.
func ConvertUnits(wide WideTable, profile NetworkProfile) (WideTable, error) {
	fallback := make(map[ColumnKey]string, len(wide.Columns))
	for _, col := range wide.Columns {
		unit := wide.RawUnits[col]
		if unit == "" {
			unit = profile.Units[col.Variable]
		}
		fallback[col] = unit
	}
	unitOf := func(key ColumnKey, cell Cell) string {
		if cell.Unit != "" {
			return cell.Unit
		}
		return fallback[key]
	}

	convs := map[columnUnit]Conversion{}
	resolve := func(col ColumnKey, unit string) error {
		if _, ok := convs[columnUnit{col, unit}]; ok {
			return nil
		}
		if unit == "" {
			return fmt.Errorf("%w: network %s declares no unit for %s", ErrUnsupportedUnit, profile.NetworkID, col.Variable)
		}
		c, err := LookupConversion(col.Variable, unit)
		if err != nil {
			return fmt.Errorf("network %s station %s: %w", profile.NetworkID, col.Station, err)
		}
		convs[columnUnit{col, unit}] = c
		return nil
	}

	declared := map[ColumnKey]bool{}
	for _, row := range wide.Rows {
		for key, cell := range row.Cells {
			if cell.Unit != "" {
				declared[key] = true
			}
			if cell.Missing {
				continue
			}
			if err := resolve(key, unitOf(key, cell)); err != nil {
				return WideTable{}, err
			}
		}
	}
	for _, col := range wide.Columns {
		if fallback[col] == "" && declared[col] {
			continue
		}
		if err := resolve(col, fallback[col]); err != nil {
			return WideTable{}, err
		}
	}

	out := wide.shape()
	out.Rows = make([]WideRow, len(wide.Rows))
	for _, col := range wide.Columns {
		info, _ := LookupVariable(col.Variable)
		out.Units[col] = info.Unit
	}
	for i, row := range wide.Rows {
		cells := make(map[ColumnKey]Cell, len(row.Cells))
		for key, cell := range row.Cells {
			if !cell.Missing {
				cell.Value = convs[columnUnit{key, unitOf(key, cell)}].Apply(cell.Value)
			}
			cell.Unit = ""
			cells[key] = cell
		}
		out.Rows[i] = WideRow{Time: row.Time, Cells: cells}
	}
	return out, nil
}

type columnUnit struct {
	col  ColumnKey
	unit string
}
