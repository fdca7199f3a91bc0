package domain

// ToLong pivots a converted wide table into canonical observations, one per
// present cell. Cells the source never reported are not invented. The
// result is sorted by station_id, timestamp, variable.
func ToLong(wide WideTable) CanonicalTable {
	table := make(CanonicalTable, 0, wide.CellCount())
	for _, row := range wide.Rows {
		ts := row.Time.UTC()
		for key, cell := range row.Cells {
			info, _ := LookupVariable(key.Variable)
			o := Observation{
				StationID:   key.Station,
				Timestamp:   ts,
				Variable:    key.Variable,
				Unit:        info.Unit,
				QualityFlag: FlagMeasured,
			}
			if cell.Missing {
				o.Missing = true
				o.QualityFlag = FlagMissing
			} else {
				o.Value = cell.Value
			}
			table = append(table, o)
		}
	}
	table.Sort()
	return table
}
