package domain

import (
	"fmt"
	"time"
)

// Check validates the invariants of a canonical table and returns one
// message per violation.
func Check(table CanonicalTable) []string {
	var issues []string
	seen := make(map[ObservationKey]int, len(table))

	for i, o := range table {
		row := i + 1
		if o.StationID == "" {
			issues = append(issues, fmt.Sprintf("row %d: empty station_id", row))
		}
		if o.Timestamp.Location() != time.UTC {
			issues = append(issues, fmt.Sprintf("row %d: timestamp %s is not UTC", row, o.Timestamp))
		}
		info, ok := LookupVariable(o.Variable)
		if !ok {
			issues = append(issues, fmt.Sprintf("row %d: variable %q not in catalog", row, o.Variable))
		} else if o.Unit != info.Unit {
			issues = append(issues, fmt.Sprintf("row %d: unit %q is not canonical for %s", row, o.Unit, o.Variable))
		}
		if o.Missing != (o.QualityFlag == FlagMissing) {
			issues = append(issues, fmt.Sprintf("row %d: quality_flag %q disagrees with value", row, o.QualityFlag))
		}
		if prev, dup := seen[o.Key()]; dup {
			issues = append(issues, fmt.Sprintf("row %d: duplicates row %d", row, prev))
		} else {
			seen[o.Key()] = row
		}
	}
	if !table.IsSorted() {
		issues = append(issues, "rows are not sorted by station_id, timestamp, variable")
	}
	return issues
}
