package domain

import "sort"

// Warnings accumulates non-fatal data-quality problems for one run. Each
// stage returns its own Warnings; callers combine them with Merge.
type Warnings struct {
	SkippedRows    int
	MalformedCells int
	MissingCells   int
	DuplicateRows  int
	// DuplicateColumns counts headers dropped because an earlier header
	// already mapped to the same station and variable.
	DuplicateColumns int
	UnknownStations  []string
}

// Merge folds other into w.
func (w *Warnings) Merge(other Warnings) {
	w.SkippedRows += other.SkippedRows
	w.MalformedCells += other.MalformedCells
	w.MissingCells += other.MissingCells
	w.DuplicateRows += other.DuplicateRows
	w.DuplicateColumns += other.DuplicateColumns
	if len(other.UnknownStations) > 0 {
		w.UnknownStations = mergeSorted(w.UnknownStations, other.UnknownStations)
	}
}

// Total is the sum of all counters plus the number of unknown stations.
func (w Warnings) Total() int {
	return w.SkippedRows + w.MalformedCells + w.MissingCells + w.DuplicateRows + w.DuplicateColumns + len(w.UnknownStations)
}

// Counts returns the counters keyed by the names used in logs and metrics.
func (w Warnings) Counts() map[string]int {
	return map[string]int{
		"skipped_rows":      w.SkippedRows,
		"malformed_cells":   w.MalformedCells,
		"missing_cells":     w.MissingCells,
		"duplicate_rows":    w.DuplicateRows,
		"duplicate_columns": w.DuplicateColumns,
		"unknown_stations":  len(w.UnknownStations),
	}
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
