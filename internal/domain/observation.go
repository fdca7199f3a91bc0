package domain

import (
	"sort"
	"time"
)

// QualityFlag marks the provenance of one observation.
type QualityFlag string

const (
	// FlagMeasured is a numeric value reported by the network.
	FlagMeasured QualityFlag = "measured"
	// FlagMissing is a sentinel or malformed cell; Value carries no data.
	FlagMissing QualityFlag = "missing"
	// FlagUnknownStation is a measured value whose station is not in the
	// network's directory. Coordinates are null.
	FlagUnknownStation QualityFlag = "unknown_station"
)

// Observation is one row of the canonical long table.
type Observation struct {
	StationID   string      `json:"station_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Variable    Variable    `json:"variable"`
	Value       float64     `json:"value"`
	Missing     bool        `json:"missing"`
	Unit        string      `json:"unit"`
	QualityFlag QualityFlag `json:"quality_flag"`

	// Station metadata, nil until AttachMetadata finds the station.
	StationName string   `json:"station_name,omitempty"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Elevation   *float64 `json:"elevation"`
}

// Key returns the identity that is unique within a CanonicalTable.
func (o Observation) Key() ObservationKey {
	return ObservationKey{StationID: o.StationID, Timestamp: o.Timestamp, Variable: o.Variable}
}

// ObservationKey is the (station_id, timestamp, variable) tuple.
type ObservationKey struct {
	StationID string
	Timestamp time.Time
	Variable  Variable
}

// CanonicalTable is the ordered output of the pipeline.
type CanonicalTable []Observation

// Sort orders the table by station_id, timestamp, variable ascending.
func (t CanonicalTable) Sort() {
	sort.SliceStable(t, func(i, j int) bool { return t.less(i, j) })
}

// IsSorted reports whether the table is in canonical order.
func (t CanonicalTable) IsSorted() bool {
	return sort.SliceIsSorted(t, func(i, j int) bool { return t.less(i, j) })
}

func (t CanonicalTable) less(i, j int) bool {
	a, b := t[i], t[j]
	if a.StationID != b.StationID {
		return a.StationID < b.StationID
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Variable < b.Variable
}

// Stations returns the distinct station ids in the table, sorted.
func (t CanonicalTable) Stations() []string {
	seen := map[string]struct{}{}
	for _, o := range t {
		seen[o.StationID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// WriteResult reports a completed serialization.
type WriteResult struct {
	RowsWritten int
	Path        string
}

// ExportBatch is one run's canonical table handed to exporters.
type ExportBatch struct {
	RunID       string
	NetworkID   string
	ProcessedAt time.Time
	Table       CanonicalTable
}
