package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testStationX = "stationX"
	testStationY = "stationY"
)

// networkAProfile mirrors a multi-station export whose timestamps carry an
// explicit offset and whose local zone is UTC-3.
func networkAProfile(t *testing.T) NetworkProfile {
	t.Helper()
	p, err := NewNetworkProfile(ProfileSpec{
		NetworkID:        "neta",
		ColumnMap:        map[Variable]string{VarPM25: "PM25", VarO3: "O3", VarTemp: "TEMP"},
		Units:            map[Variable]string{VarPM25: "µg/m3", VarO3: "ug/m3", VarTemp: "°C"},
		MissingSentinels: []string{"-999", "NA", ""},
		TimestampColumn:  "timestamp",
		TimestampFormat:  "2006-01-02T15:04Z07:00",
		Timezone:         "UTC-3",
		ColumnPattern:    `^(?P<station>[A-Za-z0-9]+)_(?P<variable>[A-Za-z0-9]+)$`,
		Stations: StationDirectory{
			testStationX: {ID: testStationX, Name: "Station X", Latitude: -33.45, Longitude: -70.66, Elevation: 570},
		},
	})
	require.NoError(t, err)
	return p
}

// networkBProfile mirrors per-station files with units in the headers and
// naive local timestamps in America/Santiago.
func networkBProfile(t *testing.T) NetworkProfile {
	t.Helper()
	p, err := NewNetworkProfile(ProfileSpec{
		NetworkID:        "netb",
		ColumnMap:        map[Variable]string{VarPM25: "PM25", VarCO: "CO", VarNO2: "NO2"},
		Units:            map[Variable]string{VarPM25: "ug/m3"},
		MissingSentinels: []string{"NA", ""},
		TimestampColumn:  "date_local",
		TimestampFormat:  "2006-01-02 15:04",
		Timezone:         "America/Santiago",
		ColumnPattern:    `^(?P<variable>[A-Za-z0-9]+?)(?:--H\d*)?_(?P<unit>[\pL\pN/|%°º³^]+)$`,
		FilenamePattern:  `^ID-(?P<station>\d+)--(?:Met|Cal)_HH\.csv$`,
		LenientNumbers:   true,
	})
	require.NoError(t, err)
	return p
}

func parseString(t *testing.T, name, data string, p NetworkProfile) (WideTable, Warnings) {
	t.Helper()
	wide, warn, err := Parse(strings.NewReader(data), name, p)
	require.NoError(t, err)
	return wide, warn
}

// runStages takes CSV text through every pure stage.
func runStages(t *testing.T, name, data string, p NetworkProfile) (CanonicalTable, Warnings) {
	t.Helper()
	wide, warn := parseString(t, name, data, p)
	norm, nwarn := Normalize(wide, p)
	warn.Merge(nwarn)
	conv, err := ConvertUnits(norm, p)
	require.NoError(t, err)
	table, unknown := AttachMetadata(ToLong(conv), p.Stations)
	warn.Merge(Warnings{UnknownStations: unknown})
	return table, warn
}
