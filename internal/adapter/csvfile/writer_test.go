package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleTable() domain.CanonicalTable {
	ts := time.Date(2023, 6, 1, 3, 0, 0, 0, time.UTC)
	return domain.CanonicalTable{
		{
			StationID: "330020", Timestamp: ts, Variable: domain.VarO3, Value: 62.5,
			Unit: domain.UnitPPB, QualityFlag: domain.FlagMeasured,
			Latitude: ptr(-33.4642), Longitude: ptr(-70.6606), Elevation: ptr(532),
		},
		{
			StationID: "330020", Timestamp: ts, Variable: domain.VarPM25, Missing: true,
			Unit: domain.UnitUGM3, QualityFlag: domain.FlagMissing,
			Latitude: ptr(-33.4642), Longitude: ptr(-70.6606), Elevation: ptr(532),
		},
		{
			StationID: "999", Timestamp: ts, Variable: domain.VarTemp, Value: 285.15,
			Unit: domain.UnitKelvin, QualityFlag: domain.FlagUnknownStation,
		},
	}
}

func TestWrite_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "x.canonical.csv")

	res, err := NewWriter().Write(sampleTable(), path, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsWritten)
	assert.Equal(t, path, res.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "station_id,timestamp,variable,value,unit,quality_flag,latitude,longitude,elevation\n" +
		"330020,2023-06-01T03:00:00Z,O3,62.5,ppb,measured,-33.4642,-70.6606,532\n" +
		"330020,2023-06-01T03:00:00Z,PM25,,µg/m3,missing,-33.4642,-70.6606,532\n" +
		"999,2023-06-01T03:00:00Z,TEMP,285.15,K,unknown_station,,,\n"
	assert.Equal(t, want, string(data))
}

func TestWrite_TSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.canonical.tsv")
	_, err := NewWriter().Write(sampleTable()[:1], path, FormatTSV)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Header, "\t"), lines[0])
	assert.Equal(t, 9, len(strings.Split(lines[1], "\t")))
}

func TestWrite_EmptyTableWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	res, err := NewWriter().Write(nil, path, FormatCSV)
	require.NoError(t, err)
	assert.Zero(t, res.RowsWritten)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data))
}

func TestWrite_UnsupportedFormatLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.canonical.parquet")
	_, err := NewWriter().Write(sampleTable(), path, "parquet")
	require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.NoFileExists(t, path)
}

func TestWrite_ReplacesExistingAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err := NewWriter().Write(sampleTable(), path, FormatCSV)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.csv", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "station_id,"))
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewWriter().Write(sampleTable(), filepath.Join(blocker, "x.csv"), FormatCSV)
	require.ErrorIs(t, err, domain.ErrIO)
}

func TestWrite_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	_, err := NewWriter().Write(sampleTable(), a, FormatCSV)
	require.NoError(t, err)
	_, err = NewWriter().Write(sampleTable(), b, FormatCSV)
	require.NoError(t, err)

	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	assert.Equal(t, da, db)
}

func TestWrite_KeepsSubSecondTimestamps(t *testing.T) {
	ts := time.Date(2023, 6, 1, 3, 0, 0, 0, time.UTC)
	table := domain.CanonicalTable{
		{StationID: "A", Timestamp: ts, Variable: domain.VarO3, Value: 1, Unit: domain.UnitPPB, QualityFlag: domain.FlagUnknownStation},
		{StationID: "A", Timestamp: ts.Add(500 * time.Millisecond), Variable: domain.VarO3, Value: 2, Unit: domain.UnitPPB, QualityFlag: domain.FlagUnknownStation},
	}
	path := filepath.Join(t.TempDir(), "x.csv")
	_, err := NewWriter().Write(table, path, FormatCSV)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A,2023-06-01T03:00:00Z,O3,1,")
	assert.Contains(t, string(data), "A,2023-06-01T03:00:00.5Z,O3,2,")

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Timestamp.Equal(table[1].Timestamp))
	assert.Empty(t, domain.Check(got))
}
