package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := networkAProfile(t)

	t.Run("multi-station header", func(t *testing.T) {
		data := "timestamp,stationX_PM25,stationX_PM25_unit,stationY_O3,comment\n" +
			"2023-01-01T00:00-03:00,15,µg/m3,40,ok\n"
		wide, warn := parseString(t, "a.csv", data, p)

		assert.Equal(t, Warnings{}, warn)
		assert.Equal(t, "neta", wide.NetworkID)
		assert.Equal(t, []ColumnKey{
			{Station: testStationX, Variable: VarPM25},
			{Station: testStationY, Variable: VarO3},
		}, wide.Columns)
		require.Len(t, wide.Rows, 1)
		assert.True(t, wide.Rows[0].Time.Equal(time.Date(2023, 1, 1, 3, 0, 0, 0, time.UTC)))
		assert.Equal(t, "15", wide.Rows[0].Cells[ColumnKey{testStationX, VarPM25}].Raw)
		assert.Equal(t, "40", wide.Rows[0].Cells[ColumnKey{testStationY, VarO3}].Raw)
		assert.Equal(t, "µg/m3", wide.Rows[0].Cells[ColumnKey{testStationX, VarPM25}].Unit)
		assert.Empty(t, wide.Rows[0].Cells[ColumnKey{testStationY, VarO3}].Unit)
	})

	t.Run("companion unit column is read per cell", func(t *testing.T) {
		data := "timestamp,stationX_O3_UNIT,stationX_O3,stationY_PM25_unit\n" +
			"2023-01-01T00:00-03:00,ppb,20,ug/m3\n" +
			"2023-01-01T01:00-03:00, ppm ,0.02,\n"
		wide, warn := parseString(t, "a.csv", data, p)

		assert.Equal(t, Warnings{}, warn)
		o3 := ColumnKey{testStationX, VarO3}
		assert.Equal(t, []ColumnKey{o3}, wide.Columns)
		require.Len(t, wide.Rows, 2)
		assert.Equal(t, "ppb", wide.Rows[0].Cells[o3].Unit)
		assert.Equal(t, "ppm", wide.Rows[1].Cells[o3].Unit)
		assert.Len(t, wide.Rows[0].Cells, 1)
	})

	t.Run("second header for the same column is counted", func(t *testing.T) {
		b := networkBProfile(t)
		data := "date_local,WSPD_m/s,PM25_ug/m3,PM25--H10_ug/m3\n2023-01-01 00:00,1,2,3\n"
		wide, warn := parseString(t, "ID-7--Cal_HH.csv", data, b)

		assert.Equal(t, 1, warn.DuplicateColumns)
		assert.Equal(t, 1, warn.Total())
		assert.Equal(t, []ColumnKey{{"7", VarPM25}}, wide.Columns)
		assert.Equal(t, "2", wide.Rows[0].Cells[ColumnKey{"7", VarPM25}].Raw)
	})

	t.Run("unparsable timestamps are skipped and counted", func(t *testing.T) {
		data := "timestamp,stationX_PM25\n" +
			"2023-01-01T00:00-03:00,1\n" +
			"yesterday,2\n" +
			",3\n" +
			"2023-01-01T01:00-03:00,4\n"
		wide, warn := parseString(t, "a.csv", data, p)
		assert.Equal(t, 2, warn.SkippedRows)
		assert.Len(t, wide.Rows, 2)
	})

	t.Run("short rows leave cells absent", func(t *testing.T) {
		data := "timestamp,stationX_PM25,stationY_PM25\n" +
			"2023-01-01T00:00-03:00,1\n"
		wide, _ := parseString(t, "a.csv", data, p)
		require.Len(t, wide.Rows, 1)
		assert.Len(t, wide.Rows[0].Cells, 1)
		_, ok := wide.Rows[0].Cells[ColumnKey{testStationY, VarPM25}]
		assert.False(t, ok)
	})

	t.Run("byte order mark on header", func(t *testing.T) {
		data := "\ufefftimestamp,stationX_PM25\n2023-01-01T00:00-03:00,1\n"
		wide, _ := parseString(t, "a.csv", data, p)
		assert.Len(t, wide.Rows, 1)
	})

	t.Run("station from file name", func(t *testing.T) {
		b := networkBProfile(t)
		data := "date_utc,date_local,PM25_ug/m3N,CO_ppb,NO2--H2_ppb\n" +
			"2023-07-01 04:00,2023-07-01 00:00,12,300,7\n"
		wide, _ := parseString(t, "/data/sinca/ID-330020--Cal_HH.csv", data, b)
		require.Len(t, wide.Columns, 3)
		for _, c := range wide.Columns {
			assert.Equal(t, "330020", c.Station)
		}
		assert.Equal(t, "ug/m3N", wide.RawUnits[ColumnKey{"330020", VarPM25}])
		assert.Equal(t, "ppb", wide.RawUnits[ColumnKey{"330020", VarNO2}])
	})
}

func TestParse_Malformed(t *testing.T) {
	p := networkAProfile(t)

	tests := []struct {
		name string
		file string
		data string
		want string
	}{
		{"empty file", "a.csv", "", "empty file"},
		{"no timestamp column", "a.csv", "time,stationX_PM25\n", "timestamp column"},
		{"no known variable", "a.csv", "timestamp,stationX_BENZENE,other\n", "known variable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.data), tt.file, p)
			require.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("file name without station", func(t *testing.T) {
		b := networkBProfile(t)
		_, _, err := Parse(strings.NewReader("date_local,PM25_ppb\n"), "random.csv", b)
		require.ErrorIs(t, err, ErrMalformedInput)
	})
}
