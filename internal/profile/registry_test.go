package profile

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customProfile = `
network_id: sinca
timestamp_column: fecha
timezone: UTC-4
column_pattern: '^(?P<station>\d+)_(?P<variable>\w+)$'
missing_sentinels: ["-1"]
variables:
  pm25: {column: MP25, unit: ug/m3}
stations_file: stations.csv
station_columns: {id: codigo}
`

func TestBundledProfiles(t *testing.T) {
	profiles, err := Bundled()
	require.NoError(t, err)

	reg := New(profiles...)
	assert.Equal(t, []string{"dmc", "sinca"}, reg.Networks())

	sinca, err := reg.Resolve("SINCA")
	require.NoError(t, err)
	assert.Equal(t, "date_utc", sinca.TimestampColumn)
	assert.Equal(t, "PM25", sinca.ColumnMap[domain.VarPM25])
	assert.True(t, sinca.IsMissing("-999"))
	assert.True(t, sinca.LenientNumbers)
	assert.Equal(t, "ID-Stored", sinca.StationColumns.ID)
	id, ok := sinca.StationFromFilename("ID-330020--Cal_HH.csv")
	assert.True(t, ok)
	assert.Equal(t, "330020", id)
	st, ok := sinca.Stations.Lookup("330020")
	require.True(t, ok)
	assert.Equal(t, "Parque O'Higgins", st.Name)

	dmc, err := reg.Resolve("dmc")
	require.NoError(t, err)
	assert.Equal(t, "America/Santiago", dmc.Location().String())
	assert.Equal(t, "kt", dmc.Units[domain.VarWS])
	for v, unit := range dmc.Units {
		_, err := domain.LookupConversion(v, unit)
		assert.NoError(t, err, "dmc %s", v)
	}
}

func TestResolve_UnknownNetwork(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	_, err = reg.Resolve("aqs")
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)
	assert.Contains(t, err.Error(), "dmc, sinca")
}

func TestLoad_DirectoryOverridesBundled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sinca.yaml"), []byte(customProfile), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))

	reg, err := Load(dir)
	require.NoError(t, err)

	p, err := reg.Resolve("sinca")
	require.NoError(t, err)
	assert.Equal(t, "fecha", p.TimestampColumn)
	assert.Equal(t, "MP25", p.ColumnMap[domain.VarPM25])
	assert.Equal(t, filepath.Join(dir, "stations.csv"), p.StationsFile)
	assert.Equal(t, "codigo", p.StationColumns.ID)
	assert.Equal(t, "latitude", p.StationColumns.Latitude)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestDecode_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not yaml", "network_id: [", "decode profile"},
		{"missing network id", "timestamp_column: t\ncolumn_pattern: x\nvariables: {PM25: {column: a}}\n", "NetworkID"},
		{"no variables", "network_id: x\ntimestamp_column: t\ncolumn_pattern: '(?P<station>a)(?P<variable>b)'\n", "Variables"},
		{"variable without column", "network_id: x\ntimestamp_column: t\ncolumn_pattern: '(?P<station>a)(?P<variable>b)'\nvariables: {PM25: {unit: ppb}}\n", "Column"},
		{"latitude out of range", "network_id: x\ntimestamp_column: t\ncolumn_pattern: '(?P<station>a)(?P<variable>b)'\nvariables: {PM25: {column: a}}\nstations: [{id: s, latitude: 95}]\n", "Latitude"},
		{"duplicate station", "network_id: x\ntimestamp_column: t\ncolumn_pattern: '(?P<station>a)(?P<variable>b)'\nvariables: {PM25: {column: a}}\nstations: [{id: s}, {id: s}]\n", "duplicate station"},
		{"unknown variable", "network_id: x\ntimestamp_column: t\ncolumn_pattern: '(?P<station>a)(?P<variable>b)'\nvariables: {BENZENE: {column: a}}\n", "catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{"sinca", "dmc"} {
				_, err := reg.Resolve(id)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestBundledSinca_MicroSignUnits(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)
	sinca, err := reg.Resolve("sinca")
	require.NoError(t, err)

	pm := domain.ColumnKey{Station: "330020", Variable: domain.VarPM25}
	for _, unit := range []string{"ug/m3", "µg/m3", "μg/m³", "ug/m3N", "µg/m³N"} {
		t.Run(unit, func(t *testing.T) {
			data := "date_utc,PM25_" + unit + ",O3_ppb\n2023-06-01 03:00:00,12.5,20\n"
			wide, warn, err := domain.Parse(strings.NewReader(data), "ID-330020--Cal_HH.csv", sinca)
			require.NoError(t, err)
			assert.Equal(t, 0, warn.Total())
			assert.Equal(t, []domain.ColumnKey{
				{Station: "330020", Variable: domain.VarO3},
				pm,
			}, wide.Columns)
			assert.Equal(t, unit, wide.RawUnits[pm])

			norm, _ := domain.Normalize(wide, sinca)
			conv, err := domain.ConvertUnits(norm, sinca)
			require.NoError(t, err)
			assert.Equal(t, 12.5, conv.Rows[0].Cells[pm].Value)
		})
	}
}
