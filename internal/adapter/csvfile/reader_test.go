package csvfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_RoundTrip(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatTSV} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.canonical."+format)
			want := sampleTable()
			_, err := NewWriter().Write(want, path, format)
			require.NoError(t, err)

			got, err := Read(path)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Key(), got[i].Key())
				assert.Equal(t, want[i].Missing, got[i].Missing)
				assert.Equal(t, want[i].Value, got[i].Value)
				assert.Equal(t, want[i].QualityFlag, got[i].QualityFlag)
				assert.Equal(t, want[i].Latitude, got[i].Latitude)
			}
			assert.Empty(t, domain.Check(got))
		})
	}
}

func TestDecode_RejectsWrongHeader(t *testing.T) {
	data := "station,timestamp,variable,value,unit,quality_flag,latitude,longitude,elevation\n"
	_, err := Decode(strings.NewReader(data), FormatCSV)
	require.ErrorIs(t, err, domain.ErrMalformedInput)
	assert.ErrorIs(t, err, errHeader)
}

func TestDecode_BadValue(t *testing.T) {
	data := strings.Join(Header, ",") + "\n" +
		"A,2023-01-01T00:00:00Z,PM25,abc,µg/m3,measured,,,\n"
	_, err := Decode(strings.NewReader(data), FormatCSV)
	require.ErrorIs(t, err, domain.ErrMalformedInput)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, domain.ErrIO)
}
