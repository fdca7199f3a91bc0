package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Station is one entry of a network's station directory.
type Station struct {
	ID        string  `yaml:"id" validate:"required"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Elevation float64 `yaml:"elevation"`
}

// StationDirectory maps station_id to its static attributes.
type StationDirectory map[string]Station

// Lookup returns the station with the given id.
func (d StationDirectory) Lookup(id string) (Station, bool) {
	s, ok := d[id]
	return s, ok
}

// StationColumns names the columns of an external station directory file.
type StationColumns struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
	Elevation string `yaml:"elevation"`
}

// DefaultStationColumns is used for station files whose profile names no columns.
var DefaultStationColumns = StationColumns{
	ID: "id", Name: "name", Latitude: "latitude", Longitude: "longitude", Elevation: "elevation",
}

// WithDefaults fills unset column names from DefaultStationColumns.
func (c StationColumns) WithDefaults() StationColumns {
	d := DefaultStationColumns
	if c.ID != "" {
		d.ID = c.ID
	}
	if c.Name != "" {
		d.Name = c.Name
	}
	if c.Latitude != "" {
		d.Latitude = c.Latitude
	}
	if c.Longitude != "" {
		d.Longitude = c.Longitude
	}
	if c.Elevation != "" {
		d.Elevation = c.Elevation
	}
	return d
}

// NetworkProfile is the declarative description of one source network.
// Profiles are built once by the profile registry and never mutated.
type NetworkProfile struct {
	NetworkID        string
	Description      string
	ColumnMap        map[Variable]string
	Units            map[Variable]string
	MissingSentinels map[string]struct{}
	TimestampColumn  string
	TimestampFormat  string
	Timezone         string
	LenientNumbers   bool
	Stations         StationDirectory
	// StationsFile, when set, is a CSV station directory merged over Stations
	// at run time.
	StationsFile   string
	StationColumns StationColumns

	location    *time.Location
	columnRe    *regexp.Regexp
	filenameRe  *regexp.Regexp
	rawToCanon  map[string]Variable
	sentinelSet []string
}

// ProfileSpec carries the raw declarative fields a NetworkProfile is compiled from.
type ProfileSpec struct {
	NetworkID        string
	Description      string
	ColumnMap        map[Variable]string
	Units            map[Variable]string
	MissingSentinels []string
	TimestampColumn  string
	TimestampFormat  string
	Timezone         string
	ColumnPattern    string
	FilenamePattern  string
	LenientNumbers   bool
	Stations         StationDirectory
	StationsFile     string
	StationColumns   StationColumns
}

// NewNetworkProfile compiles a ProfileSpec: the timezone is loaded, the
// column and filename patterns are compiled, and every mapped variable is
// checked against the canonical catalog.
func NewNetworkProfile(spec ProfileSpec) (NetworkProfile, error) {
	if spec.NetworkID == "" {
		return NetworkProfile{}, fmt.Errorf("profile: network_id is required")
	}
	loc, err := LoadTimezone(spec.Timezone)
	if err != nil {
		return NetworkProfile{}, fmt.Errorf("profile %s: %w", spec.NetworkID, err)
	}

	columnRe, err := regexp.Compile(spec.ColumnPattern)
	if err != nil {
		return NetworkProfile{}, fmt.Errorf("profile %s: column_pattern: %w", spec.NetworkID, err)
	}
	if columnRe.SubexpIndex("variable") < 0 {
		return NetworkProfile{}, fmt.Errorf("profile %s: column_pattern needs a (?P<variable>...) group", spec.NetworkID)
	}

	var filenameRe *regexp.Regexp
	if spec.FilenamePattern != "" {
		filenameRe, err = regexp.Compile(spec.FilenamePattern)
		if err != nil {
			return NetworkProfile{}, fmt.Errorf("profile %s: filename_pattern: %w", spec.NetworkID, err)
		}
		if filenameRe.SubexpIndex("station") < 0 {
			return NetworkProfile{}, fmt.Errorf("profile %s: filename_pattern needs a (?P<station>...) group", spec.NetworkID)
		}
	}
	if columnRe.SubexpIndex("station") < 0 && filenameRe == nil {
		return NetworkProfile{}, fmt.Errorf("profile %s: station identity needs a station group in column_pattern or a filename_pattern", spec.NetworkID)
	}

	rawToCanon := make(map[string]Variable, len(spec.ColumnMap))
	for v, raw := range spec.ColumnMap {
		if _, ok := LookupVariable(v); !ok {
			return NetworkProfile{}, fmt.Errorf("profile %s: variable %q is not in the canonical catalog", spec.NetworkID, v)
		}
		if raw == "" {
			return NetworkProfile{}, fmt.Errorf("profile %s: empty raw column for %s", spec.NetworkID, v)
		}
		rawToCanon[raw] = v
	}

	sentinels := make(map[string]struct{}, len(spec.MissingSentinels))
	for _, s := range spec.MissingSentinels {
		sentinels[strings.TrimSpace(s)] = struct{}{}
	}
	sentinelList := make([]string, 0, len(sentinels))
	for s := range sentinels {
		sentinelList = append(sentinelList, s)
	}
	sort.Strings(sentinelList)

	layout := spec.TimestampFormat
	if layout == "" || strings.EqualFold(layout, "RFC3339") {
		layout = time.RFC3339
	}

	return NetworkProfile{
		NetworkID:        spec.NetworkID,
		Description:      spec.Description,
		ColumnMap:        copyMap(spec.ColumnMap),
		Units:            copyMap(spec.Units),
		MissingSentinels: sentinels,
		TimestampColumn:  spec.TimestampColumn,
		TimestampFormat:  layout,
		Timezone:         spec.Timezone,
		LenientNumbers:   spec.LenientNumbers,
		Stations:         spec.Stations,
		StationsFile:     spec.StationsFile,
		StationColumns:   spec.StationColumns.WithDefaults(),
		location:         loc,
		columnRe:         columnRe,
		filenameRe:       filenameRe,
		rawToCanon:       rawToCanon,
		sentinelSet:      sentinelList,
	}, nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Location returns the profile's time zone.
func (p NetworkProfile) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// IsMissing reports whether a trimmed raw token is one of the network's sentinels.
func (p NetworkProfile) IsMissing(token string) bool {
	_, ok := p.MissingSentinels[token]
	return ok
}

// Sentinels returns the missing-value tokens in sorted order.
func (p NetworkProfile) Sentinels() []string {
	return append([]string(nil), p.sentinelSet...)
}

// ColumnKey is the (station, variable) identity of one wide-table column.
type ColumnKey struct {
	Station  string
	Variable Variable
}

// matchColumn maps a header to a column key. defaultStation is used when the
// column pattern has no station group. The returned unit is the one embedded
// in the header, if any.
func (p NetworkProfile) matchColumn(header, defaultStation string) (ColumnKey, string, bool) {
	m := p.columnRe.FindStringSubmatch(header)
	if m == nil {
		return ColumnKey{}, "", false
	}
	raw := m[p.columnRe.SubexpIndex("variable")]
	v, ok := p.rawToCanon[raw]
	if !ok {
		return ColumnKey{}, "", false
	}
	station := defaultStation
	if i := p.columnRe.SubexpIndex("station"); i >= 0 {
		station = m[i]
	}
	if station == "" {
		return ColumnKey{}, "", false
	}
	var unit string
	if i := p.columnRe.SubexpIndex("unit"); i >= 0 {
		unit = m[i]
	}
	return ColumnKey{Station: station, Variable: v}, unit, true
}

// StationFromFilename extracts a station id from a file base name using the
// profile's filename pattern.
func (p NetworkProfile) StationFromFilename(name string) (string, bool) {
	if p.filenameRe == nil {
		return "", false
	}
	m := p.filenameRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	id := m[p.filenameRe.SubexpIndex("station")]
	return id, id != ""
}

// MatchesFilename reports whether name belongs to this network. Profiles
// without a filename pattern accept every .csv file.
func (p NetworkProfile) MatchesFilename(name string) bool {
	if p.filenameRe == nil {
		return strings.HasSuffix(strings.ToLower(name), ".csv")
	}
	return p.filenameRe.MatchString(name)
}

// WithStations returns a copy of p using the given station directory.
func (p NetworkProfile) WithStations(d StationDirectory) NetworkProfile {
	p.Stations = d
	return p
}

// LoadTimezone accepts an IANA name, "UTC", "UTC-3", "UTC+05:30" or a bare
// "-03:00" offset. Fixed offsets have no daylight-saving rules.
func LoadTimezone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "UTC") || tz == "Z" {
		return time.UTC, nil
	}
	offset := tz
	if len(tz) > 3 && strings.EqualFold(tz[:3], "UTC") {
		offset = tz[3:]
	}
	if offset != "" && (offset[0] == '+' || offset[0] == '-') {
		secs, err := parseOffset(offset)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
		return time.FixedZone(tz, secs), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return loc, nil
}

func parseOffset(s string) (int, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	s = s[1:]
	hh, mm := s, "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	} else if len(s) == 4 {
		hh, mm = s[:2], s[2:]
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 14 {
		return 0, fmt.Errorf("bad offset hours %q", hh)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad offset minutes %q", mm)
	}
	return sign * (h*3600 + m*60), nil
}
