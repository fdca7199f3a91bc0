// Command genmock writes a synthetic wide-format export for one network
// profile. Headers are checked against the real parser, so the file adapts
// cleanly with `airq run`. Every 17th cell is a missing sentinel and the
// second timestamp is repeated once at the end to exercise deduplication.
//
// Usage:
//
//	go run ./cmd/genmock -network dmc -stations 3 -hours 48 -out data/in/dmc/dmc_2023.csv
//	go run ./cmd/genmock -network sinca -hours 24 -out data/in/sinca/ID-330020--Cal_HH.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/profile"
)

// typical holds a plausible mean and spread per variable in canonical units.
var typical = map[domain.Variable][2]float64{
	domain.VarPM25:   {25, 12},
	domain.VarPM10:   {55, 20},
	domain.VarO3:     {30, 15},
	domain.VarNO2:    {20, 10},
	domain.VarNO:     {10, 8},
	domain.VarNOX:    {30, 15},
	domain.VarSO2:    {3, 2},
	domain.VarCO:     {0.6, 0.3},
	domain.VarTemp:   {288, 6},
	domain.VarRH:     {60, 20},
	domain.VarWS:     {2.5, 1.5},
	domain.VarWD:     {180, 90},
	domain.VarPress:  {955, 5},
	domain.VarPrecip: {0.2, 0.5},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	network := flag.String("network", "", "network id of a bundled or -profiles profile")
	profilesDir := flag.String("profiles", "", "extra profiles directory")
	stations := flag.Int("stations", 2, "stations to include when headers carry the station id")
	hours := flag.Int("hours", 24, "hourly rows to generate")
	start := flag.String("start", "2023-06-01T00:00", "first timestamp, local to the network")
	seed := flag.Uint64("seed", 1, "random seed")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	if *network == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -network, -out")
	}
	if *hours < 2 || *stations < 1 {
		return fmt.Errorf("-hours must be at least 2 and -stations at least 1")
	}

	registry, err := profile.Load(*profilesDir)
	if err != nil {
		return err
	}
	p, err := registry.Resolve(*network)
	if err != nil {
		return err
	}
	first, err := time.ParseInLocation("2006-01-02T15:04", *start, p.Location())
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	name := filepath.Base(*out)
	ids, err := stationIDs(p, name, *stations)
	if err != nil {
		return err
	}
	cols, err := planColumns(p, name, ids, first)
	if err != nil {
		return err
	}

	rows := generate(p, cols, first, *hours, rand.New(rand.NewPCG(*seed, *seed)))
	if err := writeCSV(*out, p.TimestampColumn, cols, rows); err != nil {
		return err
	}
	log.Printf("%s: %d columns, %d rows -> %s", p.NetworkID, len(cols), len(rows), *out)
	return nil
}

// column is one generated value column.
type column struct {
	header string
	key    domain.ColumnKey
	conv   domain.Conversion // canonical -> raw unit
}

// stationIDs picks the stations to generate: the one named by the output
// file when the profile derives stations from file names, otherwise the
// first n stations of the directory.
func stationIDs(p domain.NetworkProfile, name string, n int) ([]string, error) {
	if id, ok := p.StationFromFilename(name); ok {
		return []string{id}, nil
	}
	ids := make([]string, 0, len(p.Stations))
	for id := range p.Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i := len(ids); i < n; i++ {
		ids = append(ids, fmt.Sprintf("9%05d", i))
	}
	return ids[:n], nil
}

// planColumns finds, for every station and variable, a header the profile's
// parser maps back to that column.
func planColumns(p domain.NetworkProfile, name string, ids []string, ts time.Time) ([]column, error) {
	vars := make([]domain.Variable, 0, len(p.ColumnMap))
	for v := range p.ColumnMap {
		vars = append(vars, v)
	}
	slices.Sort(vars)

	var cols []column
	for _, id := range ids {
		for _, v := range vars {
			unit := p.Units[v]
			if unit == "" {
				info, _ := domain.LookupVariable(v)
				unit = info.Unit
			}
			conv, err := domain.LookupConversion(v, unit)
			if err != nil {
				return nil, err
			}
			key := domain.ColumnKey{Station: id, Variable: v}
			header, ok := findHeader(p, name, key, asciiUnit(unit), ts)
			if !ok {
				return nil, fmt.Errorf("no header layout of %s parses as %s/%s", p.NetworkID, id, v)
			}
			cols = append(cols, column{header: header, key: key, conv: conv.Invert()})
		}
	}
	return cols, nil
}

func findHeader(p domain.NetworkProfile, name string, key domain.ColumnKey, unit string, ts time.Time) (string, bool) {
	raw := p.ColumnMap[key.Variable]
	candidates := []string{
		raw,
		raw + "_" + unit,
		key.Station + "_" + raw,
		key.Station + "_" + raw + "_" + unit,
	}
	for _, h := range candidates {
		data := p.TimestampColumn + "," + h + "\n" + ts.Format(p.TimestampFormat) + ",1\n"
		wide, _, err := domain.Parse(strings.NewReader(data), name, p)
		if err == nil && slices.Contains(wide.Columns, key) {
			return h, true
		}
	}
	return "", false
}

// asciiUnit spells units the way CSV headers usually do.
func asciiUnit(u string) string {
	return strings.NewReplacer("µ", "u", "³", "3").Replace(u)
}

func generate(p domain.NetworkProfile, cols []column, first time.Time, hours int, rng *rand.Rand) [][]string {
	sentinel := "-999"
	for _, s := range p.Sentinels() {
		if s != "" {
			sentinel = s
			break
		}
	}

	rows := make([][]string, 0, hours+1)
	cell := 0
	for h := 0; h < hours; h++ {
		ts := first.Add(time.Duration(h) * time.Hour)
		row := []string{ts.Format(p.TimestampFormat)}
		for _, c := range cols {
			cell++
			if cell%17 == 0 {
				row = append(row, sentinel)
				continue
			}
			row = append(row, strconv.FormatFloat(c.conv.Apply(sample(c.key.Variable, h, rng)), 'f', 2, 64))
		}
		rows = append(rows, row)
	}
	return append(rows, slices.Clone(rows[1]))
}

// sample draws a value with a daily cycle around the variable's typical mean.
func sample(v domain.Variable, hour int, rng *rand.Rand) float64 {
	t := typical[v]
	cycle := math.Sin(2 * math.Pi * float64(hour%24) / 24)
	x := t[0] + 0.5*t[1]*cycle + t[1]*rng.NormFloat64()*0.5
	switch v {
	case domain.VarWD:
		return math.Mod(math.Abs(x), 360)
	case domain.VarRH:
		return math.Min(100, math.Max(0, x))
	case domain.VarTemp:
		return x
	}
	return math.Max(0, x)
}

func writeCSV(path, tsColumn string, cols []column, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{tsColumn}
	for _, c := range cols {
		header = append(header, c.header)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
