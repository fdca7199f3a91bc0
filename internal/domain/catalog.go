package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Variable is a canonical variable name understood by the downstream framework.
type Variable string

const (
	VarPM25   Variable = "PM25"
	VarPM10   Variable = "PM10"
	VarO3     Variable = "O3"
	VarNO2    Variable = "NO2"
	VarNO     Variable = "NO"
	VarNOX    Variable = "NOX"
	VarSO2    Variable = "SO2"
	VarCO     Variable = "CO"
	VarTemp   Variable = "TEMP"
	VarRH     Variable = "RH"
	VarWS     Variable = "WS"
	VarWD     Variable = "WD"
	VarPress  Variable = "PRESS"
	VarPrecip Variable = "PRECIP"
)

// Canonical units. Raw unit spellings are folded onto these by CanonicalUnitName.
const (
	UnitUGM3    = "µg/m3"
	UnitMGM3    = "mg/m3"
	UnitPPB     = "ppb"
	UnitPPM     = "ppm"
	UnitKelvin  = "K"
	UnitCelsius = "°C"
	UnitFahr    = "°F"
	UnitPercent = "%"
	UnitMS      = "m/s"
	UnitKMH     = "km/h"
	UnitKnot    = "kt"
	UnitDeg     = "deg"
	UnitHPa     = "hPa"
	UnitKPa     = "kPa"
	UnitPa      = "Pa"
	UnitMM      = "mm"
	UnitFrac    = "1"
)

// VariableInfo describes one catalog entry.
type VariableInfo struct {
	Name      Variable
	Unit      string
	MolarMass float64 // g/mol, zero for non-gases
}

var catalog = map[Variable]VariableInfo{
	VarPM25:   {Name: VarPM25, Unit: UnitUGM3},
	VarPM10:   {Name: VarPM10, Unit: UnitUGM3},
	VarO3:     {Name: VarO3, Unit: UnitPPB, MolarMass: 48.00},
	VarNO2:    {Name: VarNO2, Unit: UnitPPB, MolarMass: 46.01},
	VarNO:     {Name: VarNO, Unit: UnitPPB, MolarMass: 30.01},
	VarNOX:    {Name: VarNOX, Unit: UnitPPB, MolarMass: 46.01}, // reported as NO2
	VarSO2:    {Name: VarSO2, Unit: UnitPPB, MolarMass: 64.07},
	VarCO:     {Name: VarCO, Unit: UnitPPM, MolarMass: 28.01},
	VarTemp:   {Name: VarTemp, Unit: UnitKelvin},
	VarRH:     {Name: VarRH, Unit: UnitPercent},
	VarWS:     {Name: VarWS, Unit: UnitMS},
	VarWD:     {Name: VarWD, Unit: UnitDeg},
	VarPress:  {Name: VarPress, Unit: UnitHPa},
	VarPrecip: {Name: VarPrecip, Unit: UnitMM},
}

// LookupVariable returns the catalog entry for v.
func LookupVariable(v Variable) (VariableInfo, bool) {
	info, ok := catalog[v]
	return info, ok
}

// Variables returns the catalog in name order.
func Variables() []VariableInfo {
	out := make([]VariableInfo, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsCanonicalUnit reports whether u is the canonical unit of some catalog variable.
func IsCanonicalUnit(u string) bool {
	for _, info := range catalog {
		if info.Unit == u {
			return true
		}
	}
	return false
}

var unitAliases = map[string]string{
	"µg/m3": UnitUGM3, "µg/m³": UnitUGM3, "μg/m3": UnitUGM3, "μg/m³": UnitUGM3,
	"ug/m3": UnitUGM3, "ug/m³": UnitUGM3, "ug/m^3": UnitUGM3, "ugm3": UnitUGM3,
	"ug/m3n": UnitUGM3, "µg/m3n": UnitUGM3, "μg/m3n": UnitUGM3, "µg/m³n": UnitUGM3, "μg/m³n": UnitUGM3,
	"mg/m3": UnitMGM3, "mg/m³": UnitMGM3, "mg/m^3": UnitMGM3,
	"ppb": UnitPPB, "ppbv": UnitPPB,
	"ppm": UnitPPM, "ppmv": UnitPPM,
	"k": UnitKelvin, "kelvin": UnitKelvin,
	"°c": UnitCelsius, "ºc": UnitCelsius, "degc": UnitCelsius, "c": UnitCelsius, "celsius": UnitCelsius,
	"°f": UnitFahr, "degf": UnitFahr, "f": UnitFahr,
	"%": UnitPercent, "percent": UnitPercent,
	"m/s": UnitMS, "ms": UnitMS, "m s-1": UnitMS,
	"km/h": UnitKMH, "kmh": UnitKMH, "kph": UnitKMH,
	"kt": UnitKnot, "kts": UnitKnot, "knots": UnitKnot,
	"deg": UnitDeg, "°": UnitDeg, "degrees": UnitDeg,
	"hpa": UnitHPa, "mbar": UnitHPa, "mb": UnitHPa,
	"kpa": UnitKPa,
	"pa": UnitPa,
	"mm": UnitMM,
	"1": UnitFrac, "fraction": UnitFrac,
}

// CanonicalUnitName folds a raw unit spelling onto its canonical form. The
// second return is false for spellings the catalog does not know.
func CanonicalUnitName(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	u, ok := unitAliases[key]
	return u, ok
}

// Conversion is a linear rewrite value*Factor + Offset.
type Conversion struct {
	Factor float64
	Offset float64
}

var identity = Conversion{Factor: 1}

// Apply converts v.
func (c Conversion) Apply(v float64) float64 {
	return v*c.Factor + c.Offset
}

// Invert returns the conversion that undoes c.
func (c Conversion) Invert() Conversion {
	return Conversion{Factor: 1 / c.Factor, Offset: -c.Offset / c.Factor}
}

// molarVolume is litres per mole of ideal gas at 25 °C and 1 atm.
const molarVolume = 24.45

type unitPair struct{ from, to string }

var fixedConversions = map[unitPair]Conversion{
	{UnitPPM, UnitPPB}:        {Factor: 1000},
	{UnitPPB, UnitPPM}:        {Factor: 0.001},
	{UnitMGM3, UnitUGM3}:      {Factor: 1000},
	{UnitUGM3, UnitMGM3}:      {Factor: 0.001},
	{UnitCelsius, UnitKelvin}: {Factor: 1, Offset: 273.15},
	{UnitFahr, UnitKelvin}:    {Factor: 5.0 / 9.0, Offset: 273.15 - 32*5.0/9.0},
	{UnitKMH, UnitMS}:         {Factor: 1 / 3.6},
	{UnitKnot, UnitMS}:        {Factor: 1852.0 / 3600.0},
	{UnitKPa, UnitHPa}:        {Factor: 10},
	{UnitPa, UnitHPa}:         {Factor: 0.01},
	{UnitFrac, UnitPercent}:   {Factor: 100},
}

// LookupConversion resolves the conversion from a raw unit to the canonical
// unit of v. Mass-concentration to mixing-ratio conversions use the
// variable's molar mass.
func LookupConversion(v Variable, rawUnit string) (Conversion, error) {
	info, ok := catalog[v]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: variable %q is not in the catalog", ErrUnsupportedUnit, v)
	}
	from, ok := CanonicalUnitName(rawUnit)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %q for %s", ErrUnsupportedUnit, rawUnit, v)
	}
	if from == info.Unit {
		return identity, nil
	}
	if c, ok := fixedConversions[unitPair{from, info.Unit}]; ok {
		return c, nil
	}
	if info.MolarMass > 0 {
		if c, ok := molarConversion(from, info.Unit, info.MolarMass); ok {
			return c, nil
		}
	}
	return Conversion{}, fmt.Errorf("%w: no conversion from %q to %q for %s", ErrUnsupportedUnit, rawUnit, info.Unit, v)
}

// molarConversion covers µg/m3 and mg/m3 against ppb and ppm for a gas of the
// given molar mass (g/mol). ppb = µg/m3 * molarVolume / M.
func molarConversion(from, to string, molarMass float64) (Conversion, bool) {
	massScale := map[string]float64{UnitUGM3: 1, UnitMGM3: 1000} // to µg/m3
	ratioScale := map[string]float64{UnitPPB: 1, UnitPPM: 1000}  // to ppb

	if m, ok := massScale[from]; ok {
		if r, ok := ratioScale[to]; ok {
			return Conversion{Factor: m * molarVolume / molarMass / r}, true
		}
	}
	if r, ok := ratioScale[from]; ok {
		if m, ok := massScale[to]; ok {
			return Conversion{Factor: r * molarMass / molarVolume / m}, true
		}
	}
	return Conversion{}, false
}
