// Package domain models air-quality observations from national monitoring
// networks and the pure stages that adapt them to one canonical schema.
//
// # Data Sources
//
// Networks publish "intermediate" wide CSV exports: one row per timestamp and
// one column per station×variable. Each network is described by a
// [NetworkProfile]; the bundled profiles cover SINCA (Chilean air quality)
// and DMC (Chilean meteorological service).
//
// Column headers:
//
//	"<station>_<variable>"          e.g. "330020_PM25"
//	"<station>--<variable>_<unit>"  e.g. "330020--O3_ppb" (unit taken from the header)
//	"<variable>_<unit>"             per-station files, station from the file name
//	                                 e.g. "ID-330020--Cal_HH.csv" with column "PM25_ug/m3N"
//
// The header shape is declared per network as a regular expression with
// named groups station, variable and unit. Unknown columns are ignored.
//
// Time format:
//
//	Declared per network as a Go layout ("2006-01-02 15:04") plus a time
//	zone ("America/Santiago", "UTC-3"). Timestamps carrying an explicit
//	offset keep it. Everything is converted to UTC during normalization.
//
// Missing values:
//
//	Each network lists sentinel tokens ("-999", "NA", ""). A sentinel
//	becomes an explicit missing value. Tokens that are neither a sentinel
//	nor a number also become missing but are counted as malformed.
//
// # Stages
//
//	Parse -> Normalize -> ConvertUnits -> ToLong -> AttachMetadata
//
// Every stage returns a new value and never mutates its input. Row and cell
// level problems are accumulated in [Warnings]; only configuration and I/O
// failures are returned as errors (see [ErrUnsupportedUnit], [ErrMalformedInput]).
//
// # Units
//
// Each canonical [Variable] has exactly one canonical unit. Gas
// concentrations reported by mass (µg/m3, mg/m3) are converted to mixing
// ratios with the molar volume at 25 °C and 1 atm (24.45 L/mol):
//
//	ppb = µg/m3 × 24.45 / M
//
// Temperatures are stored in kelvin, wind speed in m/s, pressure in hPa.
package domain
