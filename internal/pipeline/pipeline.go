package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/observability"
)

// ProfileResolver looks up a network profile by id.
type ProfileResolver interface {
	Resolve(networkID string) (domain.NetworkProfile, error)
}

// StationSource loads an external station directory file.
type StationSource interface {
	Load(path string, cols domain.StationColumns) (domain.StationDirectory, error)
}

// TableWriter serializes a canonical table to a file.
type TableWriter interface {
	Write(table domain.CanonicalTable, path, format string) (domain.WriteResult, error)
}

// Exporter publishes a finished canonical table somewhere other than the
// output file. Export failures never fail a run.
type Exporter interface {
	Name() string
	Export(ctx context.Context, batch domain.ExportBatch) error
}

// Report summarizes one run.
type Report struct {
	RunID        string
	NetworkID    string
	InputPath    string
	Result       domain.WriteResult
	Warnings     domain.Warnings
	StartedAt    time.Time
	Duration     time.Duration
	ExportErrors []string
}

// Pipeline runs input files through the adaptation stages and writes the
// canonical table. Each Run owns its tables; the resolver is the only state
// shared between concurrent runs.
type Pipeline struct {
	resolver  ProfileResolver
	stations  StationSource
	writer    TableWriter
	exporters []Exporter
	format    string
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithStationSource sets the loader used for profiles that reference a station file.
func WithStationSource(s StationSource) Option {
	return func(p *Pipeline) { p.stations = s }
}

// WithExporters adds exporters that receive every successfully written table.
func WithExporters(e ...Exporter) Option {
	return func(p *Pipeline) { p.exporters = append(p.exporters, e...) }
}

// WithFormat sets the output format passed to the writer.
func WithFormat(format string) Option {
	return func(p *Pipeline) { p.format = format }
}

// New creates a Pipeline with the given stages and observability.
func New(resolver ProfileResolver, writer TableWriter, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		writer:   writer,
		format:   "csv",
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the configured output format.
func (p *Pipeline) Format() string {
	return p.format
}

// CheckReadiness returns nil once the pipeline has completed a run,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run adapts one input file of the given network and writes the canonical
// table to outputPath. Configuration errors are returned before the output
// path is touched. Data-quality problems are reported in Report.Warnings.
func (p *Pipeline) Run(ctx context.Context, inputPath, networkID, outputPath string) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		NetworkID: networkID,
		InputPath: inputPath,
		StartedAt: clock.Now(),
	}
	logger := p.logger.With("run_id", report.RunID, "network", networkID, "input", inputPath)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	table, warn, err := p.adapt(inputPath, networkID)
	report.Warnings = warn
	if err != nil {
		p.fail(logger, networkID, err)
		return report, err
	}

	result, err := p.writer.Write(table, outputPath, p.format)
	if err != nil {
		p.fail(logger, networkID, err)
		return report, err
	}
	report.Result = result

	report.ExportErrors = p.export(ctx, logger, domain.ExportBatch{
		RunID:       report.RunID,
		NetworkID:   networkID,
		ProcessedAt: report.StartedAt,
		Table:       table,
	})

	report.Duration = clock.Since(report.StartedAt)
	p.record(networkID, report)
	p.ready.Store(true)

	logger.Info("run complete",
		"output", result.Path,
		"rows", result.RowsWritten,
		"skipped_rows", warn.SkippedRows,
		"malformed_cells", warn.MalformedCells,
		"missing_cells", warn.MissingCells,
		"duplicate_rows", warn.DuplicateRows,
		"duplicate_columns", warn.DuplicateColumns,
		"unknown_stations", len(warn.UnknownStations),
		"duration", report.Duration,
	)
	if len(warn.UnknownStations) > 0 {
		logger.Warn("stations missing from directory", "stations", warn.UnknownStations)
	}
	return report, nil
}

// adapt runs the pure stages: parse, normalize, convert, reshape, join.
func (p *Pipeline) adapt(inputPath, networkID string) (domain.CanonicalTable, domain.Warnings, error) {
	var warn domain.Warnings

	profile, err := p.resolver.Resolve(networkID)
	if err != nil {
		return nil, warn, err
	}
	stations, err := p.stationDirectory(profile)
	if err != nil {
		return nil, warn, err
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, warn, fmt.Errorf("%w: open input: %v", domain.ErrIO, err)
	}
	defer f.Close()

	wide, parseWarn, err := domain.Parse(f, inputPath, profile)
	warn.Merge(parseWarn)
	if err != nil {
		return nil, warn, err
	}

	wide, normWarn := domain.Normalize(wide, profile)
	warn.Merge(normWarn)

	wide, err = domain.ConvertUnits(wide, profile)
	if err != nil {
		return nil, warn, err
	}

	table, unknown := domain.AttachMetadata(domain.ToLong(wide), stations)
	warn.Merge(domain.Warnings{UnknownStations: unknown})
	return table, warn, nil
}

// stationDirectory merges the profile's inline stations with its station
// file, file entries winning.
func (p *Pipeline) stationDirectory(profile domain.NetworkProfile) (domain.StationDirectory, error) {
	if profile.StationsFile == "" {
		return profile.Stations, nil
	}
	if p.stations == nil {
		return nil, fmt.Errorf("network %s references %s but no station loader is configured", profile.NetworkID, profile.StationsFile)
	}
	fromFile, err := p.stations.Load(profile.StationsFile, profile.StationColumns)
	if err != nil {
		return nil, err
	}
	merged := make(domain.StationDirectory, len(profile.Stations)+len(fromFile))
	for id, st := range profile.Stations {
		merged[id] = st
	}
	for id, st := range fromFile {
		merged[id] = st
	}
	return merged, nil
}

func (p *Pipeline) export(ctx context.Context, logger *slog.Logger, batch domain.ExportBatch) []string {
	var errs []string
	for _, e := range p.exporters {
		if err := e.Export(ctx, batch); err != nil {
			logger.Error("export failed", "exporter", e.Name(), "error", err)
			p.metrics.ExportsTotal.WithLabelValues(e.Name(), "error").Inc()
			errs = append(errs, fmt.Sprintf("%s: %v", e.Name(), err))
			continue
		}
		p.metrics.ExportsTotal.WithLabelValues(e.Name(), "success").Inc()
	}
	return errs
}

func (p *Pipeline) record(networkID string, report Report) {
	p.metrics.RunsTotal.WithLabelValues(networkID, "success").Inc()
	p.metrics.ObservationsWritten.WithLabelValues(networkID).Add(float64(report.Result.RowsWritten))
	p.metrics.RunDuration.WithLabelValues(networkID).Observe(report.Duration.Seconds())
	for kind, n := range report.Warnings.Counts() {
		if n > 0 {
			p.metrics.Warnings.WithLabelValues(networkID, kind).Add(float64(n))
		}
	}
}

func (p *Pipeline) fail(logger *slog.Logger, networkID string, err error) {
	outcome := Outcome(err)
	p.metrics.RunsTotal.WithLabelValues(networkID, outcome).Inc()
	logger.Error("run failed", "outcome", outcome, "error", err)
}

// Outcome classifies a run error for metrics and exit codes.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUnknownNetwork),
		errors.Is(err, domain.ErrUnsupportedUnit),
		errors.Is(err, domain.ErrUnsupportedFormat):
		return "config_error"
	case errors.Is(err, domain.ErrMalformedInput):
		return "input_error"
	case errors.Is(err, domain.ErrIO):
		return "io_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
