// Package postgres upserts canonical observations into a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	network_id   TEXT             NOT NULL,
	station_id   TEXT             NOT NULL,
	ts           TIMESTAMPTZ      NOT NULL,
	variable     TEXT             NOT NULL,
	value        DOUBLE PRECISION,
	unit         TEXT             NOT NULL,
	quality_flag TEXT             NOT NULL,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	elevation    DOUBLE PRECISION,
	run_id       TEXT             NOT NULL,
	processed_at TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (network_id, station_id, ts, variable)
)`

const upsert = `
INSERT INTO observations (
	network_id, station_id, ts, variable, value, unit, quality_flag,
	latitude, longitude, elevation, run_id, processed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (network_id, station_id, ts, variable) DO UPDATE SET
	value        = EXCLUDED.value,
	unit         = EXCLUDED.unit,
	quality_flag = EXCLUDED.quality_flag,
	latitude     = EXCLUDED.latitude,
	longitude    = EXCLUDED.longitude,
	elevation    = EXCLUDED.elevation,
	run_id       = EXCLUDED.run_id,
	processed_at = EXCLUDED.processed_at`

// Store writes export batches to Postgres. It implements pipeline.Exporter.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// EnsureSchema creates the observations table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Name identifies the exporter in metrics and logs.
func (s *Store) Name() string { return "postgres" }

// Export upserts every observation of the batch in one transaction.
// Re-running a file replaces its rows rather than duplicating them.
func (s *Store) Export(ctx context.Context, batch domain.ExportBatch) (err error) {
	if len(batch.Table) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", describe(err))
	}
	defer stmt.Close()

	for _, o := range batch.Table {
		if _, err = stmt.ExecContext(ctx, args(batch, o)...); err != nil {
			return fmt.Errorf("upsert %s/%s/%s: %w", o.StationID, o.Timestamp.Format("2006-01-02T15:04:05Z"), o.Variable, describe(err))
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("observations upserted", "network", batch.NetworkID, "rows", len(batch.Table))
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func args(batch domain.ExportBatch, o domain.Observation) []any {
	value := sql.NullFloat64{Float64: o.Value, Valid: !o.Missing}
	return []any{
		batch.NetworkID, o.StationID, o.Timestamp.UTC(), string(o.Variable),
		value, o.Unit, string(o.QualityFlag),
		nullable(o.Latitude), nullable(o.Longitude), nullable(o.Elevation),
		batch.RunID, batch.ProcessedAt.UTC(),
	}
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// describe adds the Postgres error code to driver errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (code %s)", err, pqErr.Code)
	}
	return err
}
