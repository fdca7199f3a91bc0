// Package scheduler re-runs the pipeline over a spool directory on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/airq-etl/internal/pipeline"
)

// Runner plans and executes pipeline jobs.
type Runner interface {
	Jobs(networkID, inputDir, outputDir string) ([]pipeline.Job, error)
	RunBatch(ctx context.Context, jobs []pipeline.Job, workers int) []pipeline.Result
}

// Options configures a Scheduler.
type Options struct {
	Networks  []string
	InputDir  string
	OutputDir string
	Workers   int
}

// Scheduler scans INPUT_DIR/<network>/ on every tick and adapts files that
// are new or modified since their last run.
type Scheduler struct {
	runner Runner
	opts   Options
	logger *slog.Logger
	cron   *cron.Cron

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a Scheduler. Ticks that fire while a scan is still running are skipped.
func New(runner Runner, opts Options, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		runner: runner,
		opts:   opts,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		seen:   map[string]time.Time{},
	}
}

// Start registers the scan under spec, runs one scan immediately, and starts
// the cron loop.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Scan(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.Scan(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", spec, "networks", s.opts.Networks)
	return nil
}

// Stop halts future ticks and returns a context that is done once a scan in
// progress has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Scan runs one pass over every configured network and returns the number of
// files adapted.
func (s *Scheduler) Scan(ctx context.Context) int {
	total := 0
	for _, network := range s.opts.Networks {
		if ctx.Err() != nil {
			break
		}
		total += s.scanNetwork(ctx, network)
	}
	return total
}

func (s *Scheduler) scanNetwork(ctx context.Context, network string) int {
	inputDir := filepath.Join(s.opts.InputDir, network)
	if _, err := os.Stat(inputDir); errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("spool directory missing", "network", network, "dir", inputDir)
		return 0
	}

	jobs, err := s.runner.Jobs(network, inputDir, filepath.Join(s.opts.OutputDir, network))
	if err != nil {
		s.logger.Error("plan scan", "network", network, "error", err)
		return 0
	}

	pending, mtimes := s.pending(jobs)
	if len(pending) == 0 {
		return 0
	}

	failed := 0
	for _, r := range s.runner.RunBatch(ctx, pending, s.opts.Workers) {
		if errors.Is(r.Err, context.Canceled) {
			continue
		}
		if r.Err != nil {
			failed++
		}
		s.markSeen(r.Job.InputPath, mtimes[r.Job.InputPath])
	}
	s.logger.Info("scan complete", "network", network, "files", len(pending), "failed", failed)
	return len(pending)
}

// pending filters jobs to inputs whose mtime differs from the last run.
func (s *Scheduler) pending(jobs []pipeline.Job) ([]pipeline.Job, map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]pipeline.Job, 0, len(jobs))
	mtimes := make(map[string]time.Time, len(jobs))
	for _, job := range jobs {
		info, err := os.Stat(job.InputPath)
		if err != nil {
			continue
		}
		mtime := info.ModTime()
		if prev, ok := s.seen[job.InputPath]; ok && prev.Equal(mtime) {
			continue
		}
		mtimes[job.InputPath] = mtime
		out = append(out, job)
	}
	return out, mtimes
}

func (s *Scheduler) markSeen(path string, mtime time.Time) {
	s.mu.Lock()
	s.seen[path] = mtime
	s.mu.Unlock()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
