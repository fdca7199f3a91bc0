package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

// Job is one independent pipeline invocation.
type Job struct {
	InputPath  string
	NetworkID  string
	OutputPath string
}

// Result pairs a job with its outcome.
type Result struct {
	Job    Job
	Report Report
	Err    error
}

// RunBatch runs jobs on up to workers goroutines. Results are returned in
// job order. Cancellation is observed between jobs; a job already running
// completes.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]Result, len(jobs))
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				job := jobs[i]
				report, err := p.Run(ctx, job.InputPath, job.NetworkID, job.OutputPath)
				results[i] = Result{Job: job, Report: report, Err: err}
			}
		}()
	}

	for i := range jobs {
		if ctx.Err() != nil {
			results[i] = Result{Job: jobs[i], Err: ctx.Err()}
			continue
		}
		next <- i
	}
	close(next)
	wg.Wait()

	return results
}

// Discover lists the input files in dir that belong to the profile, sorted
// by name. Subdirectories are not searched.
func Discover(dir string, profile domain.NetworkProfile) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read input dir: %v", domain.ErrIO, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !profile.MatchesFilename(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Jobs builds one job per input file of networkID found in inputDir, each
// writing to outputDir.
func (p *Pipeline) Jobs(networkID, inputDir, outputDir string) ([]Job, error) {
	profile, err := p.resolver.Resolve(networkID)
	if err != nil {
		return nil, err
	}
	inputs, err := Discover(inputDir, profile)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, Job{
			InputPath:  in,
			NetworkID:  profile.NetworkID,
			OutputPath: OutputPath(outputDir, in, p.format),
		})
	}
	return jobs, nil
}

// OutputPath derives the canonical output file name for an input file:
// "<dir>/<base>.canonical.<format>".
func OutputPath(outputDir, inputPath, format string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if format == "" {
		format = "csv"
	}
	return filepath.Join(outputDir, base+".canonical."+format)
}
