package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/airq-etl/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Adapt one input file",
	Long:  `Adapt one wide-format export of the given network and write the canonical table.`,
	RunE:  runRun,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Adapt every file of a network in a directory",
	Long: `Adapt every input file of the given network found in --input-dir. Files are
processed in parallel; each writes <name>.canonical.<format> into --output-dir.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)

	runCmd.Flags().StringP("network", "n", "", "network id (see airq networks)")
	runCmd.Flags().StringP("input", "i", "", "input file")
	runCmd.Flags().StringP("output", "o", "", "output file (default: <input>.canonical.<format> next to the input)")
	runCmd.Flags().String("format", "", "output format: csv or tsv (default $OUTPUT_FORMAT)")
	_ = runCmd.MarkFlagRequired("network")
	_ = runCmd.MarkFlagRequired("input")

	batchCmd.Flags().StringP("network", "n", "", "network id")
	batchCmd.Flags().String("input-dir", "", "directory of input files (default $INPUT_DIR/<network>)")
	batchCmd.Flags().String("output-dir", "", "output directory (default $OUTPUT_DIR/<network>)")
	batchCmd.Flags().String("format", "", "output format: csv or tsv (default $OUTPUT_FORMAT)")
	batchCmd.Flags().IntP("workers", "w", 0, "parallel workers (default $WORKERS)")
	_ = batchCmd.MarkFlagRequired("network")
}

func runRun(cmd *cobra.Command, _ []string) error {
	network, _ := cmd.Flags().GetString("network")
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	p, err := a.pipeline(cmd.Context(), format)
	if err != nil {
		return err
	}

	if output == "" {
		output = pipeline.OutputPath(filepath.Dir(input), input, p.Format())
	}

	report, err := p.Run(cmd.Context(), input, network, output)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	network, _ := cmd.Flags().GetString("network")
	inputDir, _ := cmd.Flags().GetString("input-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	format, _ := cmd.Flags().GetString("format")
	workers, _ := cmd.Flags().GetInt("workers")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if inputDir == "" {
		inputDir = filepath.Join(a.cfg.InputDir, network)
	}
	if outputDir == "" {
		outputDir = filepath.Join(a.cfg.OutputDir, network)
	}
	if workers <= 0 {
		workers = a.cfg.Workers
	}

	p, err := a.pipeline(cmd.Context(), format)
	if err != nil {
		return err
	}

	jobs, err := p.Jobs(network, inputDir, outputDir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no %s input files in %s\n", network, inputDir)
		return nil
	}

	var firstErr error
	failed := 0
	for _, r := range p.RunBatch(cmd.Context(), jobs, workers) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Job.InputPath, r.Err)
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		printReport(cmd.OutOrStdout(), r.Report)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed: %w", failed, len(jobs), firstErr)
	}
	return nil
}

func printReport(w io.Writer, r pipeline.Report) {
	warn := r.Warnings
	fmt.Fprintf(w, "%s -> %s: %d rows (skipped_rows=%d malformed_cells=%d missing_cells=%d duplicate_rows=%d duplicate_columns=%d unknown_stations=%d)\n",
		r.InputPath, r.Result.Path, r.Result.RowsWritten,
		warn.SkippedRows, warn.MalformedCells, warn.MissingCells, warn.DuplicateRows, warn.DuplicateColumns, len(warn.UnknownStations))
	if len(warn.UnknownStations) > 0 {
		fmt.Fprintf(w, "  stations not in directory: %v\n", warn.UnknownStations)
	}
	for _, e := range r.ExportErrors {
		fmt.Fprintf(w, "  export failed: %s\n", e)
	}
}
