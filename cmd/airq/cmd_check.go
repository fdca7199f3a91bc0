package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/airq-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/airq-etl/internal/domain"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate canonical output files",
	Long: `Validate canonical files: header, UTC timestamps, catalog units, quality
flags, key uniqueness and sort order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	bad := 0
	for _, path := range args {
		table, err := csvfile.Read(path)
		if err != nil {
			bad++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			continue
		}
		issues := domain.Check(table)
		if len(issues) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d rows, %d stations)\n", path, len(table), len(table.Stations()))
			continue
		}
		bad++
		for _, issue := range issues {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, issue)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%w: %d of %d files failed validation", domain.ErrMalformedInput, bad, len(args))
	}
	return nil
}
