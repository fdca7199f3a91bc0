package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/profile"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured network profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return listNetworks(cmd.OutOrStdout(), a.registry)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List canonical variables and their units",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VARIABLE\tUNIT")
		for _, v := range domain.Variables() {
			fmt.Fprintf(tw, "%s\t%s\n", v.Name, v.Unit)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(catalogCmd)
}

func listNetworks(w io.Writer, registry *profile.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NETWORK\tTIMEZONE\tSTATIONS\tVARIABLES")
	for _, id := range registry.Networks() {
		p, err := registry.Resolve(id)
		if err != nil {
			return err
		}
		stations := fmt.Sprint(len(p.Stations))
		if p.StationsFile != "" {
			stations += "+file"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.NetworkID, p.Timezone, stations, describeVariables(p))
	}
	return tw.Flush()
}

func describeVariables(p domain.NetworkProfile) string {
	vars := make([]string, 0, len(p.ColumnMap))
	for v := range p.ColumnMap {
		s := string(v)
		if u := p.Units[v]; u != "" {
			s += "[" + u + "]"
		}
		vars = append(vars, s)
	}
	sort.Strings(vars)
	return strings.Join(vars, " ")
}
