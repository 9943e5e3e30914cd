package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arnavshah/precinct-staffing-go/pkg/config"
	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
)

func newProcessCmd(g *globalFlags) *cobra.Command {
	var (
		noBackups      bool
		fuzzyThreshold int
		autoGuess      int
		xlsx           bool
		outputFormat   string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Ingest signups, reconcile the roster and rebuild the assignment grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			e, err := setup(g, func(cfg *config.Config) {
				if noBackups {
					cfg.IncludeBackups = false
				}
				if flags.Changed("fuzzy-threshold") {
					cfg.FuzzyThreshold = fuzzyThreshold
				}
				if flags.Changed("auto-guess-threshold") {
					cfg.AutoGuessThreshold = autoGuess
				}
				if xlsx {
					cfg.XLSXExport = true
				}
				if flags.Changed("output-format") {
					cfg.ReportFormat = outputFormat
				}
			})
			if err != nil {
				return err
			}
			defer e.log.Sync()

			res, err := e.p.Process(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBackups, "no-backups", false, "leave out Backup rows")
	cmd.Flags().IntVar(&fuzzyThreshold, "fuzzy-threshold", 85, "minimum fuzzy score (exclusive) for polling place and address matches")
	cmd.Flags().IntVar(&autoGuess, "auto-guess-threshold", 5, "assignments at one precinct that make an affinity suggestion; 0 disables")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also export the grid as a workbook")
	cmd.Flags().StringVar(&outputFormat, "output-format", "csv", "needs report format: csv or markdown")
	return cmd
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Run %s finished in %s\n", res.RunID, res.Duration)
	fmt.Fprintf(w, "  Signup records:      %d\n", res.SignupRecords)
	fmt.Fprintf(w, "  Duplicates resolved: %d\n", res.DuplicatesResolved)
	fmt.Fprintf(w, "  Volunteers:          %d\n", res.VolunteerCount)
	fmt.Fprintf(w, "  Grid rows:           %d\n", res.AssignmentRows)
	fmt.Fprintf(w, "  Prefilled:           %d\n", res.Prefilled)
	fmt.Fprintf(w, "  Assigned:            %d\n", res.Populate.Assigned)
	fmt.Fprintf(w, "  Fill rate:           %.1f%%\n", res.FillRate)
	fmt.Fprintf(w, "  Fuzzy cache:         %d hits, %d misses\n", res.Cache.Hits, res.Cache.Misses)

	if len(res.Populate.MatchTypes) > 0 {
		fmt.Fprintln(w, "Match types:")
		types := make([]string, 0, len(res.Populate.MatchTypes))
		for mt := range res.Populate.MatchTypes {
			types = append(types, string(mt))
		}
		sort.Strings(types)
		for _, mt := range types {
			fmt.Fprintf(w, "  %-20s %d\n", mt, res.Populate.MatchTypes[models.MatchType(mt)])
		}
	}
	if len(res.Populate.Skipped) > 0 {
		fmt.Fprintln(w, "Skipped signups:")
		reasons := make([]string, 0, len(res.Populate.Skipped))
		for r := range res.Populate.Skipped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-20s %d\n", r, res.Populate.Skipped[r])
		}
	}
	if len(res.Unmatched) > 0 {
		fmt.Fprintln(w, "Top unmatched locations:")
		for _, u := range res.Unmatched {
			fmt.Fprintf(w, "  %4d  %s\n", u.Count, u.Location)
		}
	}
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(w, "Conflicts: %d slot groups had more signups than positions\n", len(res.Conflicts))
	}
	fmt.Fprintln(w, "Outputs:")
	for _, o := range res.Outputs {
		fmt.Fprintf(w, "  %s\n", o)
	}
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Resolve every signup location without writing any output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			res, err := e.p.Validate(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d signups in %d files, %d precincts, %d aliases\n",
				res.Signups, res.Files, res.Precincts, res.Aliases)
			for _, l := range res.Locations {
				target := l.Precinct
				if target == "" {
					target = "-"
				}
				fmt.Fprintf(w, "  %-40s %4d  %-20s %s\n", l.Location, l.Signups, l.MatchType, target)
			}
			if len(res.Unmatched) > 0 {
				fmt.Fprintf(w, "%d locations did not resolve; add aliases for them\n", len(res.Unmatched))
			}
			return nil
		},
	}
}

func newReportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Rewrite the needs and affinity reports from the current grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			res, err := e.p.Report(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "District health:")
			for _, d := range res.Districts {
				fmt.Fprintf(w, "  %-20s %5.1f%%  (%d precincts)\n", d.District, d.AvgHealth, d.PrecinctCount)
			}
			names := make([]string, 0, len(res.Files))
			for name := range res.Files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "Wrote %s: %s\n", name, res.Files[name])
			}
			return nil
		},
	}
}

func newAliasCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage manual location to precinct overrides",
	}

	add := &cobra.Command{
		Use:   "add <location> <precinct>",
		Short: "Map a signup location to a roster precinct such as \"101 - NORTH\"",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			known, err := e.p.KnownPrecinct(args[1])
			if err != nil {
				return err
			}
			if !known {
				return fmt.Errorf("unknown precinct %q", args[1])
			}
			if err := e.p.Aliases.Add(args[0], strings.TrimSpace(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alias saved: %s -> %s\n", args[0], strings.TrimSpace(args[1]))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			aliases, err := e.p.Aliases.Load()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(aliases))
			for k := range aliases {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", k, aliases[k])
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <location>",
		Short: "Delete an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			if err := e.p.Aliases.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alias removed: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func newResolveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <location>",
		Short: "Show which precinct a location resolves to and by which strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			m, mt, err := e.p.Resolve(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if m == nil {
				fmt.Fprintf(w, "%q: %s\n", args[0], mt)
				return nil
			}
			fmt.Fprintf(w, "%q: %s (%s)\n", args[0], m.Display, mt)
			if m.Score > 0 {
				fmt.Fprintf(w, "  score %d, polling place %s, %s\n", m.Score, m.PollingPlace, m.Address)
			}
			return nil
		},
	}
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <volunteer-key>",
		Short: "List a volunteer's assignments in the current grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(g, nil)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			key := strings.ToUpper(strings.TrimSpace(args[0]))
			h, ok, err := e.p.History(key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("volunteer %s is not on the roster", key)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s), %d past signups\n", h.Info.DisplayName(), h.Info.Key, h.Info.PastCount)
			for _, a := range h.Assignments {
				fmt.Fprintf(w, "  %-8s %-18s %-8s %s\n", a.AssignmentType, a.Precinct, a.SlotTime, a.Role)
			}
			fmt.Fprintf(w, "%d assignments across %d precincts\n", h.TotalAssignments, h.UniquePrecincts)
			return nil
		},
	}
}
