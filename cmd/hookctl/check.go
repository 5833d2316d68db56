package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/pkg/types"
)

var (
	checkFormat  string
	checkAll     bool
	checkOutput  string
	checkSummary bool
)

var errCheckFailed = errors.New("consistency check found errors")

var checkCmd = &cobra.Command{
	Use:   "check [type...]",
	Short: "Check the lists and relations of the host's hdata types",
	Long: `Walks every list of the given hdata types (the materialized ones by
default) and reports all issues found:
  - Lists that loop back on themselves or exceed the walk limit
  - prev/next links that disagree
  - List tails with a next object
  - Relation fields pointing at objects no longer in any checked list

Types without lists (lines, for instance) are checked through the
relations that reach them.`,
	Example: `  # Check the types the host has looked up so far
  hookctl check

  # Check every type an hdata hook provides
  hookctl check --all

  # Compact format for grep
  hookctl check --format compact buffer window

  # Save a JSON report to a file
  hookctl check --all --json --output report.json`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text",
		"Output format: text, json, compact (text=human-readable, json=structured, compact=one-line-per-issue)")
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Materialize every hdata type before checking")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Write report to file instead of stdout")
	checkCmd.Flags().BoolVarP(&checkSummary, "summary", "s", false, "Show only summary (no detailed diagnostics)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format := checkFormat
	if jsonOut {
		format = "json"
	}

	return withHost(cmd, func(c *host.Context) error {
		if checkAll {
			materializeAll(c)
		}
		report := c.Walker().Verify(args...)

		var output string
		switch format {
		case "json":
			s, err := report.FormatJSON()
			if err != nil {
				return fmt.Errorf("failed to format JSON: %w", err)
			}
			output = s + "\n"
		case "compact":
			output = report.FormatTextCompact()
		case "text":
			if checkSummary {
				output = formatSummaryOnly(report)
			} else {
				output = report.FormatText()
			}
		default:
			return fmt.Errorf("unknown format: %s (use: text, json, compact)", format)
		}

		if checkOutput != "" {
			if err := os.WriteFile(checkOutput, []byte(output), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			printVerbose(cmd, "Report written to: %s\n", checkOutput)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), output)
		}

		if report.HasErrors() {
			return fmt.Errorf("%w: %d critical, %d errors",
				errCheckFailed, report.Summary.Critical, report.Summary.Errors)
		}
		return nil
	})
}

// formatSummaryOnly renders the counts of a report without its diagnostics.
func formatSummaryOnly(r *types.DiagnosticReport) string {
	status := "✓ consistent"
	switch {
	case r.HasCriticalIssues():
		status = "✗ critical issues"
	case r.HasErrors():
		status = "✗ errors"
	case r.HasAnyIssues():
		status = "⚠ warnings"
	}
	return fmt.Sprintf("%d types, %d lists, %d objects in %v\nCritical: %d  Errors: %d  Warnings: %d  Info: %d\nResult: %s\n",
		r.Types, r.Lists, r.Objects, r.ScanTime,
		r.Summary.Critical, r.Summary.Errors, r.Summary.Warnings, r.Summary.Info,
		status)
}
