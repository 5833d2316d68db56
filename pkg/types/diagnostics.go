package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Diagnostic System
// -----------------------------------------------------------------------------
//
// A consistency check walks every described list and relation of the host
// and collects ALL issues found, not just the first one. Reports render as
// text, one line per issue, or JSON.

// Severity classifies how serious a diagnostic issue is
type Severity int

const (
	SevInfo     Severity = iota // Informational (unusual but valid)
	SevWarning                  // Inconsistent but still walkable
	SevError                    // Objects unreachable or reached twice
	SevCritical                 // A list cannot be walked at all
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity by name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DiagCategory classifies the type of issue found
type DiagCategory int

const (
	DiagStructure   DiagCategory = iota // list shape: cycles, length, tails
	DiagLink                            // prev/next links disagree
	DiagRelation                        // pointer field to an object that is gone
	DiagPerformance                     // long lists (info only)
)

func (c DiagCategory) String() string {
	switch c {
	case DiagStructure:
		return "STRUCTURE"
	case DiagLink:
		return "LINK"
	case DiagRelation:
		return "RELATION"
	case DiagPerformance:
		return "PERFORMANCE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the category by name in JSON reports.
func (c DiagCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Diagnostic represents a single issue found in a described structure
type Diagnostic struct {
	// Classification
	Severity Severity     `json:"severity"`
	Category DiagCategory `json:"category"`

	// Location
	Type   string `json:"type"`             // hdata type name
	List   string `json:"list,omitempty"`   // list being walked
	Field  string `json:"field,omitempty"`  // field holding the bad pointer
	Object string `json:"object,omitempty"` // address of the object

	// Description
	Issue    string `json:"issue"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
}

// where renders the location of d as type[:list][.field][@object].
func (d Diagnostic) where() string {
	var b strings.Builder
	b.WriteString(d.Type)
	if d.List != "" {
		b.WriteString(":" + d.List)
	}
	if d.Field != "" {
		b.WriteString("." + d.Field)
	}
	if d.Object != "" {
		b.WriteString("@" + d.Object)
	}
	return b.String()
}

// DiagnosticReport collects all diagnostics found during a check
type DiagnosticReport struct {
	// Metadata
	ScanTime time.Duration `json:"scan_time"`
	Types    int           `json:"types"`
	Lists    int           `json:"lists"`
	Objects  int           `json:"objects"`

	// Issues
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Summary statistics
	Summary DiagSummary `json:"summary"`

	// Pre-computed groupings for efficient querying
	BySeverity map[Severity][]Diagnostic `json:"-"`
	ByType     map[string][]Diagnostic   `json:"-"`
}

// DiagSummary provides quick statistics
type DiagSummary struct {
	Critical int `json:"critical"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{
		Diagnostics: []Diagnostic{},
		BySeverity:  make(map[Severity][]Diagnostic),
		ByType:      make(map[string][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates indices
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)

	switch d.Severity {
	case SevCritical:
		r.Summary.Critical++
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}

	r.BySeverity[d.Severity] = append(r.BySeverity[d.Severity], d)
	r.ByType[d.Type] = append(r.ByType[d.Type], d)
}

// Finalize sorts diagnostics by location for stable output
func (r *DiagnosticReport) Finalize() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		return r.Diagnostics[i].where() < r.Diagnostics[j].where()
	})
}

// HasCriticalIssues returns true if any critical issues were found
func (r *DiagnosticReport) HasCriticalIssues() bool {
	return r.Summary.Critical > 0
}

// HasErrors returns true if any errors or critical issues were found
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

// HasAnyIssues returns true if any issues were found (including warnings and info)
func (r *DiagnosticReport) HasAnyIssues() bool {
	return len(r.Diagnostics) > 0
}

// -----------------------------------------------------------------------------
// Output Formatters
// -----------------------------------------------------------------------------

// FormatJSON returns the report as formatted JSON (2-space indentation)
func (r *DiagnosticReport) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatText returns a human-readable text report
func (r *DiagnosticReport) FormatText() string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 79) + "\n")
	b.WriteString("hdata Consistency Report\n")
	b.WriteString(strings.Repeat("=", 79) + "\n\n")

	fmt.Fprintf(&b, "Types:     %d\n", r.Types)
	fmt.Fprintf(&b, "Lists:     %d\n", r.Lists)
	fmt.Fprintf(&b, "Objects:   %d\n", r.Objects)
	fmt.Fprintf(&b, "Scan time: %v\n\n", r.ScanTime)

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	fmt.Fprintf(&b, "  Critical: %d\n", r.Summary.Critical)
	fmt.Fprintf(&b, "  Errors:   %d\n", r.Summary.Errors)
	fmt.Fprintf(&b, "  Warnings: %d\n", r.Summary.Warnings)
	fmt.Fprintf(&b, "  Info:     %d\n\n", r.Summary.Info)

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	b.WriteString("DIAGNOSTICS\n")
	b.WriteString(strings.Repeat("-", 79) + "\n\n")

	for _, severity := range []Severity{SevCritical, SevError, SevWarning, SevInfo} {
		diags := r.BySeverity[severity]
		if len(diags) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s (%d)\n", severity, len(diags))
		b.WriteString(strings.Repeat("~", 79) + "\n")

		for i, d := range diags {
			fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, d.Category, d.where())
			fmt.Fprintf(&b, "   %s\n", d.Issue)
			if d.Expected != nil {
				fmt.Fprintf(&b, "   Expected: %v\n", d.Expected)
			}
			if d.Actual != nil {
				fmt.Fprintf(&b, "   Actual:   %v\n", d.Actual)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatTextCompact returns a compact one-line-per-issue text format
func (r *DiagnosticReport) FormatTextCompact() string {
	var b strings.Builder

	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "%s [%s/%s] %s\n", d.where(), d.Severity, d.Category, d.Issue)
	}

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}
