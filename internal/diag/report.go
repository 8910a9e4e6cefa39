package diag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report collects all diagnostics found while walking one stream.
type Report struct {
	// Metadata
	Stream     string        `json:"stream,omitempty"`
	StreamSize int64         `json:"stream_size"`
	ScanTime   time.Duration `json:"scan_time"`

	// Issues
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Summary statistics
	Summary Summary `json:"summary"`

	BySeverity  map[Severity][]Diagnostic `json:"-"`
	ByStructure map[string][]Diagnostic   `json:"-"`
	ByOffset    []Diagnostic              `json:"-"` // sorted by offset
}

// Summary provides quick statistics.
type Summary struct {
	Critical int `json:"critical"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewReport creates an empty report for the named stream.
func NewReport(stream string) *Report {
	return &Report{
		Stream:      stream,
		BySeverity:  make(map[Severity][]Diagnostic),
		ByStructure: make(map[string][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates indices.
func (r *Report) Add(d Diagnostic) {
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
	r.ByStructure[d.Structure] = append(r.ByStructure[d.Structure], d)
}

// Finalize sorts diagnostics by offset and prepares for output.
func (r *Report) Finalize() {
	r.ByOffset = make([]Diagnostic, len(r.Diagnostics))
	copy(r.ByOffset, r.Diagnostics)
	sort.SliceStable(r.ByOffset, func(i, j int) bool {
		return r.ByOffset[i].Offset < r.ByOffset[j].Offset
	})
}

// HasCriticalIssues returns true if any critical issues were found.
func (r *Report) HasCriticalIssues() bool {
	return r.Summary.Critical > 0
}

// HasErrors returns true if any errors or critical issues were found.
func (r *Report) HasErrors() bool {
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

// HasAnyIssues returns true if any issues were found (including warnings and info).
func (r *Report) HasAnyIssues() bool {
	return len(r.Diagnostics) > 0
}

// FormatJSON returns the report as formatted JSON (2-space indentation).
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatText returns a human-readable text report.
func (r *Report) FormatText() string {
	var b strings.Builder
	p := message.NewPrinter(language.English)

	b.WriteString(strings.Repeat("=", 79) + "\n")
	b.WriteString("Opaque Chunk Diagnostic Report\n")
	b.WriteString(strings.Repeat("=", 79) + "\n\n")

	if r.Stream != "" {
		b.WriteString(fmt.Sprintf("Stream:    %s\n", r.Stream))
	}
	b.WriteString(p.Sprintf("Size:      %d bytes\n", r.StreamSize))
	b.WriteString(fmt.Sprintf("Scan time: %v\n\n", r.ScanTime))

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	b.WriteString(p.Sprintf("  Critical: %d\n", r.Summary.Critical))
	b.WriteString(p.Sprintf("  Errors:   %d\n", r.Summary.Errors))
	b.WriteString(p.Sprintf("  Warnings: %d\n", r.Summary.Warnings))
	b.WriteString(p.Sprintf("  Info:     %d\n\n", r.Summary.Info))

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

		b.WriteString(fmt.Sprintf("%s (%d)\n", severity, len(diags)))
		b.WriteString(strings.Repeat("~", 79) + "\n")

		for i, d := range diags {
			b.WriteString(fmt.Sprintf("\n%d. [%s/%s] at offset %d\n", i+1, d.Structure, d.Category, d.Offset))
			b.WriteString(fmt.Sprintf("   %s\n", d.Issue))
			if d.Expected != nil {
				b.WriteString(fmt.Sprintf("   Expected: %v\n", d.Expected))
			}
			if d.Actual != nil {
				b.WriteString(fmt.Sprintf("   Actual:   %v\n", d.Actual))
			}
			if d.Context != nil {
				b.WriteString(fmt.Sprintf("   Chunk:    #%d at offset %d\n", d.Context.Chunk, d.Context.ChunkOffset))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatTextCompact returns a compact one-line-per-issue text format.
// Call Finalize first so the lines come out in offset order.
func (r *Report) FormatTextCompact() string {
	var b strings.Builder

	for _, d := range r.ByOffset {
		b.WriteString(fmt.Sprintf("%s:%d [%s/%s/%s] %s\n",
			r.Stream, d.Offset, d.Severity, d.Structure, d.Category, d.Issue))
	}

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}
