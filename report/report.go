// Package report renders finished scans as text, JSON or SARIF.
package report

import (
	"fmt"
	"io"

	"github.com/RootLUG/aura/finding"
)

// Output formats understood by Write.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Report is a finished scan ready for rendering.
type Report struct {
	// Name identifies the scanned artifact, usually the input path or the
	// package name.
	Name     string
	Findings []*finding.Finding
}

// Score is the sum of all finding scores.
func (r *Report) Score() int {
	total := 0
	for _, f := range r.Findings {
		total += f.Score
	}
	return total
}

// Write renders the report in the requested format.
func Write(w io.Writer, format string, r *Report) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatSARIF:
		return WriteSARIF(w, r)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// severityLevel buckets a finding score into a SARIF level. The same
// buckets drive text colorization.
func severityLevel(score int) string {
	switch {
	case score >= 100:
		return "error"
	case score >= 50:
		return "warning"
	}
	return "note"
}
