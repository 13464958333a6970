package report

import (
	"encoding/json"
	"io"

	"github.com/RootLUG/aura/finding"
)

type jsonReport struct {
	Name     string             `json:"name"`
	Score    int                `json:"score"`
	Findings []*finding.Finding `json:"detections"`
}

// WriteJSON renders the report as an indented JSON document. Extra fields
// of every finding keep the order the producing rule set them in.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Name:     r.Name,
		Score:    r.Score(),
		Findings: r.Findings,
	})
}
