package report

import (
	"fmt"
	"io"

	"github.com/gookit/color"
)

// WriteText renders a human-readable report. Scores are colorized by the
// same buckets used for SARIF levels.
func WriteText(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "%s (total score %d)\n",
		color.Bold.Sprint(r.Name), r.Score()); err != nil {
		return err
	}

	if len(r.Findings) == 0 {
		_, err := fmt.Fprintln(w, "no detections")
		return err
	}

	for _, f := range r.Findings {
		score := fmt.Sprintf("[%3d]", f.Score)
		switch severityLevel(f.Score) {
		case "error":
			score = color.Red.Sprint(score)
		case "warning":
			score = color.Yellow.Sprint(score)
		default:
			score = color.Green.Sprint(score)
		}

		if _, err := fmt.Fprintf(w, "%s %s\n      %s\n", score, f.Message, f.Signature); err != nil {
			return err
		}
		for _, key := range f.Extra.Keys() {
			value, _ := f.Extra.Get(key)
			if _, err := fmt.Fprintf(w, "      %s: %v\n", key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
