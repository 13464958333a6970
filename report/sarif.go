package report

import (
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const (
	toolName       = "aura"
	informationURI = "https://github.com/RootLUG/aura"
)

// WriteSARIF renders the report as a SARIF 2.1.0 document. Each distinct
// finding signature kind becomes a rule; scores map to SARIF levels.
func WriteSARIF(w io.Writer, r *Report) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI(toolName, informationURI)

	for _, f := range r.Findings {
		ruleID := signatureKind(f.Signature)
		run.AddRule(ruleID)

		result := run.CreateResultForRule(ruleID).
			WithLevel(severityLevel(f.Score)).
			WithMessage(sarif.NewTextMessage(f.Message))
		result.AddLocation(sarif.NewLocationWithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.Location))))

		props := sarif.NewPropertyBag()
		props.Add("signature", f.Signature)
		props.Add("score", f.Score)
		for _, key := range f.Extra.Keys() {
			value, _ := f.Extra.Get(key)
			props.Add(key, value)
		}
		result.AttachPropertyBag(props)
	}

	doc.AddRun(run)
	return doc.PrettyWrite(w)
}

// signatureKind extracts the leading kind component of a finding
// signature, e.g. "archive_anomaly" from "archive_anomaly#size#...".
func signatureKind(signature string) string {
	for i := 0; i < len(signature); i++ {
		if signature[i] == '#' {
			return signature[:i]
		}
	}
	return signature
}
