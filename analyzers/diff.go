package analyzers

import (
	"iter"

	"github.com/RootLUG/aura"
)

// Filesystem operations a diff entry can carry.
const (
	DiffAdded    = "A"
	DiffDeleted  = "D"
	DiffModified = "M"
	DiffRenamed  = "R"
)

// Diff describes one changed path between two scans of the same logical
// artifact, for example two versions of a package.
type Diff struct {
	// Operation is one of the Diff* constants.
	Operation string
	// APath and BPath are the concrete paths of the two sides.
	APath string
	BPath string
	// AMD5 and BMD5 are the content digests of the two sides.
	AMD5 string
	BMD5 string
	// AScan and BScan are the scan locations the two sides belong to.
	AScan *aura.ScanLocation
	BScan *aura.ScanLocation
}

// DiffArchive runs both sides of a changed archive through the archive
// pipeline. All anomaly findings from both sides are reported; when either
// side unpacked, a paired location is produced so downstream logic can
// recurse into a structural diff of the unpacked contents instead of the
// raw archive bytes.
func (a *ArchiveAnalyzer) DiffArchive(diff Diff) iter.Seq[aura.Result] {
	return func(yield func(aura.Result) bool) {
		if diff.Operation != DiffRenamed && diff.Operation != DiffModified {
			return
		}
		if diff.AMD5 == diff.BMD5 {
			return
		}

		aLoc := diff.AScan.CreateChild(diff.APath, false)
		bLoc := diff.BScan.CreateChild(diff.BPath, false)

		aFindings, aChildren := a.collect(aLoc)
		bFindings, bChildren := a.collect(bLoc)

		for _, res := range append(aFindings, bFindings...) {
			if !yield(res) {
				return
			}
		}

		if len(aChildren) == 0 && len(bChildren) == 0 {
			return
		}

		// Prefer the unpacked directory over the raw archive on each side.
		newA := aLoc
		if len(aChildren) > 0 {
			newA = aChildren[0]
		}
		newB := bLoc
		if len(bChildren) > 0 {
			newB = bChildren[0]
		}
		newA.Metadata[aura.MetadataPairedLocation] = newB
		yield(aura.LocationResult(newA))
	}
}

func (a *ArchiveAnalyzer) collect(loc *aura.ScanLocation) (findings []aura.Result, children []*aura.ScanLocation) {
	for res := range a.Analyze(loc) {
		if res.Location != nil {
			children = append(children, res.Location)
			continue
		}
		findings = append(findings, res)
	}
	return findings, children
}
