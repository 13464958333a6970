package aura

import (
	"iter"

	"github.com/hashicorp/go-hclog"

	"github.com/RootLUG/aura/finding"
)

// Result is one item of an analyzer's output stream: either a Finding or a
// newly derived ScanLocation to be queued for recursive analysis. Exactly
// one of the fields is set.
type Result struct {
	Finding  *finding.Finding
	Location *ScanLocation
}

// FindingResult wraps a Finding for the analyzer output stream.
func FindingResult(f *finding.Finding) Result {
	return Result{Finding: f}
}

// LocationResult wraps a derived ScanLocation for the analyzer output
// stream.
func LocationResult(l *ScanLocation) Result {
	return Result{Location: l}
}

// LocationAnalyzer inspects one ScanLocation and lazily produces findings
// and derived locations. Producers must release any resources they acquire
// even when the consumer stops iterating early.
type LocationAnalyzer interface {
	ID() string
	Analyze(location *ScanLocation) iter.Seq[Result]
}

// Analyzer drives a scan: it feeds ScanLocations through every registered
// analyzer, requeues derived locations, deduplicates findings by signature
// and removes extraction directories once the scan is finished with them.
type Analyzer struct {
	cfg       *Config
	logger    hclog.Logger
	analyzers []LocationAnalyzer
}

// NewAnalyzer builds a pipeline with no analyzers registered.
func NewAnalyzer(cfg *Config, logger hclog.Logger) *Analyzer {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// RegisterAnalyzer appends analyzers to the dispatch list. Analyzers run in
// registration order for every location.
func (a *Analyzer) RegisterAnalyzer(analyzers ...LocationAnalyzer) {
	a.analyzers = append(a.analyzers, analyzers...)
}

// Analyze runs the scan rooted at the given location and streams the
// deduplicated findings. Locations are processed breadth-first; every
// cleanup-owning location produced during the scan is removed when the
// stream is done, in reverse creation order, also when the consumer
// abandons the stream early.
func (a *Analyzer) Analyze(root *ScanLocation) iter.Seq[*finding.Finding] {
	return func(yield func(*finding.Finding) bool) {
		var owned []*ScanLocation
		defer func() {
			for i := len(owned) - 1; i >= 0; i-- {
				if err := owned[i].DoCleanup(a.logger); err != nil {
					a.logger.Warn("cleanup failed",
						"path", owned[i].Location, "error", err)
				}
			}
		}()

		if root.Cleanup {
			owned = append(owned, root)
		}

		seen := make(map[string]struct{})
		queue := []*ScanLocation{root}

		for len(queue) > 0 {
			loc := queue[0]
			queue = queue[1:]

			a.logger.Debug("analyzing location",
				"id", loc.ID, "path", loc.Location, "mime", loc.Mime())

			for _, analyzer := range a.analyzers {
				for res := range analyzer.Analyze(loc) {
					if res.Location != nil {
						if res.Location.Cleanup {
							owned = append(owned, res.Location)
						}
						queue = append(queue, res.Location)
						continue
					}
					if res.Finding == nil {
						continue
					}
					if _, dup := seen[res.Finding.Signature]; dup {
						continue
					}
					seen[res.Finding.Signature] = struct{}{}
					if !yield(res.Finding) {
						return
					}
				}
			}
		}
	}
}
