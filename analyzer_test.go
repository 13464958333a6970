package aura

import (
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/RootLUG/aura/finding"
)

type stubAnalyzer struct {
	id      string
	analyze func(location *ScanLocation) []Result
}

func (s *stubAnalyzer) ID() string { return s.id }

func (s *stubAnalyzer) Analyze(location *ScanLocation) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for _, res := range s.analyze(location) {
			if !yield(res) {
				return
			}
		}
	}
}

func seedLocation(t *testing.T) *ScanLocation {
	t.Helper()
	dir := t.TempDir()
	loc, err := NewScanLocation(dir)
	if err != nil {
		t.Fatalf("seeding scan location: %v", err)
	}
	return loc
}

func TestAnalyzeDeduplicatesBySignature(t *testing.T) {
	t.Parallel()

	seed := seedLocation(t)
	dup := finding.New(seed.Location, "same condition",
		finding.MakeSignature("test", "dup", seed.Location), 10, nil)
	other := finding.New(seed.Location, "different condition",
		finding.MakeSignature("test", "other", seed.Location), 10, nil)

	a := NewAnalyzer(nil, nil)
	a.RegisterAnalyzer(&stubAnalyzer{
		id: "emitter",
		analyze: func(*ScanLocation) []Result {
			return []Result{FindingResult(dup), FindingResult(dup), FindingResult(other)}
		},
	})

	var got []*finding.Finding
	for f := range a.Analyze(seed) {
		got = append(got, f)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated findings, got %d", len(got))
	}
}

func TestAnalyzeRequeuesDerivedLocations(t *testing.T) {
	t.Parallel()

	seed := seedLocation(t)
	nested := t.TempDir()

	var visited []string
	a := NewAnalyzer(nil, nil)
	a.RegisterAnalyzer(&stubAnalyzer{
		id: "descender",
		analyze: func(loc *ScanLocation) []Result {
			visited = append(visited, loc.Location)
			if loc.Location == seed.Location {
				return []Result{LocationResult(loc.CreateChild(nested, false))}
			}
			return []Result{FindingResult(finding.New(loc.Location, "leaf",
				finding.MakeSignature("test", "leaf", loc.Location), 0, nil))}
		},
	})

	var got []*finding.Finding
	for f := range a.Analyze(seed) {
		got = append(got, f)
	}

	if len(visited) != 2 || visited[1] != nested {
		t.Fatalf("derived location not requeued, visited %v", visited)
	}
	if len(got) != 1 || got[0].Location != nested {
		t.Fatalf("finding from derived location missing: %v", got)
	}
}

func TestAnalyzeCleansUpOwnedLocationsInReverseOrder(t *testing.T) {
	t.Parallel()

	seed := seedLocation(t)
	extractedA := filepath.Join(t.TempDir(), "unpack_a")
	extractedB := filepath.Join(extractedA, "unpack_b")
	if err := os.MkdirAll(extractedB, 0o750); err != nil {
		t.Fatalf("preparing extraction dirs: %v", err)
	}

	a := NewAnalyzer(nil, nil)
	a.RegisterAnalyzer(&stubAnalyzer{
		id: "extractor",
		analyze: func(loc *ScanLocation) []Result {
			switch loc.Location {
			case seed.Location:
				return []Result{LocationResult(loc.CreateChild(extractedA, true))}
			case extractedA:
				return []Result{LocationResult(loc.CreateChild(extractedB, true))}
			}
			return nil
		},
	})

	for range a.Analyze(seed) {
	}

	if _, err := os.Stat(extractedA); !os.IsNotExist(err) {
		t.Fatalf("extraction directory not removed: %v", err)
	}
}

func TestAnalyzeEarlyStopStillCleansUp(t *testing.T) {
	t.Parallel()

	seed := seedLocation(t)
	extracted := filepath.Join(t.TempDir(), "unpack")
	if err := os.Mkdir(extracted, 0o750); err != nil {
		t.Fatalf("preparing extraction dir: %v", err)
	}

	a := NewAnalyzer(nil, nil)
	a.RegisterAnalyzer(&stubAnalyzer{
		id: "extractor",
		analyze: func(loc *ScanLocation) []Result {
			if loc.Location == seed.Location {
				return []Result{
					LocationResult(loc.CreateChild(extracted, true)),
					FindingResult(finding.New(loc.Location, "first",
						finding.MakeSignature("test", "first", loc.Location), 0, nil)),
					FindingResult(finding.New(loc.Location, "second",
						finding.MakeSignature("test", "second", loc.Location), 0, nil)),
				}
			}
			return nil
		},
	})

	// Abandon the stream after the first finding; the owned directory must
	// still be removed.
	for range a.Analyze(seed) {
		break
	}

	if _, err := os.Stat(extracted); !os.IsNotExist(err) {
		t.Fatalf("extraction directory not removed on early stop: %v", err)
	}
}

func TestAnalyzersRunInRegistrationOrder(t *testing.T) {
	t.Parallel()

	seed := seedLocation(t)

	var order []string
	mk := func(id string) *stubAnalyzer {
		return &stubAnalyzer{id: id, analyze: func(*ScanLocation) []Result {
			order = append(order, id)
			return nil
		}}
	}

	a := NewAnalyzer(nil, nil)
	a.RegisterAnalyzer(mk("first"), mk("second"), mk("third"))

	for range a.Analyze(seed) {
	}

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("unexpected analyzer order: %v", order)
	}
}
