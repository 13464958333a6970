package analyzers

import (
	"io/fs"
	"iter"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/RootLUG/aura"
)

// FilesystemAnalyzer expands directory locations into one child location
// per contained file, so file-level analyzers and nested archives inside an
// extraction directory are reached by the pipeline.
type FilesystemAnalyzer struct {
	logger hclog.Logger
}

func NewFilesystemAnalyzer(logger hclog.Logger) *FilesystemAnalyzer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FilesystemAnalyzer{logger: logger}
}

func (f *FilesystemAnalyzer) ID() string { return "filesystem_analyzer" }

func (f *FilesystemAnalyzer) Analyze(location *aura.ScanLocation) iter.Seq[aura.Result] {
	return func(yield func(aura.Result) bool) {
		if !location.IsDir() {
			return
		}

		err := filepath.WalkDir(location.Location, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				f.logger.Warn("walking directory", "path", path, "error", err)
				return fs.SkipDir
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if !yield(aura.LocationResult(location.CreateChild(path, false))) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			f.logger.Warn("walking directory", "path", location.Location, "error", err)
		}
	}
}

var _ aura.LocationAnalyzer = (*FilesystemAnalyzer)(nil)
var _ aura.LocationAnalyzer = (*ArchiveAnalyzer)(nil)
