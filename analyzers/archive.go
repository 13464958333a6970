// Package analyzers contains the location analyzers fed by the scan
// pipeline: archive extraction with its entry safety checks, and the
// differential mode built on top of it.
package analyzers

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/RootLUG/aura"
	"github.com/RootLUG/aura/finding"
)

// ArchiveAnalyzer looks for suspicious entries in archive locations and
// unpacks the safe remainder into an owned temporary directory for
// recursive analysis.
type ArchiveAnalyzer struct {
	cfg    *aura.Config
	logger hclog.Logger

	// SizeLimit overrides the configured maximum uncompressed entry size
	// when non-nil. A zero or negative value disables the limit.
	SizeLimit *int64
}

// NewArchiveAnalyzer builds an archive analyzer using the configured
// extraction limits.
func NewArchiveAnalyzer(cfg *aura.Config, logger hclog.Logger) *ArchiveAnalyzer {
	if cfg == nil {
		cfg = aura.NewConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ArchiveAnalyzer{cfg: cfg, logger: logger}
}

func (a *ArchiveAnalyzer) ID() string { return "archive_analyzer" }

func (a *ArchiveAnalyzer) sizeLimit() (int64, bool) {
	if a.SizeLimit != nil {
		if *a.SizeLimit <= 0 {
			return 0, false
		}
		return *a.SizeLimit, true
	}
	return a.cfg.MaximumArchiveSize()
}

// Analyze classifies and extracts a supported archive. The extraction
// directory is yielded as a child location before any entry is read, so the
// pipeline can recurse into it even if extraction later fails partway.
func (a *ArchiveAnalyzer) Analyze(location *aura.ScanLocation) iter.Seq[aura.Result] {
	return func(yield func(aura.Result) bool) {
		if location.IsDir() {
			return
		}
		mime := location.Mime()
		if !aura.IsSupportedArchive(mime) {
			return
		}

		tmpDir, err := os.MkdirTemp("",
			"aura_pkg__sandbox*"+filepath.Base(location.Location))
		if err != nil {
			a.logger.Error("creating extraction directory",
				"path", location.Location, "error", err)
			return
		}
		a.logger.Info("extracting archive", "to", tmpDir, "mime", mime)

		if !yield(aura.LocationResult(location.CreateChild(tmpDir, true))) {
			return
		}

		if mime == aura.MimeZip {
			a.processZip(location, tmpDir, yield)
		} else {
			a.processTar(location, tmpDir, yield)
		}
	}
}

// suspiciousEntry classifies an entry path that must never be extracted:
// absolute paths and paths containing a parent-directory component.
func (a *ArchiveAnalyzer) suspiciousEntry(entryPath, archivePath string) *finding.Finding {
	norm := path.Clean(entryPath)

	if strings.HasPrefix(entryPath, "/") {
		return finding.New(
			archivePath,
			"Archive contains an entry with an absolute path",
			finding.MakeSignature("suspicious_archive_entry", "absolute_path", norm, archivePath),
			a.cfg.ScoreOrDefault("suspicious-archive-entry-absolute-path", 50),
			finding.NewExtra().
				Set("entry_type", "absolute_path").
				Set("entry_path", norm),
		)
	}

	for _, part := range strings.Split(entryPath, "/") {
		if part == ".." {
			return finding.New(
				archivePath,
				"Archive contains an entry referencing a parent directory",
				finding.MakeSignature("suspicious_archive_entry", "parent_reference", norm, archivePath),
				a.cfg.ScoreOrDefault("suspicious-archive-entry-parent-reference", 50),
				finding.NewExtra().
					Set("entry_type", "parent_reference").
					Set("entry_path", norm),
			)
		}
	}
	return nil
}

func (a *ArchiveAnalyzer) oversizedEntry(archivePath, entryPath string, size, limit int64, score int) *finding.Finding {
	return finding.New(
		archivePath,
		"Archive contains a file exceeding the configured maximum size",
		finding.MakeSignature("archive_anomaly", "size", archivePath, entryPath),
		score,
		finding.NewExtra().
			Set("archive_path", entryPath).
			Set("reason", "file_size_exceeded").
			Set("size", size).
			Set("limit", limit),
	)
}

// readError converts a container fault into a detection signal. The scan of
// the location stops; the pipeline continues with other locations.
func (a *ArchiveAnalyzer) readError(location *aura.ScanLocation, err error) *finding.Finding {
	return finding.New(
		location.Location,
		"Could not open the archive for analysis",
		finding.MakeSignature("archive_anomaly", "read_error", location.Location),
		a.cfg.ScoreOrDefault("corrupted-archive", 10),
		finding.NewExtra().
			Set("reason", "archive_read_error").
			Set("exc_message", err.Error()).
			Set("exc_type", excTypeName(err)).
			Set("mime", location.Mime()),
	)
}

func excTypeName(err error) string {
	switch {
	case errors.Is(err, zip.ErrFormat):
		return "zip.ErrFormat"
	case errors.Is(err, gzip.ErrHeader):
		return "gzip.ErrHeader"
	case errors.Is(err, tar.ErrHeader):
		return "tar.ErrHeader"
	}
	return fmt.Sprintf("%T", err)
}

func (a *ArchiveAnalyzer) processZip(location *aura.ScanLocation, tmpDir string, yield func(aura.Result) bool) {
	archivePath := location.Location
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		yield(aura.FindingResult(a.readError(location, err)))
		return
	}
	defer r.Close()

	limit, limited := a.sizeLimit()

	for _, entry := range r.File {
		if f := a.suspiciousEntry(entry.Name, archivePath); f != nil {
			if !yield(aura.FindingResult(f)) {
				return
			}
			continue
		}
		if limited && int64(entry.UncompressedSize64) > limit {
			f := a.oversizedEntry(archivePath, entry.Name,
				int64(entry.UncompressedSize64), limit,
				a.cfg.ScoreOrDefault("archive-file-size-exceeded-zip", 10))
			if !yield(aura.FindingResult(f)) {
				return
			}
			continue
		}
		if err := extractZipEntry(entry, tmpDir); err != nil {
			yield(aura.FindingResult(a.readError(location, err)))
			return
		}
	}
}

func (a *ArchiveAnalyzer) processTar(location *aura.ScanLocation, tmpDir string, yield func(aura.Result) bool) {
	archivePath := location.Location
	f, err := os.Open(archivePath)
	if err != nil {
		yield(aura.FindingResult(a.readError(location, err)))
		return
	}
	defer f.Close()

	var stream io.Reader
	switch location.Mime() {
	case aura.MimeBzip2:
		stream = bzip2.NewReader(f)
	default:
		gz, err := gzip.NewReader(f)
		if err != nil {
			yield(aura.FindingResult(a.readError(location, err)))
			return
		}
		defer gz.Close()
		stream = gz
	}

	limit, limited := a.sizeLimit()
	tr := tar.NewReader(stream)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(aura.FindingResult(a.readError(location, err)))
			return
		}

		if f := a.suspiciousEntry(hdr.Name, archivePath); f != nil {
			if !yield(aura.FindingResult(f)) {
				return
			}
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(entryTarget(tmpDir, hdr.Name), 0o750); err != nil {
				yield(aura.FindingResult(a.readError(location, err)))
				return
			}
		case tar.TypeSymlink, tar.TypeLink:
			// Link entries are skipped without a detection for now; a
			// dedicated tar-bomb-via-link rule would classify them.
			a.logger.Debug("skipping link entry",
				"archive", archivePath, "entry", hdr.Name)
		case tar.TypeReg:
			if limited && hdr.Size > limit {
				f := a.oversizedEntry(archivePath, hdr.Name, hdr.Size, limit,
					a.cfg.ScoreOrDefault("archive-file-size-exceeded", 100))
				if !yield(aura.FindingResult(f)) {
					return
				}
				continue
			}
			if err := extractTarEntry(tr, hdr, tmpDir); err != nil {
				yield(aura.FindingResult(a.readError(location, err)))
				return
			}
		}
	}
}

// entryTarget maps an approved entry path into the extraction directory.
// Absolute and parent-referencing entries were already excluded, so the
// cleaned relative path cannot escape the sandbox.
func entryTarget(tmpDir, entryPath string) string {
	return filepath.Join(tmpDir, filepath.FromSlash(path.Clean(entryPath)))
}

func extractZipEntry(entry *zip.File, tmpDir string) error {
	target := entryTarget(tmpDir, entry.Name)
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func extractTarEntry(tr *tar.Reader, hdr *tar.Header, tmpDir string) error {
	target := entryTarget(tmpDir, hdr.Name)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, tr)
	return err
}
