// Package aura implements the package-analysis pipeline: scan locations,
// configuration, content-type detection and the orchestrator that feeds
// locations through registered analyzers.
package aura

import (
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Content types the archive layer understands. Everything else is passed
// through untouched by archive processing.
const (
	MimeGzip      = "application/gzip"
	MimeXGzip     = "application/x-gzip"
	MimeBzip2     = "application/x-bzip2"
	MimeZip       = "application/zip"
	MimeDirectory = "inode/directory"
)

var supportedArchiveMimes = map[string]struct{}{
	MimeGzip:  {},
	MimeXGzip: {},
	MimeBzip2: {},
	MimeZip:   {},
}

// IsSupportedArchive reports whether the content type is an archive format
// the extraction layer can process.
func IsSupportedArchive(mime string) bool {
	_, ok := supportedArchiveMimes[mime]
	return ok
}

// DetectContentType classifies a filesystem path by magic bytes.
// Directories are reported with a dedicated type so analyzers can skip them
// without touching the archive layer.
func DetectContentType(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return MimeDirectory, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("content type detection for %s: %w", path, err)
	}
	return mtype.String(), nil
}
