package aura

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// MetadataMime is the metadata key holding the detected content type.
const MetadataMime = "mime"

// MetadataPairedLocation is the metadata key under which differential
// analysis records the matching location on the other side of a diff.
const MetadataPairedLocation = "b_scan_location"

// ScanLocation is one unit of analysis: a filesystem path plus metadata,
// optionally owning a temporary directory that is removed exactly once when
// the pipeline is finished with the location.
type ScanLocation struct {
	// ID identifies the location in logs and diagnostics.
	ID uuid.UUID
	// Location is the filesystem path being analyzed.
	Location string
	// Metadata carries the detected content type and analyzer annotations.
	Metadata map[string]any
	// Parent is a non-owning back reference to the location this one was
	// derived from, nil for the scan seed.
	Parent *ScanLocation
	// Cleanup marks the location as owner of its path, to be deleted after
	// the last consumer is done with it.
	Cleanup bool

	cleanupOnce sync.Once
}

// NewScanLocation seeds a scan at the given path, detecting its content
// type into the metadata.
func NewScanLocation(path string) (*ScanLocation, error) {
	mime, err := DetectContentType(path)
	if err != nil {
		return nil, fmt.Errorf("creating scan location: %w", err)
	}
	return &ScanLocation{
		ID:       uuid.New(),
		Location: path,
		Metadata: map[string]any{MetadataMime: mime},
	}, nil
}

// CreateChild derives a location for a nested artifact, recording this
// location as its parent. Content type is re-detected for the new path; a
// path that cannot be classified (already removed, unreadable) still yields
// a child so the pipeline can report on it, with an empty content type.
func (l *ScanLocation) CreateChild(path string, cleanup bool) *ScanLocation {
	mime, err := DetectContentType(path)
	if err != nil {
		mime = ""
	}
	return &ScanLocation{
		ID:       uuid.New(),
		Location: path,
		Metadata: map[string]any{MetadataMime: mime},
		Parent:   l,
		Cleanup:  cleanup,
	}
}

// Mime returns the detected content type from the metadata.
func (l *ScanLocation) Mime() string {
	mime, _ := l.Metadata[MetadataMime].(string)
	return mime
}

// IsDir reports whether the location points at a directory.
func (l *ScanLocation) IsDir() bool {
	return l.Mime() == MimeDirectory
}

// DoCleanup removes the owned path. It is safe to call multiple times and
// from any exit path; the removal happens at most once.
func (l *ScanLocation) DoCleanup(logger hclog.Logger) error {
	if !l.Cleanup {
		return nil
	}
	var err error
	l.cleanupOnce.Do(func() {
		if logger != nil {
			logger.Debug("removing extracted location", "id", l.ID, "path", l.Location)
		}
		err = os.RemoveAll(l.Location)
	})
	return err
}
