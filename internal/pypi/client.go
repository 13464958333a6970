// Package pypi fetches package metadata and release artifacts from the
// PyPI JSON API so they can be fed into the scan pipeline.
package pypi

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

const defaultDownloadConcurrency = 4

// Client talks to a PyPI-compatible JSON API.
type Client struct {
	http   *resty.Client
	logger hclog.Logger
}

// NewClient builds a client for the given API root; an empty baseURL
// selects the public PyPI instance.
func NewClient(baseURL string, logger hclog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(5).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "aura-scanner/1.0")

	return &Client{http: httpClient, logger: logger}
}

// PackageInfo is the metadata document of one package.
type PackageInfo struct {
	Info     Info                     `json:"info"`
	Releases map[string][]ReleaseFile `json:"releases"`
	URLs     []ReleaseFile            `json:"urls"`
}

// Info carries the main package fields used for reporting.
type Info struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Summary  string `json:"summary"`
	Author   string `json:"author"`
	HomePage string `json:"home_page"`
}

// ReleaseFile describes one downloadable artifact of a release.
type ReleaseFile struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	MD5Digest   string `json:"md5_digest"`
	PackageType string `json:"packagetype"`
	Size        int64  `json:"size"`
}

// GetPackageInfo fetches the metadata document for a package.
func (c *Client) GetPackageInfo(ctx context.Context, name string) (*PackageInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&PackageInfo{}).
		Get(fmt.Sprintf("/%s/json", name))
	if err != nil {
		return nil, fmt.Errorf("fetching package %s: %w", name, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("package %s not found", name)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching package %s: unexpected status %d", name, resp.StatusCode())
	}
	return resp.Result().(*PackageInfo), nil
}

// ReleaseFiles returns the artifacts of a specific version, or of the
// latest release when version is empty.
func (c *Client) ReleaseFiles(ctx context.Context, name, version string) ([]ReleaseFile, error) {
	info, err := c.GetPackageInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return info.URLs, nil
	}
	files, ok := info.Releases[version]
	if !ok {
		return nil, fmt.Errorf("package %s has no release %s", name, version)
	}
	return files, nil
}

// DownloadRelease fetches one artifact into destDir and returns the local
// path.
func (c *Client) DownloadRelease(ctx context.Context, file ReleaseFile, destDir string) (string, error) {
	target := filepath.Join(destDir, filepath.Base(file.Filename))
	c.logger.Debug("downloading release file", "url", file.URL, "to", target)

	resp, err := c.http.R().
		SetContext(ctx).
		SetOutput(target).
		Get(file.URL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", file.Filename, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("downloading %s: unexpected status %d", file.Filename, resp.StatusCode())
	}
	return target, nil
}

// DownloadAll fetches artifacts concurrently into destDir. On the first
// failure the remaining downloads are cancelled and the error returned.
func (c *Client) DownloadAll(ctx context.Context, files []ReleaseFile, destDir string) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultDownloadConcurrency)

	paths := make([]string, len(files))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			path, err := c.DownloadRelease(ctx, file, destDir)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
