package pypi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/requests2/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "info": {"name": "requests2", "version": "1.1", "summary": "not the real one"},
  "releases": {
    "1.0": [{"filename": "requests2-1.0.tar.gz", "url": "/files/requests2-1.0.tar.gz",
             "md5_digest": "aa", "packagetype": "sdist", "size": 3}],
    "1.1": [{"filename": "requests2-1.1.tar.gz", "url": "/files/requests2-1.1.tar.gz",
             "md5_digest": "bb", "packagetype": "sdist", "size": 3}]
  },
  "urls": [{"filename": "requests2-1.1.tar.gz", "url": "/files/requests2-1.1.tar.gz",
            "md5_digest": "bb", "packagetype": "sdist", "size": 3}]
}`))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pkg"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGetPackageInfo(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, nil)

	info, err := client.GetPackageInfo(context.Background(), "requests2")
	require.NoError(t, err)
	assert.Equal(t, "requests2", info.Info.Name)
	assert.Len(t, info.Releases, 2)
	require.Len(t, info.URLs, 1)
	assert.Equal(t, "requests2-1.1.tar.gz", info.URLs[0].Filename)
}

func TestGetPackageInfoNotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, nil)

	_, err := client.GetPackageInfo(context.Background(), "no-such-package")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReleaseFiles(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, nil)

	latest, err := client.ReleaseFiles(context.Background(), "requests2", "")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "requests2-1.1.tar.gz", latest[0].Filename)

	pinned, err := client.ReleaseFiles(context.Background(), "requests2", "1.0")
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, "requests2-1.0.tar.gz", pinned[0].Filename)

	_, err = client.ReleaseFiles(context.Background(), "requests2", "9.9")
	assert.Error(t, err)
}

func TestDownloadAll(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, nil)
	dest := t.TempDir()

	files := []ReleaseFile{
		{Filename: "requests2-1.0.tar.gz", URL: server.URL + "/files/requests2-1.0.tar.gz"},
		{Filename: "requests2-1.1.tar.gz", URL: server.URL + "/files/requests2-1.1.tar.gz"},
	}

	paths, err := client.DownloadAll(context.Background(), files, dest)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for i, path := range paths {
		assert.Equal(t, filepath.Join(dest, files[i].Filename), path)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "pkg", string(content))
	}
}

func TestDownloadAllPropagatesFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(server.URL, nil)

	files := []ReleaseFile{
		{Filename: "missing.tar.gz", URL: server.URL + "/gone/missing.tar.gz"},
	}
	_, err := client.DownloadAll(context.Background(), files, t.TempDir())
	assert.Error(t, err)
}
