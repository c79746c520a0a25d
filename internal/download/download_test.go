package download

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datahunt/internal/config"
	"datahunt/internal/fetcher"
)

func newDownloader(t *testing.T, dir string) *Downloader {
	t.Helper()
	cfg := config.Default().Download
	cfg.Directory = dir
	return New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDownloadSavesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("city,population\nA,1\n"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	d := newDownloader(t, dir)

	res, err := d.Download(context.Background(), srv.URL+"/data/cities.csv?v=2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cities.csv"), res.Path)
	assert.Equal(t, int64(20), res.Bytes)
	assert.Equal(t, "text/csv", res.ContentType)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "city,population\nA,1\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := newDownloader(t, t.TempDir())
	_, err := d.Download(context.Background(), srv.URL+"/gone.csv")
	require.Error(t, err)
	assert.True(t, fetcher.IsNotFound(err))
}

func TestDownloadRejectsRelativeURL(t *testing.T) {
	d := newDownloader(t, t.TempDir())
	_, err := d.Download(context.Background(), "/data.csv")
	require.Error(t, err)
}

func TestFilenameFor(t *testing.T) {
	cases := map[string]string{
		"https://x.org/a/b/report.xlsx":   "report.xlsx",
		"https://x.org/":                  DefaultFilename,
		"https://x.org":                   DefaultFilename,
		"https://x.org/export":            DefaultFilename,
		"https://x.org/my%20data.csv":     "my data.csv",
		"https://x.org/a/..%2f..%2fx.csv": "x.csv",
		"https://x.org/..":                DefaultFilename,
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, FilenameFor(u), raw)
	}
}
