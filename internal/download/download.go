// Package download saves found data files to disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"datahunt/internal/config"
	"datahunt/internal/fetcher"
)

// DefaultFilename is used when the URL path has no usable file name.
const DefaultFilename = "downloaded_file.csv"

// Result describes a saved file.
type Result struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"content_type,omitempty"`
}

// Downloader fetches files into a directory.
type Downloader struct {
	dir       string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// New builds a downloader from configuration. A nil client gets one with
// the configured timeout.
func New(cfg config.DownloadConfig, client *http.Client, logger *slog.Logger) *Downloader {
	if client == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = fetcher.BrowserUserAgent
	}
	return &Downloader{
		dir:       cfg.Directory,
		userAgent: ua,
		client:    client,
		logger:    logger,
	}
}

// Download saves rawURL under the download directory, named after the last
// path segment, and returns where it went. Existing files are overwritten.
func (d *Downloader) Download(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Result{}, fmt.Errorf("invalid download url %q", rawURL)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("download %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, &fetcher.StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	target := filepath.Join(d.dir, FilenameFor(u))
	tmp, err := os.CreateTemp(d.dir, ".datahunt-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("move download into place: %w", err)
	}

	d.logger.Info("file downloaded", "url", u.String(), "path", target, "bytes", n)
	return Result{
		URL:         u.String(),
		Path:        target,
		Bytes:       n,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// FilenameFor derives the local file name for u: the last path segment, or
// DefaultFilename when that is empty or has no extension.
func FilenameFor(u *url.URL) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, path.Base(u.Path))
	if !strings.Contains(name, ".") || strings.Trim(name, ".") == "" {
		return DefaultFilename
	}
	return name
}
