package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// isRemote reports whether a source is fetched over HTTP rather than read
// from the local filesystem.
func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetchCSV resolves a source to a local CSV file. Remote sources are
// downloaded into workDir; ZIP archives are extracted there. cleanup removes
// whatever was created.
func fetchCSV(ctx context.Context, source, workDir string, logger *slog.Logger) (csvPath string, cleanup func(), err error) {
	cleanup = func() {}
	path := source

	if isRemote(source) || strings.HasSuffix(strings.ToLower(source), ".zip") {
		if workDir == "" {
			workDir = os.TempDir()
		}
		if err := ensureDir(workDir); err != nil {
			return "", cleanup, err
		}
		dlDir, err := os.MkdirTemp(workDir, "_download")
		if err != nil {
			return "", cleanup, fmt.Errorf("create download dir: %w", err)
		}
		cleanup = func() { os.RemoveAll(dlDir) }

		if isRemote(source) {
			path = filepath.Join(dlDir, "source"+filepath.Ext(source))
			logger.Info("downloading source", "url", source)
			if err := downloadFile(ctx, source, path); err != nil {
				cleanup()
				return "", func() {}, fmt.Errorf("download: %w", err)
			}
		}

		if strings.HasSuffix(strings.ToLower(path), ".zip") {
			files, err := unzipFile(path, dlDir)
			if err != nil {
				cleanup()
				return "", func() {}, fmt.Errorf("unzip: %w", err)
			}
			path = ""
			for _, f := range files {
				if strings.HasSuffix(strings.ToLower(f), ".csv") {
					path = f
					break
				}
			}
			if path == "" {
				cleanup()
				return "", func() {}, fmt.Errorf("no CSV found in ZIP")
			}
		}
	}
	return path, cleanup, nil
}

// downloadFile downloads url to dest with retries and timeout.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 30 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}

		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}

// unzipFile extracts a ZIP archive to destDir and returns the list of extracted file paths.
func unzipFile(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
		}

		out, err := os.Create(destPath)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("create %s: %w", destPath, err)
		}

		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		rc.Close()
		out.Close()
		paths = append(paths, destPath)
	}
	return paths, nil
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
