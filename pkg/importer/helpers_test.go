package importer

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownloadFile(t *testing.T) {
	content := "hello world"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", string(data), content)
	}
}

func TestDownloadFile_Retry(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "retry.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile with retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDownloadFile_AllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.txt")
	err := downloadFile(context.Background(), ts.URL, dest)
	if err == nil {
		t.Error("expected error after all retries exhausted")
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestFetchCSV_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	os.WriteFile(path, []byte("CompanyName\n"), 0o644)

	got, cleanup, err := fetchCSV(context.Background(), path, t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("fetchCSV: %v", err)
	}
	defer cleanup()
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}

func TestFetchCSV_RemoteZip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "bulk.zip")
	writeZip(t, zipPath, map[string]string{
		"README.txt":                      "ignore me",
		"BasicCompanyDataAsOneFile-x.csv": "CompanyName,CompanyNumber\nACME LTD,1\n",
	})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, zipPath)
	}))
	defer ts.Close()

	work := t.TempDir()
	got, cleanup, err := fetchCSV(context.Background(), ts.URL+"/bulk.zip", work, quietLogger())
	if err != nil {
		t.Fatalf("fetchCSV: %v", err)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "CompanyName") {
		t.Errorf("extracted %q", data)
	}

	cleanup()
	entries, _ := os.ReadDir(work)
	if len(entries) != 0 {
		t.Errorf("work dir not cleaned: %v", entries)
	}
}

func TestFetchCSV_ZipWithoutCSV(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, zipPath, map[string]string{"README.txt": "nothing"})

	_, _, err := fetchCSV(context.Background(), zipPath, t.TempDir(), quietLogger())
	if err == nil {
		t.Fatal("expected error for ZIP without CSV")
	}
}
