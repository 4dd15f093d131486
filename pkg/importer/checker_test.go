package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if code == http.StatusMovedPermanently {
			w.Header().Set("Location", "https://example.com/new")
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func checkedStatuses(t *testing.T, sdb *SourceDB) map[string]Source {
	t.Helper()
	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	out := make(map[string]Source)
	for _, src := range sources {
		out[src.AdapterID] = src
	}
	return out
}

func TestCheckAll_Statuses(t *testing.T) {
	sdb := tempSourceDB(t)

	local := filepath.Join(t.TempDir(), "companies.csv")
	if err := os.WriteFile(local, []byte("CompanyName,CompanyNumber\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	adapters := []Adapter{
		&fakeAdapter{"ok-source", "companies", "200", statusServer(t, http.StatusOK).URL, "OGL v3"},
		&fakeAdapter{"redirect-source", "companies", "301", statusServer(t, http.StatusMovedPermanently).URL, "OGL v3"},
		&fakeAdapter{"notfound-source", "companies", "404", statusServer(t, http.StatusNotFound).URL, "OGL v3"},
		&fakeAdapter{"error-source", "companies", "500", statusServer(t, http.StatusInternalServerError).URL, "OGL v3"},
		&fakeAdapter{"local-source", "companies", "file", local, "OGL v3"},
		&fakeAdapter{"missing-file", "companies", "gone", filepath.Join(t.TempDir(), "gone.csv"), "OGL v3"},
		&fakeAdapter{"dead-source", "companies", "dead", "http://127.0.0.1:1", "OGL v3"},
	}
	if err := sdb.Seed(adapters); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	rep := NewChecker(sdb, quietLogger(), time.Hour).CheckAll(context.Background())
	if rep.OK != 3 || rep.Failed != 4 {
		t.Errorf("report = %+v, want 3 ok / 4 failed", rep)
	}

	want := map[string]int{
		"ok-source":       200,
		"redirect-source": 301,
		"notfound-source": 404,
		"error-source":    500,
		"local-source":    200,
		"missing-file":    0,
		"dead-source":     0,
	}
	got := checkedStatuses(t, sdb)
	for id, status := range want {
		src := got[id]
		if src.LastStatus == nil || *src.LastStatus != status {
			t.Errorf("%s: status = %v, want %d", id, src.LastStatus, status)
		}
		if status == 0 && (src.LastError == nil || *src.LastError == "") {
			t.Errorf("%s: expected last_error to be set", id)
		}
	}
}

func TestCheckAll_EmptyDB(t *testing.T) {
	sdb := tempSourceDB(t)
	rep := NewChecker(sdb, quietLogger(), time.Hour).CheckAll(context.Background())
	if rep.OK != 0 || rep.Failed != 0 || len(rep.Stale) != 0 {
		t.Errorf("report = %+v, want empty", rep)
	}
}

func TestCheckAll_Staleness(t *testing.T) {
	sdb := tempSourceDB(t)
	local := filepath.Join(t.TempDir(), "companies.csv")
	if err := os.WriteFile(local, []byte("CompanyName,CompanyNumber\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	adapters := []Adapter{
		&fakeAdapter{"fresh", "companies", "fresh", local, "OGL v3"},
		&fakeAdapter{"old", "companies", "old", local, "OGL v3"},
		&fakeAdapter{"never", "companies", "never", local, "OGL v3"},
	}
	if err := sdb.Seed(adapters); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	if err := sdb.RecordImport("fresh", now.Add(-time.Hour), 10); err != nil {
		t.Fatal(err)
	}
	if err := sdb.RecordImport("old", now.Add(-90*24*time.Hour), 10); err != nil {
		t.Fatal(err)
	}

	c := NewChecker(sdb, quietLogger(), time.Hour)
	c.MaxAge = 31 * 24 * time.Hour
	c.now = func() time.Time { return now }

	rep := c.CheckAll(context.Background())
	if rep.OK != 3 {
		t.Errorf("ok = %d, want 3", rep.OK)
	}
	if len(rep.Stale) != 2 || rep.Stale[0] != "never" || rep.Stale[1] != "old" {
		t.Errorf("stale = %v, want [never old]", rep.Stale)
	}

	c.MaxAge = 0
	if rep := c.CheckAll(context.Background()); len(rep.Stale) != 0 {
		t.Errorf("stale with MaxAge 0 = %v", rep.Stale)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	sdb := tempSourceDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewChecker(sdb, quietLogger(), time.Millisecond).Start(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
