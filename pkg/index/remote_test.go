package index

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/alphasearch/pkg/kit"
)

func TestClient_RoundTripThroughHandler(t *testing.T) {
	s := openTestStore(t, corpus...)
	srv := httptest.NewServer(NewHandler(s))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	exact, err := c.ExactMatch(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	equalKeys(t, "exact", exact, "acme:01", "acme:02")

	prefix, err := c.PrefixMatch(ctx, "acmew")
	if err != nil {
		t.Fatal(err)
	}
	equalKeys(t, "prefix", prefix, "acmewidgets:03")
	if string(prefix[0].Source) != `{"k":"acmewidgets:03"}` {
		t.Errorf("source = %s", prefix[0].Source)
	}

	above, err := c.RangeAbove(ctx, "acmf:04", 2)
	if err != nil {
		t.Fatal(err)
	}
	equalKeys(t, "above", above, "acmewidgets:03", "acme:02")

	below, err := c.RangeBelow(ctx, "beta:05", 10)
	if err != nil {
		t.Fatal(err)
	}
	equalKeys(t, "below", below, "zeta:06")

	none, err := c.PrefixMatch(ctx, "q")
	if err != nil || len(none) != 0 {
		t.Fatalf("empty prefix = %v, %v", none, err)
	}
}

func TestClient_ForwardsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		w.Write([]byte(`{"hits":[]}`))
	}))
	defer srv.Close()

	ctx := kit.WithRequestID(context.Background(), "req-42")
	if _, err := NewClient(srv.URL, nil).ExactMatch(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	if got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestClient_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}},
		{"bad envelope", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, nil).PrefixMatch(context.Background(), "acme")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
		})
	}

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewClient(url, nil).RangeBelow(context.Background(), "acme", 1)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestHandler_BadRequests(t *testing.T) {
	h := NewHandler(openTestStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/fuzzy", strings.NewReader(`{"key":"a"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown op status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/exact", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}
