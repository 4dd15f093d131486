package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/alphasearch/pkg/kit"
)

// RequestIDHeader carries the caller's correlation id to the index engine.
const RequestIDHeader = "X-Request-ID"

type probeRequest struct {
	Key   string `json:"key"`
	Limit int    `json:"limit,omitempty"`
}

type probeResponse struct {
	Hits []HitRecord `json:"hits"`
}

// Client queries a remote index over HTTP JSON. It implements Index.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Index = (*Client)(nil)

// NewClient returns a client for the index served at baseURL (see NewHandler).
// A nil httpClient selects a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) ExactMatch(ctx context.Context, key string) ([]HitRecord, error) {
	return c.call(ctx, OpExact, probeRequest{Key: key})
}

func (c *Client) PrefixMatch(ctx context.Context, prefix string) ([]HitRecord, error) {
	return c.call(ctx, OpPrefix, probeRequest{Key: prefix})
}

func (c *Client) RangeAbove(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	return c.call(ctx, OpAbove, probeRequest{Key: pivot, Limit: limit})
}

func (c *Client) RangeBelow(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	return c.call(ctx, OpBelow, probeRequest{Key: pivot, Limit: limit})
}

func (c *Client) call(ctx context.Context, op string, body probeRequest) ([]HitRecord, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, unavailable(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/"+op, bytes.NewReader(payload))
	if err != nil {
		return nil, unavailable(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := kit.GetRequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, unavailable(op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	var out probeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, unavailable(op, fmt.Errorf("decode response: %w", err))
	}
	return out.Hits, nil
}

// NewHandler serves idx over the protocol spoken by Client:
// POST /v1/{exact|prefix|above|below} with {"key","limit"}.
func NewHandler(idx Index) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/{op}", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
		var req probeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		ctx := r.Context()
		if id := r.Header.Get(RequestIDHeader); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}

		var hits []HitRecord
		var err error
		switch op := r.PathValue("op"); op {
		case OpExact:
			hits, err = idx.ExactMatch(ctx, req.Key)
		case OpPrefix:
			hits, err = idx.PrefixMatch(ctx, req.Key)
		case OpAbove:
			hits, err = idx.RangeAbove(ctx, req.Key, req.Limit)
		case OpBelow:
			hits, err = idx.RangeBelow(ctx, req.Key, req.Limit)
		default:
			writeError(w, http.StatusNotFound, "unknown operation "+op)
			return
		}
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if hits == nil {
			hits = []HitRecord{}
		}
		writeJSON(w, http.StatusOK, probeResponse{Hits: hits})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
