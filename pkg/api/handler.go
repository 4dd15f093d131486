package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/hazyhaar/alphasearch/pkg/index"
	"github.com/hazyhaar/alphasearch/pkg/kit"
	"github.com/hazyhaar/alphasearch/pkg/search"
)

// Options wires the router. Only Live is required.
type Options struct {
	Live        Searcher
	Dissolved   Searcher        // enables /dissolved-search/companies
	LastUpdated LastUpdatedFunc // enables /dissolved-search/last-updated
	Index       index.Index     // served at /index/v1/* when set
	DissolvedIx index.Index     // served at /index/dissolved/v1/* when set
	Metrics     http.Handler    // served at /metrics when set
	MCP         *server.MCPServer
	Limiter     *rate.Limiter // applies to search routes
	Logger      *slog.Logger
}

// NewRouter returns an http.Handler with all search API routes.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()
	h := &handler{logger: logger}

	h.live = kit.Chain(kit.Logging(logger, "alphabetical_search"))(searchEndpoint(opts.Live))
	searchRoute := rateLimit(opts.Limiter, http.HandlerFunc(h.handleAlphabetical))
	mux.Handle("GET /alphabetical-search/corporate-name", searchRoute)

	if opts.Dissolved != nil {
		h.dissolved = kit.Chain(kit.Logging(logger, "dissolved_search"))(searchEndpoint(opts.Dissolved))
		mux.Handle("GET /dissolved-search/companies", rateLimit(opts.Limiter, http.HandlerFunc(h.handleDissolved)))
	}
	if opts.LastUpdated != nil {
		h.lastUpdated = lastUpdatedEndpoint(opts.LastUpdated)
		mux.HandleFunc("GET /dissolved-search/last-updated", h.handleLastUpdated)
	}

	mux.HandleFunc("GET /v1/health", h.handleHealth)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	if opts.MCP != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(opts.MCP))
	}
	if opts.Index != nil {
		mux.Handle("/index/", http.StripPrefix("/index", index.NewHandler(opts.Index)))
	}
	if opts.DissolvedIx != nil {
		mux.Handle("/index/dissolved/", http.StripPrefix("/index/dissolved", index.NewHandler(opts.DissolvedIx)))
	}

	return cors(requestID(accessLog(logger, mux)))
}

type handler struct {
	live        kit.Endpoint
	dissolved   kit.Endpoint
	lastUpdated kit.Endpoint
	logger      *slog.Logger
}

// --- alphabetical search ---

func (h *handler) handleAlphabetical(w http.ResponseWriter, r *http.Request) {
	h.serveSearch(w, r, h.live)
}

// --- dissolved search ---

func (h *handler) handleDissolved(w http.ResponseWriter, r *http.Request) {
	if t := r.URL.Query().Get("search_type"); t != "" && t != "alphabetical" {
		writeError(w, http.StatusBadRequest, "unsupported search_type "+t)
		return
	}
	h.serveSearch(w, r, h.dissolved)
}

func (h *handler) serveSearch(w http.ResponseWriter, r *http.Request, ep kit.Endpoint) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}

	resp, err := ep(r.Context(), &searchReq{Name: q})
	if err != nil {
		writeError(w, http.StatusInternalServerError, searchErrorMessage(err))
		return
	}
	res := resp.(search.Response)
	if res.Status != search.StatusFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": res.Status})
		return
	}
	writeJSON(w, http.StatusOK, res.Window)
}

func searchErrorMessage(err error) string {
	var me *search.MappingError
	switch {
	case errors.As(err, &me):
		return "corrupt index record"
	case errors.Is(err, index.ErrUnavailable):
		return "index unavailable"
	default:
		return "search failed"
	}
}

// --- last updated ---

func (h *handler) handleLastUpdated(w http.ResponseWriter, r *http.Request) {
	resp, err := h.lastUpdated(r.Context(), nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "last updated", "error", err)
		writeError(w, http.StatusInternalServerError, "last updated unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
