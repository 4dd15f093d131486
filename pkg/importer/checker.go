package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Checker watches the import sources while the server runs. Each round it
// probes every source (HEAD for URLs, stat for local files), persists the
// outcome and flags corpora whose last import is older than MaxAge.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client

	// MaxAge flags a source as stale when its last import is older. Zero
	// disables the staleness check.
	MaxAge time.Duration
	now    func() time.Time
}

// Report summarises one check round.
type Report struct {
	OK     int
	Failed int
	Stale  []string // adapter ids, never imported or older than MaxAge
}

// NewChecker returns a Checker that runs every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs a round immediately, then every interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll runs one round over every source.
func (c *Checker) CheckAll(ctx context.Context) Report {
	var rep Report
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return rep
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return rep
		}
		if c.reachable(ctx, src) {
			rep.OK++
		} else {
			rep.Failed++
		}
		if c.stale(src) {
			rep.Stale = append(rep.Stale, src.AdapterID)
		}
	}

	if len(sources) > 0 {
		c.logger.Info("source check complete",
			"total", len(sources), "ok", rep.OK, "failed", rep.Failed, "stale", len(rep.Stale))
	}
	return rep
}

func (c *Checker) reachable(ctx context.Context, src Source) bool {
	status, checkErr := c.probe(ctx, src.SourceURL)
	msg := ""
	if checkErr != nil {
		msg = checkErr.Error()
	}
	if err := c.sources.UpdateCheck(src.AdapterID, status, msg); err != nil {
		c.logger.Error("source check: update", "adapter", src.AdapterID, "error", err)
	}
	if status >= 200 && status < 400 {
		return true
	}
	c.logger.Warn("source unreachable",
		"adapter", src.AdapterID, "url", src.SourceURL, "status", status, "error", msg)
	return false
}

func (c *Checker) stale(src Source) bool {
	if c.MaxAge <= 0 {
		return false
	}
	if src.LastImport == nil {
		c.logger.Warn("corpus never imported", "adapter", src.AdapterID, "corpus", src.Corpus)
		return true
	}
	age := c.now().Sub(time.Unix(*src.LastImport, 0))
	if age <= c.MaxAge {
		return false
	}
	c.logger.Warn("corpus stale",
		"adapter", src.AdapterID, "corpus", src.Corpus, "age", age.Round(time.Minute))
	return true
}

// probe returns the HTTP status of a HEAD request, or 200 for a local file
// that exists. Network and filesystem errors report status 0.
func (c *Checker) probe(ctx context.Context, source string) (int, error) {
	if !isRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return 0, fmt.Errorf("stat %s: %w", source, err)
		}
		return http.StatusOK, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, source, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", source, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
