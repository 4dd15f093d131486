package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/api"
	"github.com/hazyhaar/alphasearch/pkg/chassis"
	"github.com/hazyhaar/alphasearch/pkg/importer"
	"github.com/hazyhaar/alphasearch/pkg/index"
	"github.com/hazyhaar/alphasearch/pkg/metrics"
	"github.com/hazyhaar/alphasearch/pkg/search"
)

var version = "dev"

// lastUpdatedSource is the adapter whose import time backs
// /dissolved-search/last-updated.
const lastUpdatedSource = "companies-house-uk"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: alphasearch <command>\n\nCommands:\n  serve   Start the search server\n  import  Load company records into the index\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	boot := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := loadConfig(*cfgPath, boot)
	if err != nil {
		boot.Error("config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config, logger *slog.Logger) error {
	suffixes, err := alphakey.LoadSuffixTable(cfg.SuffixesFile)
	if err != nil {
		return err
	}
	normalizer := alphakey.NewNormalizer(suffixes)
	logger.Info("suffix table loaded", "endings", suffixes.Len())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	live, dissolved, closeIndex, err := openIndexes(cfg.Index)
	if err != nil {
		return err
	}
	defer closeIndex()

	liveIx := index.Instrument(live, cfg.Index.Timeout, m)
	dissolvedIx := index.Instrument(dissolved, cfg.Index.Timeout, m)

	liveSvc := search.NewService(search.Config{
		SearchType: search.TypeAlphabetical,
		Index:      liveIx,
		Normalizer: normalizer,
		Metrics:    m,
		Logger:     logger,
	})
	dissolvedSvc := search.NewService(search.Config{
		SearchType: search.TypeDissolved,
		Index:      dissolvedIx,
		Normalizer: normalizer,
		Metrics:    m,
		Logger:     logger,
	})

	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		return err
	}
	defer sdb.Close()
	if err := sdb.Seed(importer.All()); err != nil {
		return err
	}
	if cfg.SourceCheckInterval > 0 {
		checker := importer.NewChecker(sdb, logger, cfg.SourceCheckInterval)
		checker.MaxAge = cfg.StaleAfter
		go checker.Start(ctx)
	}

	mcpSrv := server.NewMCPServer("alphasearch", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(mcpSrv, liveSvc, dissolvedSvc, logger)

	opts := api.Options{
		Live:      liveSvc,
		Dissolved: dissolvedSvc,
		LastUpdated: func(ctx context.Context) (time.Time, bool, error) {
			return sdb.LastImport(ctx, lastUpdatedSource)
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MCP:     mcpSrv,
		Logger:  logger,
	}
	if cfg.RateLimit.RPS > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), max(cfg.RateLimit.Burst, 1))
	}
	if cfg.ExposeIndex {
		opts.Index = live
		opts.DissolvedIx = dissolved
	}
	router := api.NewRouter(opts)

	if cfg.TLS.Enabled {
		return serveTLS(ctx, cfg, router, logger)
	}
	return servePlain(ctx, cfg.Addr, router, logger)
}

// openIndexes returns the live and dissolved corpora for the configured
// backend, plus a func releasing them.
func openIndexes(cfg indexConfig) (live, dissolved index.Index, closeFn func(), err error) {
	switch cfg.Backend {
	case "remote":
		client := &http.Client{}
		live = index.NewClient(cfg.RemoteURL, client)
		dissolvedURL := cfg.RemoteDissolvedURL
		if dissolvedURL == "" {
			dissolvedURL = cfg.RemoteURL + "/dissolved"
		}
		dissolved = index.NewClient(dissolvedURL, client)
		return live, dissolved, func() {}, nil
	default:
		db, err := index.Open(cfg.Path, cfg.MatchLimit)
		if err != nil {
			return nil, nil, nil, err
		}
		liveStore, err := db.Corpus(index.CorpusCompanies)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		dissolvedStore, err := db.Corpus(index.CorpusDissolved)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return liveStore, dissolvedStore, func() { db.Close() }, nil
	}
}

func servePlain(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("alphasearch listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveTLS(ctx context.Context, cfg config, h http.Handler, logger *slog.Logger) error {
	srv, err := chassis.New(chassis.Config{
		Addr:     cfg.Addr,
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
		Handler:  h,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	startErr := srv.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("chassis stop", "error", err)
	}
	return startErr
}
