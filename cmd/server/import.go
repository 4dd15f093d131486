package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/importer"
	"github.com/hazyhaar/alphasearch/pkg/index"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	source := fs.String("source", "", "adapter ID to import (e.g. companies-house-uk)")
	all := fs.Bool("all", false, "import all available sources")
	url := fs.String("url", "", "override the source URL or local path for this run")
	workDir := fs.String("work-dir", "data/tmp", "scratch directory for downloads")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := loadConfig(*cfgPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Index.Backend != "sqlite" {
		fmt.Fprintf(os.Stderr, "Error: import needs the sqlite index backend, got %q\n", cfg.Index.Backend)
		os.Exit(1)
	}

	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sources db: %v\n", err)
		os.Exit(1)
	}
	defer sdb.Close()

	if err := sdb.Seed(importer.All()); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding sources: %v\n", err)
		os.Exit(1)
	}

	if !*all && *source == "" {
		fmt.Println("Available sources:")
		fmt.Println()
		sources, _ := sdb.ListSources()
		for _, src := range sources {
			status := ""
			if src.LastStatus != nil {
				status = fmt.Sprintf("  [%d]", *src.LastStatus)
			}
			fmt.Printf("  %-25s  %s  (-> %s)%s\n", src.AdapterID, src.Description, src.Corpus, status)
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  alphasearch import --source <id> [--url <url|path>] [--config <file>]")
		fmt.Println("  alphasearch import --all [--config <file>]")
		return
	}

	suffixes, err := alphakey.LoadSuffixTable(cfg.SuffixesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := index.Open(cfg.Index.Path, cfg.Index.MatchLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	live, err := db.Corpus(index.CorpusCompanies)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dissolved, err := db.Corpus(index.CorpusDissolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sink := &importer.Sink{
		Live:       live,
		Dissolved:  dissolved,
		Normalizer: alphakey.NewNormalizer(suffixes),
		WorkDir:    *workDir,
		Logger:     logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	if *all {
		failed := false
		for _, a := range importer.All() {
			if err := runImport(ctx, sdb, a, "", sink); err != nil {
				fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", a.ID(), err)
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Println("\nAvailable sources:")
		for _, a := range importer.All() {
			fmt.Printf("  %s\n", a.ID())
		}
		os.Exit(1)
	}
	if err := runImport(ctx, sdb, a, *url, sink); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", a.ID(), err)
		os.Exit(1)
	}
}

// runImport loads one adapter into sink and records the run. An empty
// override uses the URL stored in the sources db.
func runImport(ctx context.Context, sdb *importer.SourceDB, a importer.Adapter, override string, sink *importer.Sink) error {
	src := override
	if src == "" {
		var err error
		if src, err = sdb.GetURL(a.ID()); err != nil {
			return fmt.Errorf("url: %w", err)
		}
	}

	fmt.Printf("[%s] Importing from %s...\n", a.ID(), src)
	start := time.Now()
	stats, err := a.Import(ctx, src, sink)
	if err != nil {
		return err
	}
	if err := sdb.RecordImport(a.ID(), time.Now().UTC(), stats.Total()); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	fmt.Printf("[%s] OK: %d live, %d dissolved, %d skipped in %s\n",
		a.ID(), stats.Live, stats.Dissolved, stats.Skipped, time.Since(start).Round(time.Millisecond))
	return nil
}
