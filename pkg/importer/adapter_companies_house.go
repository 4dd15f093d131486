package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/index"
	"github.com/hazyhaar/alphasearch/pkg/search"
)

func init() {
	Register(&companiesHouseAdapter{})
}

type companiesHouseAdapter struct{}

func (a *companiesHouseAdapter) ID() string { return "companies-house-uk" }
func (a *companiesHouseAdapter) Corpus() string {
	return index.CorpusCompanies + "+" + index.CorpusDissolved
}
func (a *companiesHouseAdapter) Description() string {
	return "Companies House UK basic company data"
}
func (a *companiesHouseAdapter) DefaultURL() string {
	return "https://download.companieshouse.gov.uk/BasicCompanyDataAsOneFile-2026-10-01.zip"
}
func (a *companiesHouseAdapter) License() string { return "OGL v3" }

func (a *companiesHouseAdapter) Import(ctx context.Context, sourceURL string, sink *Sink) (Stats, error) {
	logger := sink.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	csvPath, cleanup, err := fetchCSV(ctx, sourceURL, sink.WorkDir, logger)
	if err != nil {
		return Stats{}, err
	}
	defer cleanup()

	f, err := os.Open(csvPath)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	stats, err := parseCompaniesHouse(ctx, f, sink)
	if err != nil {
		return stats, fmt.Errorf("parse: %w", err)
	}
	logger.Info("companies house import done",
		"live", stats.Live, "dissolved", stats.Dissolved, "skipped", stats.Skipped)
	return stats, nil
}

// corpusLoads holds the staged replacements of the sink's corpora.
type corpusLoads struct {
	live, dissolved index.Loader
}

func beginLoads(ctx context.Context, sink *Sink) (*corpusLoads, error) {
	live, err := sink.Live.BeginLoad(ctx)
	if err != nil {
		return nil, err
	}
	loads := &corpusLoads{live: live}
	if sink.Dissolved != nil {
		if loads.dissolved, err = sink.Dissolved.BeginLoad(ctx); err != nil {
			live.Abort(ctx)
			return nil, err
		}
	}
	return loads, nil
}

// commit swaps the dissolved corpus in first, so a failure between the two
// swaps never leaves a company missing from both.
func (l *corpusLoads) commit(ctx context.Context) error {
	if l.dissolved != nil {
		if _, err := l.dissolved.Commit(ctx); err != nil {
			return err
		}
	}
	_, err := l.live.Commit(ctx)
	return err
}

func (l *corpusLoads) abort(ctx context.Context) {
	l.live.Abort(ctx)
	if l.dissolved != nil {
		l.dissolved.Abort(ctx)
	}
}

// companiesHouseColumns locates the columns we read. Header cells are
// matched case-insensitively after trimming; the bulk file pads some of them.
type companiesHouseColumns struct {
	name, number, status, category int
}

func findColumns(header []string) (companiesHouseColumns, error) {
	cols := companiesHouseColumns{name: -1, number: -1, status: -1, category: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "companyname":
			cols.name = i
		case "companynumber":
			cols.number = i
		case "companystatus":
			cols.status = i
		case "companycategory":
			cols.category = i
		}
	}
	if cols.name < 0 {
		return cols, fmt.Errorf("column 'CompanyName' not found in header")
	}
	if cols.number < 0 {
		return cols, fmt.Errorf("column 'CompanyNumber' not found in header")
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseCompaniesHouse streams the Companies House CSV into staged loads of
// the sink's corpora and swaps them in once the whole file is read.
// Dissolved companies go to the dissolved corpus; every other status is live.
// On any error the corpora keep their previous contents.
func parseCompaniesHouse(ctx context.Context, r io.Reader, sink *Sink) (Stats, error) {
	loads, err := beginLoads(ctx, sink)
	if err != nil {
		return Stats{}, err
	}
	defer loads.abort(ctx)

	stats, err := streamCompaniesHouse(ctx, r, sink, loads)
	if err != nil {
		return stats, err
	}
	return stats, loads.commit(ctx)
}

func streamCompaniesHouse(ctx context.Context, r io.Reader, sink *Sink, loads *corpusLoads) (Stats, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := findColumns(header)
	if err != nil {
		return Stats{}, err
	}

	norm := sink.Normalizer
	if norm == nil {
		norm = alphakey.NewNormalizer(nil)
	}
	live := newBatcher(ctx, loads.live, sink.BatchSize)
	var dissolved *batcher
	if loads.dissolved != nil {
		dissolved = newBatcher(ctx, loads.dissolved, sink.BatchSize)
	}

	var stats Stats
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Skipped++
			continue
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		name := field(record, cols.name)
		number := field(record, cols.number)
		if name == "" || number == "" {
			stats.Skipped++
			continue
		}
		key := norm.Key(name)
		if key == "" {
			stats.Skipped++
			continue
		}

		status := strings.ToLower(field(record, cols.status))
		rec := search.CompanyRecord{
			ID:                    number,
			CorporateName:         name,
			CompanyNumber:         number,
			CompanyStatus:         status,
			CompanyType:           field(record, cols.category),
			Links:                 search.Links{Self: "/company/" + number},
			OrderedAlphaKeyWithID: alphakey.WithID(key, number),
		}
		src, err := search.Document(rec)
		if err != nil {
			return stats, fmt.Errorf("encode %s: %w", number, err)
		}
		entry := index.Entry{KeyWithID: rec.OrderedAlphaKeyWithID, OrderedKey: key, Source: src}

		target := live
		if status == "dissolved" {
			if dissolved == nil {
				stats.Skipped++
				continue
			}
			target = dissolved
		}
		if err := target.add(entry); err != nil {
			return stats, err
		}
	}

	if err := live.flush(); err != nil {
		return stats, err
	}
	stats.Live = live.written
	if dissolved != nil {
		if err := dissolved.flush(); err != nil {
			return stats, err
		}
		stats.Dissolved = dissolved.written
	}
	return stats, nil
}
