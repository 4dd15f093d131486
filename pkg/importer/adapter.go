package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/index"
)

// Adapter defines a corpus source that downloads company records and loads
// them into the alphabetical index.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "companies-house-uk").
	ID() string
	// Corpus names the corpora this adapter fills (e.g. "companies+dissolved_companies").
	Corpus() string
	// Description returns a human-readable description.
	Description() string
	// DefaultURL returns the default source URL used for seeding the database.
	DefaultURL() string
	// License returns the license identifier for this source (e.g. "OGL v3").
	License() string
	// Import reads the source at sourceURL (an http(s) URL or a local path)
	// and writes its records into sink.
	Import(ctx context.Context, sourceURL string, sink *Sink) (Stats, error)
}

// Writer is the write side of a corpus. *index.Store implements it. An
// import replaces the corpus through one Loader, so a failed run leaves the
// previous contents searchable.
type Writer interface {
	BeginLoad(ctx context.Context) (index.Loader, error)
}

// Sink is where an import lands.
type Sink struct {
	Live       Writer
	Dissolved  Writer // nil drops dissolved records
	Normalizer *alphakey.Normalizer
	WorkDir    string // scratch space for downloads
	BatchSize  int    // entries per transaction, default 5000
	Logger     *slog.Logger
}

// Stats counts what an import wrote.
type Stats struct {
	Live      int
	Dissolved int
	Skipped   int
}

func (s Stats) Total() int { return s.Live + s.Dissolved }

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID, or an error if not found.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// batcher buffers entries for one corpus load and flushes them in
// transactions.
type batcher struct {
	ctx     context.Context
	w       index.Loader
	size    int
	pending []index.Entry
	written int
}

func newBatcher(ctx context.Context, w index.Loader, size int) *batcher {
	if size <= 0 {
		size = 5000
	}
	return &batcher{ctx: ctx, w: w, size: size}
}

func (b *batcher) add(e index.Entry) error {
	b.pending = append(b.pending, e)
	if len(b.pending) >= b.size {
		return b.flush()
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.w.Put(b.ctx, b.pending); err != nil {
		return err
	}
	b.written += len(b.pending)
	b.pending = b.pending[:0]
	return nil
}
