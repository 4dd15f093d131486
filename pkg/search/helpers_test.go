package search

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/index"
)

type fakeEntry struct {
	ordered string
	hit     index.HitRecord
}

// fakeIndex is an in-memory ordered index that records every call.
type fakeIndex struct {
	mu      sync.Mutex
	entries []fakeEntry // ascending by hit.Key
	calls   []string
	limit   int

	failOn    string // operation that fails with ErrUnavailable
	inclusive bool   // ranges include the pivot itself
}

func newFakeIndex() *fakeIndex { return &fakeIndex{limit: 20} }

func (f *fakeIndex) add(ordered, keyWithID, source string) {
	f.entries = append(f.entries, fakeEntry{ordered: ordered, hit: index.HitRecord{Key: keyWithID, Source: []byte(source)}})
	sort.Slice(f.entries, func(i, j int) bool { return f.entries[i].hit.Key < f.entries[j].hit.Key })
}

func (f *fakeIndex) record(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+key)
	if op == f.failOn {
		return fmt.Errorf("%w: %s: connection refused", index.ErrUnavailable, op)
	}
	return nil
}

func (f *fakeIndex) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

func (f *fakeIndex) ExactMatch(_ context.Context, key string) ([]index.HitRecord, error) {
	if err := f.record(index.OpExact, key); err != nil {
		return nil, err
	}
	var out []index.HitRecord
	for _, e := range f.entries {
		if e.ordered == key && len(out) < f.limit {
			out = append(out, e.hit)
		}
	}
	return out, nil
}

func (f *fakeIndex) PrefixMatch(_ context.Context, prefix string) ([]index.HitRecord, error) {
	if err := f.record(index.OpPrefix, prefix); err != nil {
		return nil, err
	}
	var out []index.HitRecord
	for _, e := range f.entries {
		if strings.HasPrefix(e.hit.Key, prefix) && len(out) < f.limit {
			out = append(out, e.hit)
		}
	}
	return out, nil
}

func (f *fakeIndex) RangeAbove(_ context.Context, pivot string, limit int) ([]index.HitRecord, error) {
	if err := f.record(index.OpAbove, pivot); err != nil {
		return nil, err
	}
	var out []index.HitRecord
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		k := f.entries[i].hit.Key
		if k < pivot || (f.inclusive && k == pivot) {
			out = append(out, f.entries[i].hit)
		}
	}
	return out, nil
}

func (f *fakeIndex) RangeBelow(_ context.Context, pivot string, limit int) ([]index.HitRecord, error) {
	if err := f.record(index.OpBelow, pivot); err != nil {
		return nil, err
	}
	var out []index.HitRecord
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		if e.hit.Key > pivot || (f.inclusive && e.hit.Key == pivot) {
			out = append(out, e.hit)
		}
	}
	return out, nil
}

// company is a corpus row used to build test indexes.
type company struct {
	name   string
	number string
}

func companyEntry(t *testing.T, norm *alphakey.Normalizer, c company) index.Entry {
	t.Helper()
	key := norm.Key(c.name)
	withID := alphakey.WithID(key, c.number)
	src, err := Document(CompanyRecord{
		ID:                    c.number,
		CorporateName:         c.name,
		CompanyNumber:         c.number,
		CompanyStatus:         "active",
		CompanyType:           "ltd",
		Links:                 Links{Self: "/company/" + c.number},
		OrderedAlphaKeyWithID: withID,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	return index.Entry{KeyWithID: withID, OrderedKey: key, Source: src}
}

func fakeCorpus(t *testing.T, companies ...company) *fakeIndex {
	t.Helper()
	norm := alphakey.NewNormalizer(nil)
	f := newFakeIndex()
	for _, c := range companies {
		e := companyEntry(t, norm, c)
		f.add(e.OrderedKey, e.KeyWithID, string(e.Source))
	}
	return f
}

func names(recs []CompanyRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.CorporateName
	}
	return out
}

func assertAscending(t *testing.T, recs []CompanyRecord) {
	t.Helper()
	for i := 1; i < len(recs); i++ {
		if recs[i-1].OrderedAlphaKeyWithID >= recs[i].OrderedAlphaKeyWithID {
			t.Fatalf("window not ascending at %d: %q >= %q",
				i, recs[i-1].OrderedAlphaKeyWithID, recs[i].OrderedAlphaKeyWithID)
		}
	}
}

func newIndexServer(t *testing.T, idx index.Index) string {
	t.Helper()
	srv := httptest.NewServer(index.NewHandler(idx))
	t.Cleanup(srv.Close)
	return srv.URL
}
