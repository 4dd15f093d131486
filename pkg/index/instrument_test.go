package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hazyhaar/alphasearch/pkg/kit"
	"github.com/hazyhaar/alphasearch/pkg/metrics"
)

// slowIndex blocks every query until its context is done.
type slowIndex struct{}

func (slowIndex) ExactMatch(ctx context.Context, _ string) ([]HitRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowIndex) PrefixMatch(ctx context.Context, _ string) ([]HitRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowIndex) RangeAbove(ctx context.Context, _ string, _ int) ([]HitRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowIndex) RangeBelow(ctx context.Context, _ string, _ int) ([]HitRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestInstrument_TimeoutIsUnavailable(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	idx := Instrument(slowIndex{}, 10*time.Millisecond, m)

	_, err := idx.ExactMatch(context.Background(), "acme")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want to wrap DeadlineExceeded", err)
	}
	if got := testutil.ToFloat64(m.IndexQueriesTotal.WithLabelValues("other", OpExact, "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestInstrument_PassesThrough(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	idx := Instrument(openTestStore(t, corpus...), time.Second, m)
	ctx := context.Background()

	hits, err := idx.PrefixMatch(ctx, "acmew")
	if err != nil {
		t.Fatal(err)
	}
	equalKeys(t, "prefix", hits, "acmewidgets:03")

	if _, err := idx.RangeBelow(ctx, "acme:01", 2); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.IndexQueriesTotal.WithLabelValues("other", OpPrefix, "ok")); got != 1 {
		t.Errorf("prefix ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexQueriesTotal.WithLabelValues("other", OpBelow, "ok")); got != 1 {
		t.Errorf("below ok = %v, want 1", got)
	}
}

func TestInstrument_LabelsSearchType(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	idx := Instrument(openTestStore(t, corpus...), time.Second, m)
	ctx := kit.WithSearchType(context.Background(), "alphabetical_dissolved_search")

	if _, err := idx.ExactMatch(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.IndexQueriesTotal.WithLabelValues("alphabetical_dissolved_search", OpExact, "ok")); got != 1 {
		t.Errorf("dissolved exact = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexQueriesTotal.WithLabelValues("other", OpExact, "ok")); got != 0 {
		t.Errorf("unlabelled exact = %v, want 0", got)
	}
}
