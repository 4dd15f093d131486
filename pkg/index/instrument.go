package index

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/alphasearch/pkg/kit"
	"github.com/hazyhaar/alphasearch/pkg/metrics"
)

// Instrumented wraps an Index with a per-query timeout and metrics.
type Instrumented struct {
	next    Index
	timeout time.Duration
	metrics *metrics.Metrics
}

var _ Index = (*Instrumented)(nil)

// Instrument wraps idx. A zero timeout disables the per-query deadline; a nil
// m records nothing. A query that runs past its deadline fails with
// ErrUnavailable. Queries are labelled with the search type carried by the
// context, "other" when there is none.
func Instrument(idx Index, timeout time.Duration, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: idx, timeout: timeout, metrics: m}
}

func (i *Instrumented) ExactMatch(ctx context.Context, key string) ([]HitRecord, error) {
	return i.do(ctx, OpExact, func(ctx context.Context) ([]HitRecord, error) {
		return i.next.ExactMatch(ctx, key)
	})
}

func (i *Instrumented) PrefixMatch(ctx context.Context, prefix string) ([]HitRecord, error) {
	return i.do(ctx, OpPrefix, func(ctx context.Context) ([]HitRecord, error) {
		return i.next.PrefixMatch(ctx, prefix)
	})
}

func (i *Instrumented) RangeAbove(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	return i.do(ctx, OpAbove, func(ctx context.Context) ([]HitRecord, error) {
		return i.next.RangeAbove(ctx, pivot, limit)
	})
}

func (i *Instrumented) RangeBelow(ctx context.Context, pivot string, limit int) ([]HitRecord, error) {
	return i.do(ctx, OpBelow, func(ctx context.Context) ([]HitRecord, error) {
		return i.next.RangeBelow(ctx, pivot, limit)
	})
}

func (i *Instrumented) do(ctx context.Context, op string, fn func(context.Context) ([]HitRecord, error)) ([]HitRecord, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	hits, err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	status := "ok"
	if err != nil {
		status = "error"
		if !errors.Is(err, ErrUnavailable) {
			err = unavailable(op, err)
		}
		hits = nil
	}
	searchType := kit.GetSearchType(ctx)
	if searchType == "" {
		searchType = "other"
	}
	i.metrics.RecordIndexQuery(searchType, op, status, time.Since(start))
	return hits, err
}
