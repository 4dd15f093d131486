package search

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/alphasearch/pkg/index"
)

// Assembler builds the window around a resolved anchor.
type Assembler struct {
	idx index.Index
}

// NewAssembler returns an Assembler over idx.
func NewAssembler(idx index.Index) *Assembler {
	return &Assembler{idx: idx}
}

// Assemble fetches up to RowsAbove entries before the pivot and up to
// RowsBelow after it, concurrently, and returns them in ascending order with
// the anchor between them. Either failure fails the whole window.
func (a *Assembler) Assemble(ctx context.Context, searchType string, anchor CompanyRecord, pivot string) (*Window, error) {
	var above, below []index.HitRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := a.idx.RangeAbove(gctx, pivot, RowsAbove)
		if err != nil {
			return fmt.Errorf("range above %q: %w", pivot, err)
		}
		above = hits
		return nil
	})
	g.Go(func() error {
		hits, err := a.idx.RangeBelow(gctx, pivot, RowsBelow)
		if err != nil {
			return fmt.Errorf("range below %q: %w", pivot, err)
		}
		below = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	above = neighbours(above, pivot, RowsAbove)
	below = neighbours(below, pivot, RowsBelow)
	slices.Reverse(above)

	before, err := MapHits(above)
	if err != nil {
		return nil, err
	}
	after, err := MapHits(below)
	if err != nil {
		return nil, err
	}

	results := make([]CompanyRecord, 0, len(before)+1+len(after))
	results = append(results, before...)
	results = append(results, anchor)
	results = append(results, after...)

	return &Window{
		SearchType:    searchType,
		BestMatchName: anchor.CorporateName,
		Results:       results,
	}, nil
}

// neighbours drops any hit on the pivot itself and caps the count, so a
// backend that is loose about range exclusivity cannot duplicate the anchor.
func neighbours(hits []index.HitRecord, pivot string, limit int) []index.HitRecord {
	out := make([]index.HitRecord, 0, min(len(hits), limit))
	for _, h := range hits {
		if h.Key == pivot {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, h)
	}
	return out
}
