package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/index"
)

// MaxPeelBackAttempts bounds the prefix queries issued by the peel-back tier.
const MaxPeelBackAttempts = 25

// State is a resolver state.
type State int

const (
	StateTryExact State = iota
	StateTryPrefix
	StatePeelBack
	StateResolved
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateTryExact:
		return "TRY_EXACT"
	case StateTryPrefix:
		return "TRY_PREFIX"
	case StatePeelBack:
		return "PEEL_BACK"
	case StateResolved:
		return "RESOLVED"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tier names the fallback tier that produced the anchor.
type Tier string

const (
	TierExact    Tier = "exact"
	TierPrefix   Tier = "prefix"
	TierPeelBack Tier = "peel_back"
)

// Resolution is a resolved anchor.
type Resolution struct {
	Anchor   index.HitRecord
	Pivot    string // anchor key with id, used verbatim for the window ranges
	Tier     Tier
	Probe    string // the key of the query that hit
	Attempts int    // peel-back queries issued, zero for the exact and prefix tiers
}

// Resolver finds the anchor for a name by widening the probe one tier at a
// time. Tiers run sequentially since each depends on the previous one being
// empty.
type Resolver struct {
	idx    index.Index
	logger *slog.Logger
}

// NewResolver returns a Resolver over idx. A nil logger discards output.
func NewResolver(idx index.Index, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{idx: idx, logger: logger}
}

// Resolve runs TRY_EXACT, TRY_PREFIX then PEEL_BACK. It returns ok=false
// when every tier came back empty, which is not an error. An empty key
// resolves to no match without querying the index.
func (r *Resolver) Resolve(ctx context.Context, name alphakey.Name) (Resolution, bool, error) {
	key := name.OrderedAlphaKey
	if key == "" {
		return Resolution{}, false, nil
	}

	var (
		res      Resolution
		schedule []string
		next     int
	)
	state := StateTryExact
	for {
		switch state {
		case StateTryExact:
			hits, err := r.idx.ExactMatch(ctx, key)
			if err != nil {
				return Resolution{}, false, fmt.Errorf("exact match %q: %w", key, err)
			}
			if len(hits) > 0 {
				res = resolution(hits[0], TierExact, key)
				state = StateResolved
				continue
			}
			state = StateTryPrefix

		case StateTryPrefix:
			hits, err := r.idx.PrefixMatch(ctx, key)
			if err != nil {
				return Resolution{}, false, fmt.Errorf("prefix match %q: %w", key, err)
			}
			if len(hits) > 0 {
				res = resolution(hits[0], TierPrefix, key)
				state = StateResolved
				continue
			}
			schedule = PeelBackSchedule(name)
			state = StatePeelBack

		case StatePeelBack:
			if next >= len(schedule) || next >= MaxPeelBackAttempts {
				state = StateExhausted
				continue
			}
			probe := schedule[next]
			next++
			hits, err := r.idx.PrefixMatch(ctx, probe)
			if err != nil {
				return Resolution{}, false, fmt.Errorf("peel-back %q: %w", probe, err)
			}
			if len(hits) > 0 {
				res = resolution(hits[0], TierPeelBack, probe)
				res.Attempts = next
				state = StateResolved
			}

		case StateResolved:
			r.logger.DebugContext(ctx, "anchor resolved",
				"key", key, "tier", res.Tier, "probe", res.Probe, "pivot", res.Pivot, "attempts", res.Attempts)
			return res, true, nil

		case StateExhausted:
			r.logger.DebugContext(ctx, "no anchor", "key", key, "attempts", next)
			return Resolution{}, false, nil
		}
	}
}

func resolution(hit index.HitRecord, tier Tier, probe string) Resolution {
	return Resolution{Anchor: hit, Pivot: hit.Key, Tier: tier, Probe: probe}
}

// PeelBackSchedule returns the prefix probes tried after the exact key:
// the key shortened one rune at a time, longest first, followed by the
// generated probes not already covered. The exact key itself is excluded.
func PeelBackSchedule(name alphakey.Name) []string {
	key := []rune(name.OrderedAlphaKey)
	seen := map[string]bool{name.OrderedAlphaKey: true}
	var schedule []string
	for l := len(key) - 1; l >= 1; l-- {
		p := string(key[:l])
		if !seen[p] {
			seen[p] = true
			schedule = append(schedule, p)
		}
	}
	for _, p := range alphakey.GenerateProbes(name) {
		if !seen[p] {
			seen[p] = true
			schedule = append(schedule, p)
		}
	}
	return schedule
}
