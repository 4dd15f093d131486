package search

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/alphasearch/pkg/alphakey"
	"github.com/hazyhaar/alphasearch/pkg/index"
	"github.com/hazyhaar/alphasearch/pkg/kit"
	"github.com/hazyhaar/alphasearch/pkg/metrics"
)

// Service runs alphabetical searches for one search family over one index.
type Service struct {
	searchType string
	normalizer *alphakey.Normalizer
	resolver   *Resolver
	assembler  *Assembler
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Config wires a Service.
type Config struct {
	SearchType string // TypeAlphabetical or TypeDissolved
	Index      index.Index
	Normalizer *alphakey.Normalizer // nil selects the default ending table
	Metrics    *metrics.Metrics     // optional
	Logger     *slog.Logger         // optional
}

// NewService returns a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	norm := cfg.Normalizer
	if norm == nil {
		norm = alphakey.NewNormalizer(nil)
	}
	searchType := cfg.SearchType
	if searchType == "" {
		searchType = TypeAlphabetical
	}
	logger = logger.With("search_type", searchType)
	return &Service{
		searchType: searchType,
		normalizer: norm,
		resolver:   NewResolver(cfg.Index, logger),
		assembler:  NewAssembler(cfg.Index),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// SearchType returns the search family label.
func (s *Service) SearchType() string { return s.searchType }

// Search resolves rawName to its alphabetical window. No match is reported
// as StatusNotFound with a nil error. Index failures (wrapping
// index.ErrUnavailable) and corrupt records (*MappingError) return a
// StatusError response and the error; no partial window is ever returned.
// requestID is only used for correlation.
func (s *Service) Search(ctx context.Context, rawName, requestID string) (Response, error) {
	if requestID != "" {
		ctx = kit.WithRequestID(ctx, requestID)
	}
	ctx = kit.WithSearchType(ctx, s.searchType)
	log := s.logger.With("request_id", kit.GetRequestID(ctx))

	name := s.normalizer.Normalize(rawName)
	log.InfoContext(ctx, "search started", "name", rawName, "key", name.OrderedAlphaKey)

	res, ok, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return s.fail(ctx, log, err)
	}
	if !ok {
		log.InfoContext(ctx, "search not found", "key", name.OrderedAlphaKey)
		s.metrics.RecordSearch(s.searchType, StatusNotFound, 0)
		return Response{Status: StatusNotFound}, nil
	}
	s.metrics.RecordResolve(s.searchType, string(res.Tier), res.Attempts)

	anchor, err := MapHit(res.Anchor)
	if err != nil {
		return s.fail(ctx, log, err)
	}
	window, err := s.assembler.Assemble(ctx, s.searchType, anchor, res.Pivot)
	if err != nil {
		return s.fail(ctx, log, err)
	}

	log.InfoContext(ctx, "search found",
		"tier", res.Tier, "attempts", res.Attempts, "top_hit", window.BestMatchName, "rows", len(window.Results))
	s.metrics.RecordSearch(s.searchType, StatusFound, len(window.Results))
	return Response{Status: StatusFound, Window: window}, nil
}

func (s *Service) fail(ctx context.Context, log *slog.Logger, err error) (Response, error) {
	log.ErrorContext(ctx, "search failed", "error", err)
	s.metrics.RecordSearch(s.searchType, StatusError, 0)
	return Response{Status: StatusError}, err
}
