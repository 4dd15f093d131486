package api

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/alphasearch/pkg/kit"
	"github.com/hazyhaar/alphasearch/pkg/search"
)

// Searcher runs one search family. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, rawName, requestID string) (search.Response, error)
	SearchType() string
}

// LastUpdatedFunc reports when the dissolved corpus was last loaded.
// ok is false when it never was.
type LastUpdatedFunc func(ctx context.Context) (t time.Time, ok bool, err error)

// Shared request/response types used by both HTTP and MCP transports.

type searchReq struct {
	Name string
}

type lastUpdatedResponse struct {
	LastUpdated *time.Time `json:"last_updated"`
}

// searchEndpoint wraps a Searcher. The request id travels in the context.
func searchEndpoint(s Searcher) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*searchReq)
		return s.Search(ctx, req.Name, kit.GetRequestID(ctx))
	}
}

func lastUpdatedEndpoint(fn LastUpdatedFunc) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		t, ok, err := fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("last updated: %w", err)
		}
		if !ok {
			return lastUpdatedResponse{}, nil
		}
		t = t.UTC()
		return lastUpdatedResponse{LastUpdated: &t}, nil
	}
}
