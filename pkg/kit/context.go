package kit

import "context"

type contextKey string

const (
	TransportKey  contextKey = "kit_transport" // "http", "mcp"
	RequestIDKey  contextKey = "kit_request_id"
	SearchTypeKey contextKey = "kit_search_type"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

// WithRequestID attaches the caller's correlation id. It is carried to logs
// and to remote index calls, never into search results.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithSearchType(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, SearchTypeKey, t)
}
func GetSearchType(ctx context.Context) string {
	v, _ := ctx.Value(SearchTypeKey).(string)
	return v
}
