package kit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				calls = append(calls, name)
				return next(ctx, req)
			}
		}
	}
	ep := Chain(mw("a"), mw("b"), mw("c"))(func(context.Context, any) (any, error) {
		calls = append(calls, "endpoint")
		return "ok", nil
	})

	resp, err := ep(context.Background(), nil)
	if err != nil || resp != "ok" {
		t.Fatalf("got %v, %v", resp, err)
	}
	want := []string{"a", "b", "c", "endpoint"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestLogging_PassesErrorThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := errors.New("boom")
	ep := Logging(logger, "test")(func(context.Context, any) (any, error) {
		return nil, boom
	})
	if _, err := ep(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("default transport = %q, want http", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("default request id = %q, want empty", got)
	}

	ctx = WithTransport(ctx, "mcp")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSearchType(ctx, "alphabetical_search")
	if GetTransport(ctx) != "mcp" || GetRequestID(ctx) != "req-1" || GetSearchType(ctx) != "alphabetical_search" {
		t.Errorf("context values not carried: %q %q %q", GetTransport(ctx), GetRequestID(ctx), GetSearchType(ctx))
	}
}
