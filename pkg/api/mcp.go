package api

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/alphasearch/pkg/kit"
)

// RegisterMCPTools registers one search tool per configured search family.
// The tools return the window as JSON, or a not-found status.
func RegisterMCPTools(srv *server.MCPServer, live, dissolved Searcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registerSearchTool(srv, logger, "alphabetical_search",
		"Find the alphabetical neighbours of a company name among registered companies. Returns up to 20 companies in name order around the closest match.",
		live)
	if dissolved != nil {
		registerSearchTool(srv, logger, "dissolved_search",
			"Find the alphabetical neighbours of a company name among dissolved companies.",
			dissolved)
	}
}

func registerSearchTool(srv *server.MCPServer, logger *slog.Logger, name, description string, s Searcher) {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("name", mcp.Required(), mcp.Description("Company name or name fragment")),
	)

	ep := kit.Chain(kit.Logging(logger, name))(searchEndpoint(s))
	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		q, err := req.RequireString("name")
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &searchReq{Name: q}}, nil
	})
}
