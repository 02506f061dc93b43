// Package mcpserver exposes the query pipeline as Model Context Protocol
// tools so coding assistants can look up guidance over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// Engine is the query pipeline served by the tools.
type Engine interface {
	Search(ctx context.Context, query, domain string, limit int) (*executor.SearchResult, error)
	SearchContent(ctx context.Context, query, language string, limit int) (*executor.ContentSearchResult, error)
	Recommend(ctx context.Context, query, language string, resourceLimit, contentLimit int) (*executor.Recommendation, error)
}

// SearchArgs are the arguments of the search tool.
type SearchArgs struct {
	Query  string `json:"query" jsonschema:"Free-text query, e.g. 'python type hints' or 'rust error handling'"`
	Domain string `json:"domain,omitempty" jsonschema:"One of resource, language, category. Detected from the query when empty."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 5)"`
	Format string `json:"format,omitempty" jsonschema:"Output format: text (default) or json"`
}

// ContentArgs are the arguments of the search_content tool.
type ContentArgs struct {
	Query    string `json:"query" jsonschema:"Free-text query matched against article titles and bodies"`
	Language string `json:"language,omitempty" jsonschema:"Restrict to articles whose title, category or subcategory mention this language"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 3)"`
	Format   string `json:"format,omitempty" jsonschema:"Output format: text (default) or json"`
}

// RecommendArgs are the arguments of the recommend tool.
type RecommendArgs struct {
	Query    string `json:"query" jsonschema:"Topic to get recommendations for"`
	Language string `json:"language,omitempty" jsonschema:"Programming language to focus on"`
	Format   string `json:"format,omitempty" jsonschema:"Output format: text (default) or json"`
}

// Server wraps an MCP server with the search tools registered.
type Server struct {
	engine Engine
	mcp    *mcp.Server
	logger *slog.Logger
}

// New creates a server and registers its tools.
func New(engine Engine, version string) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default().With("component", "mcp-server"),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "devguide",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "Ranked lookup of programming best-practice resources, language guides, topic categories and crawled articles. Use recommend for a combined answer, search for one table, search_content for article bodies.",
	})
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped with error", "error", err)
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the best-practice tables (resources, languages, categories) with BM25 ranking.",
	}, s.handleSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_content",
		Description: "Deep search inside crawled best-practice articles, optionally filtered by language.",
	}, s.handleSearchContent)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recommend",
		Description: "Top resources and matching articles for a topic in one report.",
	}, s.handleRecommend)
	s.logger.Debug("mcp tools registered", "count", 3)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if err := validate(args.Query, args.Format); err != nil {
		return nil, nil, err
	}
	res, err := s.engine.Search(ctx, args.Query, strings.ToLower(args.Domain), args.Limit)
	if err != nil {
		return nil, nil, err
	}
	return render(args.Format, res, func(r *report.Renderer) error { return r.Search(res) })
}

func (s *Server) handleSearchContent(ctx context.Context, _ *mcp.CallToolRequest, args ContentArgs) (*mcp.CallToolResult, any, error) {
	if err := validate(args.Query, args.Format); err != nil {
		return nil, nil, err
	}
	res, err := s.engine.SearchContent(ctx, args.Query, args.Language, args.Limit)
	if err != nil {
		return nil, nil, err
	}
	return render(args.Format, res, func(r *report.Renderer) error { return r.Content(res) })
}

func (s *Server) handleRecommend(ctx context.Context, _ *mcp.CallToolRequest, args RecommendArgs) (*mcp.CallToolResult, any, error) {
	if err := validate(args.Query, args.Format); err != nil {
		return nil, nil, err
	}
	rec, err := s.engine.Recommend(ctx, args.Query, args.Language, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return render(args.Format, rec, func(r *report.Renderer) error { return r.Recommendation(rec) })
}

func validate(query, format string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", apperrors.ErrInvalidInput)
	}
	switch format {
	case "", formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("%w: format must be %q or %q, got %q", apperrors.ErrInvalidInput, formatText, formatJSON, format)
	}
}

func render(format string, v any, text func(*report.Renderer) error) (*mcp.CallToolResult, any, error) {
	var buf bytes.Buffer
	var err error
	if format == formatJSON {
		err = report.JSON(&buf, v)
	} else {
		err = text(report.NewRenderer(&buf, false))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rendering result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, nil, nil
}
