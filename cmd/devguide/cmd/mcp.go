package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/mcpserver"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
)

// runMCP preloads the corpora and serves the MCP tools over stdio. Stdout
// belongs to the protocol, so logging stays on stderr.
func runMCP(ctx context.Context, cfg *config.Config) error {
	searcher := executor.New(cfg, nil)
	if err := searcher.Warm(ctx); err != nil {
		return fmt.Errorf("warming corpora: %w", err)
	}
	domains, content := searcher.Loaded()
	slog.Info("mcp corpora loaded", "domains", domains, "content", content)
	return mcpserver.New(searcher, Version).Run(ctx)
}
