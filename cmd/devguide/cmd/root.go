// Package cmd provides the CLI commands for devguide.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// queryOptions are the flags of the one-shot query commands.
type queryOptions struct {
	domain    string
	lang      string
	max       int
	json      bool
	content   bool
	recommend bool
}

// NewRootCmd creates the root command. Without a subcommand it searches the
// tabular domains; --content and --recommend select the other query modes.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "devguide <query>",
		Short: "BM25 search over programming best-practice guides",
		Long: `devguide ranks best-practice resources, language guides, topic
categories and crawled articles against a free-text query.

Examples:
  devguide "python type hints"
  devguide "ownership" --domain language
  devguide "error handling" --content --lang go
  devguide "testing" --recommend --lang python
  devguide "concurrency" --json`,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			switch {
			case opts.recommend:
				return runRecommend(cmd, g, query, opts)
			case opts.content:
				return runContent(cmd, g, query, opts)
			default:
				return runSearch(cmd, g, query, opts)
			}
		},
	}
	cmd.SetVersionTemplate("devguide version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the log level: debug, info, warn, error")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return g.load(cmd)
	}

	addQueryFlags(cmd, &opts, true)
	cmd.Flags().BoolVarP(&opts.content, "content", "c", false, "Deep search within crawled content files")
	cmd.Flags().BoolVarP(&opts.recommend, "recommend", "r", false, "Combined report of resources and content")

	cmd.AddCommand(newContentCmd(g))
	cmd.AddCommand(newRecommendCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	cmd.AddCommand(newAnalyticsCmd(g))

	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func addQueryFlags(cmd *cobra.Command, opts *queryOptions, withDomain bool) {
	if withDomain {
		cmd.Flags().StringVarP(&opts.domain, "domain", "d", "", "Search domain: resource, language, category (detected when empty)")
	}
	cmd.Flags().StringVarP(&opts.lang, "lang", "l", "", "Filter content by language")
	cmd.Flags().IntVarP(&opts.max, "max", "n", 0, "Maximum number of results (default 5, content 3)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
}

// load reads configuration and installs the logger. Logs go to stderr so
// that stdout carries only results.
func (g *globalOptions) load(cmd *cobra.Command) error {
	var err error
	if g.configPath != "" {
		g.cfg, err = config.Load(g.configPath)
		if err != nil {
			return err
		}
	} else {
		g.cfg = config.Default()
		if err := g.cfg.Validate(); err != nil {
			return err
		}
	}
	if g.logLevel != "" {
		g.cfg.Logging.Level = g.logLevel
	}
	logger.Setup(g.cfg.Logging.Level, g.cfg.Logging.Format, cmd.ErrOrStderr())
	return nil
}

func runSearch(cmd *cobra.Command, g *globalOptions, query string, opts queryOptions) error {
	s := executor.New(g.cfg, nil)
	res, err := s.Search(cmd.Context(), query, strings.ToLower(opts.domain), opts.max)
	if err != nil {
		return err
	}
	if opts.json {
		return report.JSON(cmd.OutOrStdout(), res)
	}
	return renderer(cmd).Search(res)
}

func runContent(cmd *cobra.Command, g *globalOptions, query string, opts queryOptions) error {
	s := executor.New(g.cfg, nil)
	res, err := s.SearchContent(cmd.Context(), query, opts.lang, opts.max)
	if err != nil {
		return err
	}
	if opts.json {
		return report.JSON(cmd.OutOrStdout(), res)
	}
	return renderer(cmd).Content(res)
}

func runRecommend(cmd *cobra.Command, g *globalOptions, query string, opts queryOptions) error {
	s := executor.New(g.cfg, nil)
	rec, err := s.Recommend(cmd.Context(), query, opts.lang, opts.max, 0)
	if err != nil {
		return err
	}
	if opts.json {
		return report.JSON(cmd.OutOrStdout(), rec)
	}
	return renderer(cmd).Recommendation(rec)
}

func renderer(cmd *cobra.Command) *report.Renderer {
	out := cmd.OutOrStdout()
	f, ok := out.(*os.File)
	return report.NewRenderer(out, ok && report.IsTerminal(f))
}

func newContentCmd(g *globalOptions) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "content <query>",
		Short: "Deep search within crawled content files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContent(cmd, g, strings.Join(args, " "), opts)
		},
	}
	addQueryFlags(cmd, &opts, false)
	return cmd
}

func newRecommendCmd(g *globalOptions) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Combined report of top resources and matching articles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, g, strings.Join(args, " "), opts)
		},
	}
	addQueryFlags(cmd, &opts, false)
	return cmd
}

func newMCPCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), g.cfg)
		},
	}
}
