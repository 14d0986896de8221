// Command semantica analyzes search competitors for a keyword set and scores,
// writes or optimizes content against the stored analysis.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cognicore/semantica/internal/logger"
	"github.com/cognicore/semantica/pkg/semantica"
	"github.com/cognicore/semantica/pkg/semantica/config"
	"github.com/cognicore/semantica/pkg/semantica/normalize"
	"github.com/cognicore/semantica/pkg/semantica/store/sqlite"
)

type globalFlags struct {
	configPath      string
	identity        string
	metricsTextfile string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "semantica",
		Short:         "Semantic SEO analysis, scoring and content generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (optional)")
	root.PersistentFlags().StringVar(&flags.identity, "identity", semantica.DefaultIdentity, "client identity charged for analyses")
	root.PersistentFlags().StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		analyzeCommand(flags),
		reportCommand(flags),
		scoreCommand(flags),
		generateCommand(flags),
		optimizeCommand(flags),
		reportsCommand(flags),
		deleteCommand(flags),
		clearCacheCommand(flags),
	)
	return root
}

// app is an engine plus what must happen when the command finishes.
type app struct {
	engine *semantica.Engine
	log    logger.Logger
	reg    *prometheus.Registry
	flags  *globalFlags
}

func buildApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	tokenizer, err := cfg.Tokenizer()
	if err != nil {
		return nil, err
	}
	st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	analyzer, writer := semantica.Providers(cfg.LLM)
	engine, err := semantica.New(semantica.Options{
		Config:     cfg,
		Store:      st,
		Searcher:   semantica.Searcher(cfg.Search),
		Analyzer:   analyzer,
		Writer:     writer,
		Tokenizer:  tokenizer,
		Logger:     log,
		Registerer: reg,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{engine: engine, log: log, reg: reg, flags: flags}, nil
}

func (a *app) close() {
	if a.flags.metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(a.flags.metricsTextfile, a.reg); err != nil {
			a.log.Warn("Failed to write metrics textfile", logger.Error(err))
		}
	}
	if err := a.engine.Close(); err != nil {
		a.log.Warn("Failed to close store", logger.Error(err))
	}
	_ = a.log.Sync()
}

// run builds the app, runs fn and prints its result as indented JSON. A
// result returned together with an error is still printed.
func run(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) (any, error)) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := fn(ctx, a)
	if out != nil {
		if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
			return werr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// resolveHash returns --hash, or the hash of --keywords.
func resolveHash(hash, keywords string) (string, error) {
	if hash != "" {
		return hash, nil
	}
	set, err := normalize.ParseKeywords(keywords)
	if err != nil {
		return "", errors.New("either --hash or --keywords is required")
	}
	return set.Hash(), nil
}

// readContent reads path, or stdin when path is "-".
func readContent(in io.Reader, path string) (string, error) {
	if path == "" {
		return "", errors.New("--file is required (use - for stdin)")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(data), nil
}

func analyzeCommand(flags *globalFlags) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "analyze <keyword>[,<keyword>...]",
		Short: "Analyze the search competitors of up to three keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				res, err := a.engine.Analyze(ctx, semantica.AnalyzeRequest{
					Keywords: strings.Join(args, ","),
					Identity: flags.identity,
					Refresh:  refresh,
				})
				if err != nil {
					return nil, err
				}
				return res, nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore a cached analysis")
	return cmd
}

type targetFlags struct {
	hash     string
	keywords string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.hash, "hash", "", "keyword hash of the analysis")
	cmd.Flags().StringVar(&t.keywords, "keywords", "", "comma separated keywords of the analysis")
}

func reportCommand(flags *globalFlags) *cobra.Command {
	var target targetFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the stored analysis for a keyword set",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := resolveHash(target.hash, target.keywords)
			if err != nil {
				return err
			}
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				rec, err := a.engine.Report(ctx, hash)
				if err != nil {
					return nil, err
				}
				return rec, nil
			})
		},
	}
	target.register(cmd)
	return cmd
}

func scoreCommand(flags *globalFlags) *cobra.Command {
	var (
		target targetFlags
		file   string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score HTML content against a stored analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := resolveHash(target.hash, target.keywords)
			if err != nil {
				return err
			}
			html, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				res, err := a.engine.ScoreContent(ctx, html, hash)
				if err != nil {
					return nil, err
				}
				return res, nil
			})
		},
	}
	target.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "HTML file to score, - for stdin")
	return cmd
}

func generateCommand(flags *globalFlags) *cobra.Command {
	var target targetFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write an article that meets a stored analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := resolveHash(target.hash, target.keywords)
			if err != nil {
				return err
			}
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				out, err := a.engine.GenerateContent(ctx, hash)
				if out == nil {
					return nil, err
				}
				return out, err
			})
		},
	}
	target.register(cmd)
	return cmd
}

func optimizeCommand(flags *globalFlags) *cobra.Command {
	var (
		target targetFlags
		file   string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Rewrite HTML content toward a stored analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := resolveHash(target.hash, target.keywords)
			if err != nil {
				return err
			}
			html, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				out, err := a.engine.OptimizeContent(ctx, html, hash)
				if err != nil {
					return nil, err
				}
				return out, nil
			})
		},
	}
	target.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "HTML file to optimize, - for stdin")
	return cmd
}

func reportsCommand(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List the most recent analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				reports, err := a.engine.RecentReports(ctx, limit)
				if err != nil {
					return nil, err
				}
				return reports, nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of analyses to list")
	return cmd
}

func deleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				if err := a.engine.DeleteReport(ctx, args[0]); err != nil {
					return nil, err
				}
				return map[string]string{"deleted": args[0]}, nil
			})
		},
	}
}

func clearCacheCommand(flags *globalFlags) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop cached analyses, search results or both",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope != "analysis" && scope != "search" && scope != "all" {
				return fmt.Errorf("--scope must be analysis, search or all, got %q", scope)
			}
			return run(cmd, flags, func(ctx context.Context, a *app) (any, error) {
				cleared := map[string]int64{}
				if scope != "search" {
					n, err := a.engine.ClearAnalysisCache(ctx)
					if err != nil {
						return nil, err
					}
					cleared["analyses"] = n
				}
				if scope != "analysis" {
					n, err := a.engine.ClearSearchCache(ctx)
					if err != nil {
						return nil, err
					}
					cleared["searches"] = n
				}
				return cleared, nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "all", "analysis, search or all")
	return cmd
}
