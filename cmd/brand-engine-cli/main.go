// Package main provides the Brand Resolution Engine CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/brendbot/brand-engine/internal/artifact"
	"github.com/brendbot/brand-engine/internal/cache"
	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/config"
	"github.com/brendbot/brand-engine/internal/lexical"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/resolver"
	"github.com/brendbot/brand-engine/internal/semantic"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "brand-engine-cli",
	Short: "Brand Resolution Engine CLI for resolution, index builds, and catalog inspection",
	Long: `Brand Resolution Engine CLI provides commands for working with the brand catalog.

Use this tool to:
- Resolve free-text queries against the catalog
- Rebuild the semantic index artifact
- Browse categories and brands
- Inspect the persisted artifact

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		logLevel := cfg.Observability.LogLevel
		if outputJSON {
			logFormat = "json"
		}
		if !verbose {
			logLevel = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      logFormat,
			ServiceName: "brand-engine-cli",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newRebuildCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newBrandsCmd())
	rootCmd.AddCommand(newArtifactCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newResolveCmd creates the resolve subcommand.
func newResolveCmd() *cobra.Command {
	var (
		role       string
		region     string
		outletType string
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "resolve [query]",
		Short: "Resolve a free-text query to ranked brand candidates",
		Long: `Resolve runs the full cascade (exact aliases, lexical matching, semantic
search when an index artifact exists) and prints the ranked candidates.

Profile flags apply the same personalization re-weighting the API uses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			prof := profile.Profile{
				Role:       role,
				Region:     region,
				OutletType: outletType,
			}

			result, err := engine.Resolve(ctx, args[0], prof, topK)
			if err != nil {
				return fmt.Errorf("resolve failed: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if len(result.Candidates) == 0 {
				color.New(color.FgYellow).Printf("⚠ No brands matched %q\n", args[0])
				return nil
			}

			fmt.Printf("Query: %s (latency: %dms, tiers: %v)\n\n", result.Query, result.LatencyMs, result.Tiers)
			for i, c := range result.Candidates {
				line := fmt.Sprintf("%d. %s [%s] score=%.3f", i+1, c.Brand, c.Category, c.Score)
				if c.MatchedAlias != "" {
					line += fmt.Sprintf(" (alias: %s)", c.MatchedAlias)
				}
				if i == 0 {
					color.New(color.FgGreen).Println(line)
				} else {
					fmt.Println(line)
				}
				if verbose {
					fmt.Printf("   exact=%.2f lexical=%.3f semantic=%.3f\n",
						c.ExactScore, c.LexicalScore, c.SemanticScore)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "sales rep role for personalization")
	cmd.Flags().StringVar(&region, "region", "", "sales rep region for personalization")
	cmd.Flags().StringVar(&outletType, "outlet", "", "outlet type for personalization")
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "number of candidates to return (default: config)")

	return cmd
}

// newRebuildCmd creates the rebuild subcommand.
func newRebuildCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the semantic index artifact",
		Long: `Rebuild embeds every catalog brand with the first available backend
(remote API, local ONNX encoder, TF-IDF fallback) and persists the artifact.
Use --backend to force a specific backend ID.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var bar *progressbar.ProgressBar
			done := make(chan struct{})
			if !outputJSON {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetDescription("rebuilding semantic index"),
					progressbar.OptionSpinnerType(14),
				)
				go func() {
					ticker := time.NewTicker(100 * time.Millisecond)
					defer ticker.Stop()
					for {
						select {
						case <-done:
							return
						case <-ticker.C:
							_ = bar.Add(1)
						}
					}
				}()
			}

			report, err := engine.Rebuild(ctx, backend)
			if bar != nil {
				close(done)
				_ = bar.Finish()
				fmt.Println()
			}
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			color.New(color.FgGreen).Printf("✓ Semantic index rebuilt\n")
			fmt.Printf("  Backend: %s\n", report.Backend)
			fmt.Printf("  Brands: %d | Dimension: %d\n", report.Brands, report.Dimension)
			fmt.Printf("  Duration: %s | Persisted: %v\n", report.Duration.Round(time.Millisecond), report.Persisted)

			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "force backend ID (remote, local-onnx, local-tfidf)")

	return cmd
}

// newCategoriesCmd creates the categories subcommand.
func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			categories := snap.Categories()
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(categories)
			}

			for _, c := range categories {
				fmt.Printf("%s (%d brands)\n", c, len(snap.ByCategory(c)))
			}
			return nil
		},
	}
}

// newBrandsCmd creates the brands subcommand.
func newBrandsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "brands",
		Short: "List brands, optionally filtered by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			var records []*catalog.BrandRecord
			if category != "" {
				cat := catalog.Category(category)
				if !catalog.ValidCategory(cat) {
					return fmt.Errorf("unknown category: %s", category)
				}
				for _, name := range snap.ByCategory(cat) {
					records = append(records, snap.Get(name))
				}
			} else {
				records = snap.Brands()
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			for _, rec := range records {
				fmt.Printf("%s [%s]", rec.Name, rec.Category)
				if len(rec.Aliases) > 0 {
					fmt.Printf(" aliases: %v", rec.Aliases)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")

	return cmd
}

// newArtifactCmd creates the artifact subcommand.
func newArtifactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifact",
		Short: "Inspect the persisted semantic index artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			store, err := artifact.Open(cfg.Artifact.Path)
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()

			a, err := store.LoadLatest(ctx)
			if err != nil {
				return fmt.Errorf("load artifact: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"version":   a.Version,
					"backend":   a.BackendID,
					"dimension": a.Dimension,
					"builtAt":   a.BuiltAt,
					"brands":    len(a.Vectors),
				})
			}

			fmt.Printf("Backend: %s\n", a.BackendID)
			fmt.Printf("Dimension: %d | Brands: %d\n", a.Dimension, len(a.Vectors))
			fmt.Printf("Built: %s\n", a.BuiltAt.Format(time.RFC3339))
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{
					"version": "0.1.0",
				})
				return
			}
			fmt.Println("brand-engine-cli v0.1.0")
		},
	}
}

// buildEngine wires a full resolution engine from the loaded config. The
// returned cleanup closes the artifact store.
func buildEngine(ctx context.Context) (*resolver.Engine, func(), error) {
	snap, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	store := catalog.NewStore(snap)

	var artifacts *artifact.Store
	cleanup := func() {}
	if cfg.Artifact.Path != "" {
		artifacts, err = artifact.Open(cfg.Artifact.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Artifact store unavailable, running without persistence")
			artifacts = nil
		} else {
			cleanup = func() { artifacts.Close() }
		}
	}

	chain := semantic.NewBackendChain(semantic.ChainConfig{
		Remote: semantic.RemoteConfig{
			APIKey:    cfg.Embedding.Remote.APIKey,
			BaseURL:   cfg.Embedding.Remote.BaseURL,
			Model:     cfg.Embedding.Remote.Model,
			Dimension: cfg.Embedding.Remote.Dimension,
			Timeout:   cfg.Embedding.Remote.Timeout,
		},
		ONNX: semantic.ONNXConfig{
			ModelPath:     cfg.Embedding.ONNX.ModelPath,
			TokenizerPath: cfg.Embedding.ONNX.TokenizerPath,
			LibraryPath:   cfg.Embedding.ONNX.LibraryPath,
			MaxSeqLen:     cfg.Embedding.ONNX.MaxSeqLen,
		},
		TFIDF: cfg.Embedding.TFIDF.Dimension,
	}, logger)

	engine := resolver.NewEngine(
		logger,
		store,
		lexical.NewMatcher(cfg.Lexical.Threshold),
		chain,
		artifacts,
		cache.NewMemoryClient(cfg.Cache.MaxEntries),
		resolver.Config{
			TopK:             cfg.Resolver.TopK,
			ExactScore:       cfg.Resolver.ExactScore,
			SemanticWeight:   cfg.Resolver.SemanticWeight,
			LexicalWeight:    cfg.Resolver.LexicalWeight,
			SemanticFloor:    cfg.Resolver.SemanticFloor,
			SemanticK:        cfg.Resolver.SemanticK,
			PersonalBoostMax: cfg.Resolver.PersonalBoostMax,
			CacheResults:     false, // one-shot CLI runs
		},
	)
	engine.LoadPersistedIndex(ctx)

	return engine, cleanup, nil
}
