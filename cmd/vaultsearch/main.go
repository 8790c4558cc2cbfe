package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/vaultsearch/internal/config"
	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/engine"
	"github.com/dshills/vaultsearch/internal/indexer"
	"github.com/dshills/vaultsearch/internal/mcp"
	"github.com/dshills/vaultsearch/internal/searcher"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Stdout is reserved for MCP protocol traffic under `serve`
	log.SetOutput(os.Stderr)

	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("vaultsearch: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "vaultsearch",
		Short:   "Hybrid semantic + keyword search over a markdown note vault",
		Version: fmt.Sprintf("%s (built %s, %s sqlite driver)", version, buildTime, storage.BuildMode),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newIndexCmd(&configPath),
		newSearchCmd(&configPath),
		newStatusCmd(&configPath),
	)

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				log.Println("shutting down...")
				cancel()
			}()

			log.Printf("vaultsearch MCP server v%s starting (driver: %s)", version, storage.DriverName)
			return srv.Serve(ctx)
		},
	}
}

func newIndexCmd(configPath *string) *cobra.Command {
	var withEntities bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the embedding index",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			progress, err := eng.BuildEmbeddingsIndex(ctx, func(p indexer.Progress) {
				fmt.Fprintf(os.Stderr, "\rindexing %d/%d (%d skipped)", p.Current, p.Total, p.Skipped)
			})
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d documents, %d skipped\n", progress.Current-progress.Skipped, progress.Skipped)

			if withEntities {
				entities, err := eng.ExtractEntities(ctx)
				if err != nil {
					return err
				}
				updated, err := eng.BuildEntityEmbeddingsIndex(ctx, entities, nil)
				if err != nil {
					return err
				}
				fmt.Printf("indexed %d entities, %d updated\n", len(entities), updated)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withEntities, "entities", false, "also index entities declared in note frontmatter")
	return cmd
}

func newSearchCmd(configPath *string) *cobra.Command {
	var limit int
	var mode string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			query := args[0]

			switch mode {
			case "semantic":
				results, err := eng.SemanticSearch(ctx, query, limit)
				if err != nil {
					return err
				}
				printCandidates(results)
			case "keyword":
				results, err := eng.KeywordSearch(ctx, query, limit)
				if err != nil {
					return err
				}
				for i, r := range results {
					fmt.Printf("%2d. %s (%s)\n", i+1, r.Title, r.Path)
				}
			case "hybrid":
				keywordResults, err := eng.KeywordSearch(ctx, query, limit*2)
				if err != nil {
					return err
				}
				printCandidates(eng.HybridSearch(ctx, keywordResults, query, limit))
			default:
				return fmt.Errorf("invalid mode %q (hybrid, semantic, keyword)", mode)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&mode, "mode", "m", "hybrid", "ranking mode: hybrid, semantic, keyword")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report index health and embedding counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			docCount, err := eng.GetEmbeddingsCount(ctx)
			if err != nil {
				return err
			}
			entityCount, err := eng.GetEntityEmbeddingsCount(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("document embeddings: %d\n", docCount)
			fmt.Printf("entity embeddings:   %d\n", entityCount)
			fmt.Printf("sqlite driver:       %s (%s)\n", storage.DriverName, storage.BuildMode)
			fmt.Printf("embedding provider:  %s\n", embedder.DetectProvider())
			return nil
		},
	}
}

// buildEngine wires an engine from configuration for one-shot commands
func buildEngine(configPath string) (*engine.Engine, storage.EmbeddingStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	v, err := vault.NewFSVault(cfg.VaultPath,
		vault.WithMaxFileSize(cfg.MaxFileSizeBytes),
		vault.WithExcludeGlobs(cfg.ExcludeGlobs),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Host:      cfg.Embedding.Host,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return engine.New(v, store, emb), store, nil
}

func printCandidates(results []searcher.ScoredCandidate) {
	for i, r := range results {
		fmt.Printf("%2d. %-40s %.3f  (%s)\n", i+1, r.DisplayName, r.Score, r.Identifier)
	}
}
