package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inkwell-labs/ragkit/api"
	"github.com/inkwell-labs/ragkit/internal/config"
	"github.com/inkwell-labs/ragkit/internal/embedding"
	"github.com/inkwell-labs/ragkit/internal/graphindex"
	"github.com/inkwell-labs/ragkit/internal/knowledgebase"
	"github.com/inkwell-labs/ragkit/internal/maintenance"
	"github.com/inkwell-labs/ragkit/internal/query"
	"github.com/inkwell-labs/ragkit/internal/storage"
	"github.com/inkwell-labs/ragkit/internal/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "ingest":
		err = ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		err = askCmd(cfg, logger, os.Args[2:])
	case "cache":
		err = cacheCmd(cfg, logger, os.Args[2:])
	case "store":
		err = storeCmd(cfg, logger, os.Args[2:])
	case "reindex":
		err = reindexCmd(cfg, logger, os.Args[2:])
	case "clear":
		err = clearCmd(cfg, logger, os.Args[2:])
	case "serve":
		err = serveCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Printf("%s failed: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type openHandles struct {
	kb       *knowledgebase.KnowledgeBase
	embedder *embedding.Service
	store    *vectorstore.Store
	graph    *graphindex.Index
	cleanup  func()
}

func openKnowledgeBase(ctx context.Context, cfg config.Config, logger *log.Logger) (openHandles, error) {
	pgPool, err := storage.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return openHandles{}, fmt.Errorf("postgres connection: %w", err)
	}

	neo4jDriver, err := storage.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		pgPool.Close()
		return openHandles{}, fmt.Errorf("neo4j connection: %w", err)
	}

	provider, err := cfg.NewEmbeddingProvider()
	if err != nil {
		pgPool.Close()
		return openHandles{}, fmt.Errorf("embedding provider setup: %w", err)
	}

	embedder, err := embedding.NewService(provider, cfg.CacheDir, cfg.LargeStore.MemoryCacheCapcity, logger)
	if err != nil {
		pgPool.Close()
		return openHandles{}, fmt.Errorf("embedding cache setup: %w", err)
	}

	collection := vectorstore.CollectionName(cfg.CollectionName, provider.Identity())
	store, err := vectorstore.Open(ctx, pgPool, collection, provider.Dimension())
	if err != nil {
		pgPool.Close()
		return openHandles{}, fmt.Errorf("vector store setup: %w", err)
	}

	var graph *graphindex.Index
	if neo4jDriver != nil {
		graph = graphindex.New(neo4jDriver)
	}

	cleanup := func() {
		pgPool.Close()
		if neo4jDriver != nil {
			neo4jDriver.Close(ctx)
		}
	}
	return openHandles{
		kb:       knowledgebase.New(store, embedder, graph),
		embedder: embedder,
		store:    store,
		graph:    graph,
		cleanup:  cleanup,
	}, nil
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := flags.String("file", "", "path to a document to ingest")
	url := flags.String("url", "", "URL to fetch and ingest")
	text := flags.String("text", "", "raw text to ingest")
	source := flags.String("source", "manual", "source name for --text ingestion")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *file == "" && *url == "" && *text == "" {
		return fmt.Errorf("one of --file, --url, or --text is required")
	}

	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	var summary knowledgebase.IngestSummary
	switch {
	case *file != "":
		summary, err = h.kb.LearnDocument(ctx, *file)
	case *url != "":
		summary, err = h.kb.LearnFromURL(ctx, *url)
	default:
		summary, err = h.kb.LearnText(ctx, *text, *source)
	}
	if err != nil {
		return err
	}

	return printJSON(summary)
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("query", "", "question to ask the knowledge base")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read question: %w", err)
		}
	}

	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	llmClient, err := cfg.NewLLMClient()
	if err != nil {
		return fmt.Errorf("llm setup: %w", err)
	}

	retrievalConfig := query.Config{TopK: cfg.Retrieval.K, FetchK: cfg.Retrieval.FetchK, MaxDistance: cfg.Retrieval.MaxDistance}
	orchestrator := query.New(h.store, h.embedder, h.graph, llmClient, retrievalConfig)

	answer, err := orchestrator.Ask(ctx, *question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, src := range answer.Sources {
			fmt.Printf("%d. %s (chunk %d/%d)\n", i+1, src.Source, src.ChunkIndex+1, src.ChunkTotal)
		}
	}
	fmt.Printf("\nConfidence: %s\n", answer.Confidence)
	return nil
}

func cacheCmd(cfg config.Config, logger *log.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache requires a subcommand: stats or clear")
	}

	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	ops := maintenance.New(h.embedder, nil)

	switch args[0] {
	case "stats":
		return printJSON(ops.CacheStats())
	case "clear":
		before, err := ops.ClearCache()
		if err != nil {
			return err
		}
		logger.Println("embedding cache cleared")
		return printJSON(before)
	default:
		return fmt.Errorf("unknown cache subcommand: %s", args[0])
	}
}

func storeCmd(cfg config.Config, logger *log.Logger, args []string) error {
	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	ops := maintenance.New(nil, h.store)
	report, err := ops.StoreStats(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func reindexCmd(cfg config.Config, logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("reindex", flag.ExitOnError)
	optimizeOnly := flags.Bool("optimize", false, "run ANALYZE/optimize instead of a full REINDEX")
	profileFlag := flags.String("profile", string(vectorstore.ProfileAuto), "ivfflat lists profile: small, medium, large, or auto")
	if err := flags.Parse(args); err != nil {
		return err
	}
	profile := vectorstore.Profile(*profileFlag)

	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	ops := maintenance.New(nil, h.store)
	policy := vectorstore.LargePolicy{
		Threshold:       cfg.LargeStore.Threshold,
		BatchSize:       cfg.LargeStore.IncrementalBatch,
		CheckpointEvery: cfg.LargeStore.CheckpointEvery,
		MemoryCapMiB:    cfg.LargeStore.MemoryCapMiB,
	}

	progress := func(p maintenance.ReindexProgress) {
		logger.Printf("progress: %d/%d chunks (%.0f MiB resident)", p.Processed, p.Total, p.MemoryMiB)
	}

	var before, after maintenance.StoreReport
	if *optimizeOnly {
		before, after, err = ops.OptimizeStore(ctx, policy, progress)
	} else {
		before, after, err = ops.ReindexStore(ctx, profile, policy, progress)
	}
	if err != nil {
		return err
	}

	return printJSON(map[string]maintenance.StoreReport{"before": before, "after": after})
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if !*confirmed {
		fmt.Print("This will permanently delete ingested data from Postgres and Neo4j. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read confirmation: %w", err)
			}
			logger.Println("clear aborted")
			return nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return nil
		}
	}

	ctx, cancel := rootContext()
	defer cancel()

	pgPool, err := storage.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pgPool.Close()

	provider, err := cfg.NewEmbeddingProvider()
	if err != nil {
		return fmt.Errorf("embedding provider setup: %w", err)
	}
	collection := vectorstore.CollectionName(cfg.CollectionName, provider.Identity())
	store, err := vectorstore.Open(ctx, pgPool, collection, provider.Dimension())
	if err != nil {
		return fmt.Errorf("vector store setup: %w", err)
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	logger.Println("vector store cleared")

	neo4jDriver, err := storage.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		return fmt.Errorf("neo4j connection: %w", err)
	}
	if neo4jDriver != nil {
		defer neo4jDriver.Close(ctx)
		if err := graphindex.New(neo4jDriver).Clear(ctx); err != nil {
			return fmt.Errorf("clear graph index: %w", err)
		}
		logger.Println("graph index cleared")
	}

	return nil
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", ":8080", "address to listen on")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := rootContext()
	defer cancel()

	h, err := openKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.cleanup()

	llmClient, err := cfg.NewLLMClient()
	if err != nil {
		return fmt.Errorf("llm setup: %w", err)
	}

	server := api.New(cfg, logger, h.graph, h.embedder, h.store, llmClient)
	httpServer := &http.Server{Addr: *addr, Handler: server}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println("Usage: ragkit <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Ingest a document, URL, or raw text (--file, --url, --text)")
	fmt.Println("  ask      Ask a question against the knowledge base (--query)")
	fmt.Println("  cache    Inspect or clear the embedding cache (stats|clear)")
	fmt.Println("  store    Report vector store statistics")
	fmt.Println("  reindex  Rebuild or optimize the vector index (--optimize, --profile)")
	fmt.Println("  clear    Remove all ingested data (--confirm)")
	fmt.Println("  serve    Run the HTTP API (--addr)")
}
