// Package main is the IssueLens CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/config"
	"github.com/issuelens/issuelens/internal/embedding"
	"github.com/issuelens/issuelens/internal/ingest"
	"github.com/issuelens/issuelens/internal/issues"
	"github.com/issuelens/issuelens/internal/search"
	"github.com/issuelens/issuelens/internal/server"
	"github.com/issuelens/issuelens/internal/store"
	"github.com/issuelens/issuelens/internal/watcher"
	"github.com/issuelens/issuelens/pkg/utils"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "setup":
		runSetup()
	case "reset":
		runReset()
	case "embed":
		runEmbed()
	case "serve":
		runServe()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("issuelens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`IssueLens - semantic search over issue exports

Usage: issuelens <command> [flags]

Commands:
  setup              Initialize the document store (extension, table, index)
  reset              Drop and recreate the document store
  embed <file>       Embed documents from an issues JSON file
  serve              Start the HTTP server
  watch <dir>        Ingest issues JSON files dropped into a directory
  version            Print version

Common flags:
  -config <path>     Config file path (optional; env vars override it)

Environment:
  DATABASE_URL       Postgres connection string (pgvector required)
  OPENAI_API_KEY     Embedding provider credential (checked at first use)
`)
}

// loadConfig parses -config from the flag set and loads configuration.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, []string) {
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, fs.Args()
}

func openStore(ctx context.Context, cfg *config.Config) *store.Postgres {
	st, err := store.NewPostgres(ctx, cfg.Database.URL, cfg.Embedding.Dimensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to store: %v\n", err)
		os.Exit(1)
	}
	return st
}

func newEmbedder(cfg *config.Config) *embedding.Client {
	return embedding.NewClient(embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
}

func runSetup() {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	cfg, _ := loadConfig(fs, os.Args[2:])
	ctx := context.Background()
	st := openStore(ctx, cfg)
	defer st.Close()
	if err := st.Setup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database setup complete.")
}

func runReset() {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	cfg, _ := loadConfig(fs, os.Args[2:])
	ctx := context.Background()
	st := openStore(ctx, cfg)
	defer st.Close()
	if err := st.Reset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reset database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database reset complete.")
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	batchSize := fs.Int("batch-size", 0, "documents per batch commit (default from config)")
	cfg, args := loadConfig(fs, os.Args[2:])
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: issuelens embed [flags] <file_path>")
		os.Exit(1)
	}
	filePath := args[0]

	records, err := issues.LoadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error embedding documents: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st := openStore(ctx, cfg)
	defer st.Close()
	embedder := newEmbedder(cfg)
	defer embedder.Close()

	size := cfg.Ingest.BatchSize
	if *batchSize > 0 {
		size = *batchSize
	}
	logger, _ := utils.NewLogger(cfg.Debug)
	defer logger.Sync()

	pipeline := ingest.NewPipeline(st, embedder,
		ingest.WithBatchSize(size),
		ingest.WithLogger(logger),
	)
	fmt.Printf("Processing %d documents...\n", len(records))
	count, err := pipeline.Run(ctx, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error embedding documents: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully embedded %d documents from %s\n", count, filePath)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "host to bind the server")
	port := fs.Int("port", 0, "port to bind the server")
	debug := fs.Bool("debug", false, "enable debug logging")
	cfg, _ := loadConfig(fs, os.Args[2:])
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	debugMode := cfg.Debug || *debug

	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	st := openStore(ctx, cfg)
	defer st.Close()
	embedder := newEmbedder(cfg)
	defer embedder.Close()

	svc := search.NewService(st, embedder,
		search.WithPreviewChars(cfg.Search.PreviewChars),
		search.WithLogger(logger),
	)
	pipeline := ingest.NewPipeline(st, embedder,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithLogger(logger),
	)

	srv, err := server.NewServer(st, svc, pipeline, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	if cfg.Watch.Directory != "" {
		w := newIngestWatcher(cfg.Watch.Directory, pipeline, logger, debugMode)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	cfg, args := loadConfig(fs, os.Args[2:])
	dir := cfg.Watch.Directory
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: issuelens watch [flags] <directory>")
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug

	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	st := openStore(ctx, cfg)
	defer st.Close()
	embedder := newEmbedder(cfg)
	defer embedder.Close()

	pipeline := ingest.NewPipeline(st, embedder,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithLogger(logger),
	)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	w := newIngestWatcher(dir, pipeline, logger, debugMode)
	if err := w.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	logger.Info("Watching for issues files", zap.String("dir", dir))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}

// newIngestWatcher wires a drop-directory watcher to the ingestion pipeline.
// Failures are logged, not retried; a file colliding with already-ingested
// ids fails like any other duplicate insert.
func newIngestWatcher(dir string, pipeline *ingest.Pipeline, logger *zap.Logger, debug bool) *watcher.Watcher {
	opts := []watcher.WatcherOption{}
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	return watcher.NewWatcher(dir, func(path string) {
		records, err := issues.LoadFile(path)
		if err != nil {
			logger.Warn("failed to load dropped file", zap.String("path", path), zap.Error(err))
			return
		}
		count, err := pipeline.Run(context.Background(), records)
		if err != nil {
			logger.Warn("failed to ingest dropped file", zap.String("path", path), zap.Int("written", count), zap.Error(err))
			return
		}
		logger.Info("ingested dropped file", zap.String("path", path), zap.Int("documents", count))
	}, opts...)
}
