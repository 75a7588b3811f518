// Package main is the shopsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/artifact"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/embedding"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/indexer"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/search"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/server"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/storage"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/watcher"
	"github.com/Kailramiya/AI4Chat-ai-assistant/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "./config.yaml"

func main() {
	// Env files are optional; real env vars win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shopsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// components holds the initialized services shared by the subcommands.
type components struct {
	Storage  storage.Storage
	Provider embedding.Provider
	Builder  *indexer.Builder
	Engine   *search.Engine
}

func (c *components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var buildOpts []indexer.BuilderOption
	var engineOpts []search.Option
	if debug && logger != nil {
		buildOpts = append(buildOpts, indexer.WithLogger(logger))
		engineOpts = append(engineOpts, search.WithLogger(logger))
	}
	builder, err := indexer.NewBuilder(provider, cfg, buildOpts...)
	if err != nil {
		_ = provider.Close()
		_ = store.Close()
		return nil, err
	}

	return &components{
		Storage:  store,
		Provider: provider,
		Builder:  builder,
		Engine:   search.NewEngine(provider, cfg, engineOpts...),
	}, nil
}

func newProvider(cfg *config.Config, logger *zap.Logger) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "onnx":
		provider, err := embedding.NewONNXProvider(
			cfg.Embedding.ModelPath,
			cfg.Embedding.ModelName,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			if logger != nil {
				logger.Warn("ONNX provider unavailable, using mock embeddings", zap.Error(err))
			}
			return embedding.NewMockProvider(cfg.Embedding.Dimensions), nil
		}
		return provider, nil
	case "remote":
		return embedding.NewRemoteProvider(embedding.RemoteConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  os.Getenv(cfg.Embedding.APIKeyEnv),
			Model:   cfg.Embedding.ModelName,
		})
	case "mock":
		return embedding.NewMockProvider(cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// rebuildFromCorpus reimports the corpus file (when present), rebuilds the
// index from the stored documents, persists the artifact, and installs it.
func rebuildFromCorpus(ctx context.Context, cfg *config.Config, c *components, logger *zap.Logger) error {
	if _, err := os.Stat(cfg.Storage.DataFile); err == nil {
		docs, err := storage.LoadDocumentsFile(cfg.Storage.DataFile)
		if err != nil {
			return fmt.Errorf("load corpus: %w", err)
		}
		if err := c.Storage.ReplaceAll(ctx, docs); err != nil {
			return fmt.Errorf("store corpus: %w", err)
		}
		if logger != nil {
			logger.Info("corpus imported", zap.String("file", cfg.Storage.DataFile), zap.Int("documents", len(docs)))
		}
	}

	docs, err := c.Storage.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	art, err := c.Builder.BuildAndSave(ctx, docs, cfg.Storage.IndexDir)
	if err != nil {
		return err
	}
	return c.Engine.Install(ctx, art)
}

// serializeRebuilds wraps fn so overlapping triggers run one rebuild at a
// time. The HTTP handler and the corpus watcher both rebuild into the same
// staging directory; interleaved saves would clobber each other.
func serializeRebuilds(fn server.ReindexFunc) server.ReindexFunc {
	var mu sync.Mutex
	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		return fn(ctx)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	ctx := context.Background()
	if err := comps.Engine.LoadFromDir(ctx, cfg.Storage.IndexDir); err != nil {
		if errors.Is(err, artifact.ErrMissingArtifact) {
			logger.Info("no index artifact found, building from corpus")
			if buildErr := rebuildFromCorpus(ctx, cfg, comps, logger); buildErr != nil {
				logger.Warn("initial build failed, serving without an index", zap.Error(buildErr))
			}
		} else {
			// A corrupt artifact is a hard error: refusing to start beats
			// serving wrong results.
			logger.Fatal("Failed to load index artifact", zap.Error(err))
		}
	}

	reindex := serializeRebuilds(func(ctx context.Context) error {
		return rebuildFromCorpus(ctx, cfg, comps, logger)
	})

	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Storage.DataFile, func() {
			if err := reindex(context.Background()); err != nil {
				logger.Warn("rebuild after corpus change failed", zap.Error(err))
			}
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(comps.Engine, comps.Storage, reindex, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataFile := fs.String("data", "", "corpus JSON file (default: storage.data_file from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataFile != "" {
		cfg.Storage.DataFile = *dataFile
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	if err := rebuildFromCorpus(context.Background(), cfg, comps, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	manifest, size, _ := comps.Engine.Status()
	fmt.Printf("Indexed %d chunk(s) into %s (model %s, dimension %d)\n",
		size, cfg.Storage.IndexDir, manifest.ModelName, manifest.Dimension)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query the local index directly)")
	topK := fs.Int("top-k", 0, "number of results (0 = default)")
	_ = fs.Parse(os.Args[2:])

	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fmt.Println(`{"error": "Query required"}`)
		os.Exit(1)
	}
	query := &models.SearchQuery{Query: queryStr, TopK: *topK}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		comps, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer comps.Close()

		ctx := context.Background()
		if err := comps.Engine.LoadFromDir(ctx, cfg.Storage.IndexDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load index: %v\n", err)
			os.Exit(1)
		}
		response, err = comps.Engine.Query(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(out.String())
}

func printUsage() {
	fmt.Println(`shopsearch - semantic search over a scraped shop corpus

Usage:
  shopsearch server [flags]           Start the HTTP server
  shopsearch index [flags]            Import the corpus and build the index
  shopsearch search [flags] <query>   Search the index
  shopsearch status [flags]           Show server status
  shopsearch version                  Show version
  shopsearch help                     Show this help

Server Flags:
  --config string    Config file path (default: ./config.yaml)
  --debug            Enable debug logging

Index Flags:
  --config string    Config file path
  --data string      Corpus JSON file (default: storage.data_file from config)

Search Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL; empty queries the local index directly
  --top-k int        Number of results (0 = default)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  shopsearch index
  shopsearch search "blue cotton shirt"
  shopsearch search --server http://localhost:8080 --top-k 3 return policy
  shopsearch server --debug`)
}
