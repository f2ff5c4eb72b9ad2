// Package main is the miwake CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/miwake/internal/classify"
	"github.com/hyperjump/miwake/internal/config"
	"github.com/hyperjump/miwake/internal/extract"
	"github.com/hyperjump/miwake/internal/history"
	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/ingest"
	"github.com/hyperjump/miwake/internal/server"
	"github.com/hyperjump/miwake/internal/store"
	"github.com/hyperjump/miwake/internal/watcher"
	"github.com/hyperjump/miwake/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miwake/config.yaml"

// configPathDefault returns the config path default: the MIWAKE_CONFIG
// environment variable when set (a .env file in the working directory is
// loaded first), otherwise the system default.
func configPathDefault() string {
	_ = godotenv.Load()
	if p := os.Getenv("MIWAKE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "classify":
		runClassify()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("miwake version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (store reloads, index builds, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	extractors := initializeExtractors(cfg, logger)
	defer extractors.Close()

	classifierOpts := []classify.Option{}
	if debugMode {
		classifierOpts = append(classifierOpts, classify.WithLogger(logger))
	}
	classifier := classify.NewClassifier(classifierOpts...)

	var hist *history.Log
	if cfg.Store.HistoryPath != "" {
		hist, err = history.Open(cfg.Store.HistoryPath)
		if err != nil {
			logger.Fatal("Failed to open history database", zap.Error(err))
		}
		defer hist.Close()
	}

	srv := server.NewServer(classifier, extractors, hist, cfg, logger)
	srv.SetStore(loadStoreOrEmpty(cfg.Store.Path, logger))

	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	storeWatch := watcher.NewWatcher(cfg.Store.Path, func(path string) {
		st, err := store.Load(path)
		if err != nil {
			logger.Warn("store reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		srv.SetStore(st)
		classifier.Invalidate()
		logger.Info("store reloaded",
			zap.Int("records", st.Len()),
			zap.String("fingerprint", st.Fingerprint()))
	}, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := storeWatch.Start(watchCtx); err != nil {
		logger.Warn("store watcher disabled", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	root := fs.String("root", "", "labeled image tree root (overrides config)")
	strict := fs.Bool("strict", false, "abort on the first unreadable sample instead of skipping it")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	imageRoot := cfg.Ingest.ImageRoot
	if *root != "" {
		imageRoot = *root
	}
	if imageRoot == "" {
		fmt.Println("No image root: set ingest.image_root in config or pass -root")
		os.Exit(1)
	}

	extractors := initializeExtractors(cfg, logger)
	defer extractors.Close()

	existing := loadStoreOrNil(cfg.Store.Path, logger)
	pipeline := ingest.NewPipeline(extractors, cfg.Store.Path,
		ingest.WithStrict(cfg.Ingest.Strict || *strict),
		ingest.WithExtensions(cfg.Ingest.Extensions),
		ingest.WithLogger(logger),
	)
	merged, err := pipeline.Ingest(context.Background(), imageRoot, existing)
	if err != nil {
		logger.Fatal("Ingest failed", zap.Error(err))
	}
	fmt.Printf("Store written: %s (%d records, methods: %v)\n",
		cfg.Store.Path, merged.Len(), merged.Methods())
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	imagePath := fs.String("image", "", "image file to classify")
	method := fs.String("method", "", "extraction method (default from config)")
	_ = fs.Parse(os.Args[2:])

	if *imagePath == "" {
		fmt.Println("Usage: miwake classify -image PATH [-method M]")
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m := *method
	if m == "" {
		m = cfg.Extract.DefaultMethod
	}
	extractors := initializeExtractors(cfg, logger)
	defer extractors.Close()
	extractor, ok := extractors.Get(m)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unsupported method %q\n", m)
		os.Exit(1)
	}

	buf, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read image failed: %v\n", err)
		os.Exit(1)
	}
	img, err := imaging.Decode(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decode image failed: %v\n", err)
		os.Exit(1)
	}
	vec, err := extractor.Extract(context.Background(), img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Load(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load store failed: %v\n", err)
		os.Exit(1)
	}
	class, score, err := classify.NewClassifier().Classify(vec, st, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("class: %s\nscore: %.3f\n", class, score)
	if score < cfg.Classify.RecommendedThreshold {
		fmt.Printf("note: score below recommended threshold %.2f; treat as low confidence\n",
			cfg.Classify.RecommendedThreshold)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	url := fmt.Sprintf("http://%s:%d/status", cfg.Server.Host, cfg.Server.Port)
	resp, err := http.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(os.Stdout, resp.Body)
	fmt.Println()
}

// initializeExtractors builds the extractor registry from config. A method
// whose ONNX model cannot be loaded falls back to the deterministic mock so
// the service stays usable in development without model files.
func initializeExtractors(cfg *config.Config, logger *zap.Logger) *extract.Registry {
	registry := extract.NewRegistry()
	for _, mc := range cfg.Extract.Methods {
		onnx, err := extract.NewONNXExtractor(mc.Name, mc.ModelPath, mc.Dimensions, mc.ImageSize)
		if err != nil {
			logger.Warn("ONNX extractor unavailable, using mock",
				zap.String("method", mc.Name),
				zap.String("model_path", mc.ModelPath),
				zap.Error(err))
			registry.Register(extract.NewMockExtractor(mc.Name, mc.Dimensions))
			continue
		}
		registry.Register(onnx)
	}
	return registry
}

// loadStoreOrEmpty loads the store at path, returning an empty store when
// the file does not exist yet. A corrupt store is fatal.
func loadStoreOrEmpty(path string, logger *zap.Logger) *store.Store {
	st, err := store.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("store file not found, starting empty", zap.String("path", path))
			return store.New(nil)
		}
		logger.Fatal("Failed to load store", zap.String("path", path), zap.Error(err))
	}
	logger.Info("store loaded",
		zap.String("path", path),
		zap.Int("records", st.Len()),
		zap.Strings("methods", st.Methods()))
	return st
}

// loadStoreOrNil is loadStoreOrEmpty for ingestion: nil means "no existing
// store", which Merge treats as empty.
func loadStoreOrNil(path string, logger *zap.Logger) *store.Store {
	st, err := store.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		logger.Fatal("Failed to load existing store", zap.String("path", path), zap.Error(err))
	}
	return st
}

func printUsage() {
	fmt.Println(`miwake - image icon similarity classifier

Usage:
  miwake server  [-config PATH] [-debug]        Run the classification HTTP API
  miwake ingest  [-config PATH] [-root DIR]     Extract embeddings from a labeled
                 [-strict]                      image tree and merge into the store
  miwake classify -image PATH [-method M]       Classify one image locally
  miwake status  [-config PATH]                 Show server status
  miwake version                                Show version
  miwake help                                   Show this help

The image tree for ingest has one subdirectory per class label:
  root/
    clock/   icon1.png icon2.png ...
    camera/  icon1.png ...

Scores are cosine similarities in [-1, 1]; results below the recommended
threshold (see /status) should be treated as low confidence.`)
}
