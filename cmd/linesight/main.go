// Package main is the linesight CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/completion"
	"github.com/forgeline/linesight/internal/config"
	"github.com/forgeline/linesight/internal/copilot"
	"github.com/forgeline/linesight/internal/docindex"
	"github.com/forgeline/linesight/internal/embedding"
	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/replay"
	"github.com/forgeline/linesight/internal/server"
	"github.com/forgeline/linesight/internal/storage"
	"github.com/forgeline/linesight/internal/vector"
	"github.com/forgeline/linesight/internal/watcher"
	"github.com/forgeline/linesight/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/linesight/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if that
// exists it is used. When neither exists, built-in defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func main() {
	// .env carries NVIDIA_API_KEY during development; missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "replay":
		runReplay()
	case "watch":
		runWatch()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("linesight version %s\n", version)
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
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.Directory != "" {
		replayer := components.Replayer
		watchSvc = watcher.New(cfg.Watch.Directory, func(path string) {
			result, err := replayer.RunFile(watchCtx, path)
			if err != nil {
				logger.Warn("replay of dropped file failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("replayed dropped file",
				zap.String("path", path),
				zap.Int("applied", result.SamplesApplied),
				zap.Int("events", len(result.Events)),
			)
		}, watcher.WithLogger(logger))
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		if err := watchSvc.SyncExistingFiles(); err != nil {
			logger.Warn("sync of existing telemetry files failed", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Store,
		components.Engine,
		components.Index,
		components.Replayer,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	if err := components.Vectors.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runReplay() {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	speed := fs.Float64("speed", 0, "time-compression multiplier (0 = replay as fast as possible)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: linesight replay [flags] <telemetry.csv>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *speed > 0 {
		cfg.Replay.SpeedMultiplier = *speed
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := components.Replayer.RunFile(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Replayed %d sample(s), skipped %d, emitted %d event(s)\n",
		result.SamplesApplied, result.SamplesSkipped, len(result.Events))
	for line, state := range result.FinalStates {
		fmt.Printf("  %s: tier=%s speed_reduction=%.0f%%\n",
			line, state.CurrentTier, state.CurrentTier.SpeedReductionPct())
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dir := fs.String("dir", "", "telemetry drop directory (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Watch.Directory = *dir
	}
	if cfg.Watch.Directory == "" {
		fmt.Println("No drop directory configured; set watch.directory or pass --dir")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	replayer := components.Replayer
	w := watcher.New(cfg.Watch.Directory, func(path string) {
		result, err := replayer.RunFile(ctx, path)
		if err != nil {
			logger.Warn("replay of dropped file failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("replayed dropped file",
			zap.String("path", path),
			zap.Int("applied", result.SamplesApplied),
			zap.Int("events", len(result.Events)),
		)
	}, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if err := w.SyncExistingFiles(); err != nil {
		logger.Warn("sync of existing telemetry files failed", zap.Error(err))
	}

	logger.Info("watching for telemetry files", zap.String("dir", cfg.Watch.Directory))
	<-ctx.Done()
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: linesight ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	files, err := collectDocFiles(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No .md or .txt files found")
		os.Exit(1)
	}

	ctx := context.Background()
	total := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", file, err)
			os.Exit(1)
		}
		chunks := chunkDocument(filepath.Base(file), string(data))
		if len(chunks) == 0 {
			continue
		}
		if err := components.Index.Ingest(ctx, chunks); err != nil {
			fmt.Fprintf(os.Stderr, "Ingestion of %s failed: %v\n", file, err)
			os.Exit(1)
		}
		total += len(chunks)
		fmt.Printf("Ingested %s (%d chunk(s))\n", filepath.Base(file), len(chunks))
	}
	if err := components.Vectors.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed", zap.Error(err))
	}
	fmt.Printf("Done: %d chunk(s) across %d file(s), index size %d\n", total, len(files), components.Index.Size())
}

func collectDocFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".md" || ext == ".txt" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

// chunkDocument splits document text into paragraph-aligned chunks of
// roughly maxChunkChars, preserving paragraph boundaries.
func chunkDocument(source, text string) []*models.DocumentChunk {
	const maxChunkChars = 1200
	paragraphs := strings.Split(text, "\n\n")

	var chunks []*models.DocumentChunk
	var current strings.Builder
	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		if content == "" {
			return
		}
		chunks = append(chunks, &models.DocumentChunk{
			SourceDocument: source,
			ChunkIndex:     len(chunks),
			Content:        content,
		})
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p) > maxChunkChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()
	return chunks
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without the server)")
	lineID := fs.String("line", "", "production line id (required)")
	topK := fs.Int("top-k", 0, "number of document excerpts (0 = configured default)")
	windowHours := fs.Float64("window-hours", 0, "telemetry summary window in hours (0 = configured default)")
	_ = fs.Parse(os.Args[2:])

	if *lineID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: linesight ask --line <id> [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	req := &models.AskRequest{
		Question:    question,
		LineID:      *lineID,
		TopK:        *topK,
		WindowHours: *windowHours,
	}

	var resp *models.AnswerResponse
	if *serverURL != "" {
		r, err := askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = r
	} else {
		cfg, err := loadConfig(*configPath)
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
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize components", zap.Error(err))
		}
		defer components.Close()

		r, err := components.Engine.Answer(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = r
	}

	fmt.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(resp.Citations, ", "))
	}
	if total, ok := resp.LatencyBreakdown["total"]; ok {
		fmt.Printf("(%d excerpt(s), %.2fs)\n", resp.RetrievedCount, total)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*models.AnswerResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var answer models.AnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &answer, nil
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Samples         int64  `json:"samples"`
	DefectEvents    int64  `json:"defect_events"`
	Chunks          int64  `json:"chunks"`
	VectorIndexSize int    `json:"vector_index_size"`
	DiskUsageBytes  *int64 `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/status")
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
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, err := loadConfig(*configPath)
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
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize components", zap.Error(err))
		}
		defer components.Close()

		ctx := context.Background()
		samples, err := components.Store.CountSamples(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count samples failed: %v\n", err)
			os.Exit(1)
		}
		events, err := components.Store.CountDefectEvents(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count defect events failed: %v\n", err)
			os.Exit(1)
		}
		chunks, err := components.Store.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Samples:         samples,
			DefectEvents:    events,
			Chunks:          chunks,
			VectorIndexSize: components.Index.Size(),
		}
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("samples:            %d\n", status.Samples)
		fmt.Printf("defect_events:      %d\n", status.DefectEvents)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store    storage.Store
	Embedder embedding.Embedder
	Vectors  vector.Index
	Index    *docindex.Index
	Engine   *copilot.Engine
	Replayer *replay.Replayer
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	apiKey := os.Getenv("NVIDIA_API_KEY")
	var embedder embedding.Embedder
	if cfg.Embedding.Mock || apiKey == "" {
		if !cfg.Embedding.Mock {
			logger.Warn("NVIDIA_API_KEY not set, using mock embedder")
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		client, err := embedding.NewClient(embedding.ClientConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     apiKey,
			Model:      cfg.Embedding.Model,
			BatchSize:  cfg.Embedding.BatchSize,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout(),
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
		}
		embedder = embedding.NewCachedEmbedder(client, cfg.Embedding.CacheSize)
	}

	vectors, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := vectors.Load(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index load skipped",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}

	index := docindex.New(store, embedder, vectors,
		docindex.WithLogger(logger),
		docindex.WithBatchSize(cfg.Embedding.BatchSize),
		docindex.WithMinUniqueSources(cfg.Query.MinUniqueSources),
	)

	var completer completion.Completer
	if cfg.Completion.Mock || apiKey == "" {
		if !cfg.Completion.Mock {
			logger.Warn("NVIDIA_API_KEY not set, using mock completer")
		}
		completer = &completion.MockCompleter{}
	} else {
		client, err := completion.NewClient(completion.ClientConfig{
			BaseURL:     cfg.Completion.BaseURL,
			APIKey:      apiKey,
			Model:       cfg.Completion.Model,
			Temperature: cfg.Completion.Temperature,
			MaxTokens:   cfg.Completion.MaxTokens,
			Timeout:     cfg.Completion.Timeout(),
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize completion client: %w", err)
		}
		completer = client
	}

	engine := copilot.NewEngine(store, index, completer,
		copilot.WithLogger(logger),
		copilot.WithDefaults(cfg.Query.TopK, time.Duration(cfg.Query.WindowHours*float64(time.Hour))),
		copilot.WithThresholds(models.SensorThresholds{
			TempWarningC:          cfg.Sensor.TempWarningC,
			TempCriticalC:         cfg.Sensor.TempCriticalC,
			PressureWarningBar:    cfg.Sensor.PressureWarningBar,
			PressureCriticalBar:   cfg.Sensor.PressureCriticalBar,
			NominalLineSpeedMPM:   cfg.Sensor.NominalLineSpeedMPM,
			NominalPressureBar:    cfg.Sensor.NominalPressureBar,
			NominalCoolantFlowPct: cfg.Sensor.NominalCoolantFlowPct,
			BaselineDefectRatePct: cfg.Sensor.BaselineDefectRatePct,
		}),
	)

	replayer := replay.New(store,
		replay.WithLogger(logger),
		replay.WithThresholds(replay.Thresholds{
			EscalateRatePct: cfg.Replay.EscalateRatePct,
			RecoverRatePct:  cfg.Replay.RecoverRatePct,
			RateWindow:      time.Duration(cfg.Replay.RateWindowMinutes) * time.Minute,
			TierDwell:       time.Duration(cfg.Replay.TierDwellMinutes) * time.Minute,
			RecoveryWindow:  time.Duration(cfg.Replay.RecoveryWindowMinutes) * time.Minute,
		}),
		replay.WithSpeed(cfg.Replay.SpeedMultiplier),
	)

	return &Components{
		Store:    store,
		Embedder: embedder,
		Vectors:  vectors,
		Index:    index,
		Engine:   engine,
		Replayer: replayer,
	}, nil
}

func printUsage() {
	fmt.Println(`linesight - manufacturing line telemetry copilot

Usage:
  linesight server [flags]              Start the HTTP server
  linesight replay [flags] <file.csv>   Replay a telemetry CSV through the escalation engine
  linesight watch [flags]               Watch a drop directory and replay new CSV files
  linesight ingest [flags] <path>       Embed and index reference documents (.md/.txt)
  linesight ask --line <id> <question>  Ask a grounded question about a line
  linesight status [flags]              Show store and index status
  linesight version                     Show version
  linesight help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/linesight/config.yaml)
  --debug            Enable debug logging

Replay Flags:
  --config string    Config file path
  --speed float      Time-compression multiplier, e.g. 60 plays a minute per second (default: 0, no pacing)

Watch Flags:
  --config string    Config file path
  --dir string       Telemetry drop directory (overrides config)

Ingest Flags:
  --config string    Config file path

Ask Flags:
  --line string         Production line id (required)
  --server string       Server URL (default: http://localhost:8080). Use --server "" to answer locally.
  --top-k int           Document excerpts to retrieve (default from config)
  --window-hours float  Telemetry summary window (default from config)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  linesight server
  linesight replay --speed 60 shift-2023-09-14.csv
  linesight ingest ./docs
  linesight ask --line LINE-A "why is the defect rate rising?"
  linesight status --output json`)
}
