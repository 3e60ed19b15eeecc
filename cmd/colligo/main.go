package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/crawler"
	"github.com/ternarybob/colligo/internal/queue"
	"github.com/ternarybob/colligo/internal/scheduler"
	"github.com/ternarybob/colligo/internal/services/documents"
	"github.com/ternarybob/colligo/internal/services/sources"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
	"github.com/ternarybob/colligo/internal/worker"
)

// colligo is the whole system in one process: the store, the MCP tool
// surface, the bootstrap scheduler, and a pool of crawl workers. Badger
// holds an exclusive lock on its directory, so the workers run as
// goroutines beside the server rather than as separate processes;
// worker.count scales the pool.
func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	workerID := flag.String("worker-id", "", "Stable worker identifier (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(common.GetFullVersion())
		return
	}

	path := resolveConfigPath(*configPath)
	config, err := common.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workerID != "" {
		config.Worker.ID = *workerID
	}

	common.PrintBanner("colligo")

	logger := common.InitLogger(config)

	storageManager, err := storage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		os.Exit(1)
	}
	defer storageManager.Close()

	jobQueue := queue.NewService(storageManager.DB(), logger)
	sourceService := sources.NewService(storageManager.SourceStorage(), storageManager.EntryStorage(), logger)
	documentService := documents.NewService(storageManager.EntryStorage(), logger)

	sched := scheduler.New(config, jobQueue, storageManager.SourceStorage(), storageManager.EntryStorage(), logger)
	if err := sched.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}
	defer sched.Stop()

	// One domain coordinator for the pool: at most one crawl per host in
	// this process no matter how many workers run.
	domains := crawler.NewDomainCoordinator()
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var workers sync.WaitGroup

	for i := 0; i < config.Worker.Count; i++ {
		id := config.Worker.ID
		if id != "" && config.Worker.Count > 1 {
			id = fmt.Sprintf("%s-%d", id, i+1)
		}
		w, err := worker.New(config, id, jobQueue, storageManager.SourceStorage(), storageManager.EntryStorage(), domains, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build worker")
			os.Exit(1)
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := w.Run(workerCtx); err != nil {
				logger.Error().Err(err).Str("worker_id", w.ID()).Msg("Worker stopped with error")
			}
		}()
	}

	// Drain the worker pool before the store closes; ServeStdio returns
	// when stdin closes.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		stopWorkers()
		workers.Wait()
		sched.Stop()
		storageManager.Close()
		os.Exit(0)
	}()

	mcpServer := server.NewMCPServer(
		"colligo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createAddSourceTool(), handleAddSource(sourceService, logger))
	mcpServer.AddTool(createListSourcesTool(), handleListSources(sourceService, logger))
	mcpServer.AddTool(createScrapeTool(), handleScrape(sourceService, jobQueue, config.Queue.LockTimeoutSeconds, logger))
	mcpServer.AddTool(createGetJobStatusTool(), handleGetJobStatus(jobQueue, logger))
	mcpServer.AddTool(createCancelJobTool(), handleCancelJob(jobQueue, logger))
	mcpServer.AddTool(createListJobsTool(), handleListJobs(jobQueue, logger))
	mcpServer.AddTool(createQueueStatsTool(), handleQueueStats(jobQueue, logger))
	mcpServer.AddTool(createSearchEntriesTool(), handleSearchEntries(documentService, logger))

	logger.Info().
		Str("version", common.GetVersion()).
		Int("workers", config.Worker.Count).
		Msg("Serving tools over stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
		os.Exit(1)
	}

	stopWorkers()
	workers.Wait()
}

// resolveConfigPath falls back from the flag to the environment to the
// conventional file locations. Empty means run on defaults.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv("COLLIGO_CONFIG"); env != "" {
		return env
	}
	for _, candidate := range []string{"colligo.toml", "config/colligo.toml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
