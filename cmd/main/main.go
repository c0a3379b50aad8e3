package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"forestgrid/internal/api"
	routes "forestgrid/internal/api/handlers"
	"forestgrid/internal/config"
	"forestgrid/internal/postgres"
	"forestgrid/internal/redis"
	"forestgrid/internal/service/boundary"
	"forestgrid/internal/service/classify"
	"forestgrid/internal/service/culling"
	"forestgrid/internal/service/gating"
	"forestgrid/internal/service/grid"
	"forestgrid/internal/service/spatialquery"
	"forestgrid/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	setupLogging()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initializeDatabaseAndCache(cfg)
	defer closeConnections()

	setupSignalHandler()

	deps := initializeServices(cfg)

	worker.StartAllWorkers(deps.Engine)

	reportMemoryStats()

	runAPIServer(cfg, deps)
}

func setupLogging() {
	// Set up logging to file and terminal
	logFile, err := os.OpenFile("forestgrid.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	// Note: We're not closing the file here since it needs to stay open
	// for the entire application lifetime. This is a minor resource leak
	// but acceptable for this use case.

	// Use MultiWriter to output logs to both terminal and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
}

func initializeDatabaseAndCache(cfg config.Config) {
	// Initialize PostgreSQL
	postgres.Init(cfg.DBUrl)

	// Initialize Redis
	redis.Init(cfg.RedisUrl)
}

// initializeServices loads the grid, classification and boundary data and
// wires the core pipeline. Each dataset degrades independently on failure:
// a missing boundary fails open, a missing classification set leaves every
// cell unclassified, and only a missing grid is fatal.
func initializeServices(cfg config.Config) *routes.Deps {
	gridService := grid.NewService()
	classifyService := classify.NewService()
	boundaryService := boundary.NewService()

	if cfg.GridCSVPath != "" {
		result, err := gridService.LoadFromCSVFile(cfg.GridCSVPath)
		if err != nil {
			log.Fatalf("Failed to load grid from %s: %v", cfg.GridCSVPath, err)
		}
		log.Printf("Grid loaded from CSV: %d cells, %d rows skipped", result.Loaded, result.Skipped)
	} else {
		result, err := gridService.LoadFromPG()
		if err != nil {
			log.Fatalf("Failed to load grid from PostgreSQL: %v", err)
		}
		log.Printf("Grid loaded from PostgreSQL: %d cells, %d rows skipped", result.Loaded, result.Skipped)
	}

	if cfg.ClassCSVPath != "" {
		if result, err := classifyService.LoadFromCSVFile(cfg.ClassCSVPath); err != nil {
			log.Printf("Classification load failed, all cells treated as unclassified: %v", err)
		} else {
			log.Printf("Classification loaded: %d entries, %d rows skipped", result.Loaded, result.Skipped)
		}
	} else {
		if result, err := classifyService.LoadFromPG(); err != nil {
			log.Printf("Classification load failed, all cells treated as unclassified: %v", err)
		} else {
			log.Printf("Classification loaded: %d entries, %d rows skipped", result.Loaded, result.Skipped)
		}
	}

	if cfg.BoundaryPath != "" {
		if err := boundaryService.LoadFromFile(cfg.BoundaryPath); err != nil {
			log.Printf("Boundary load failed, gating fails open: %v", err)
		}
	} else {
		log.Println("No boundary source configured, gating fails open")
	}

	engine := culling.NewEngine(gridService, classifyService)
	feed := culling.NewFeed(engine.DefaultViewport())
	engine.Start(feed)

	coordinator := spatialquery.NewCoordinator(cfg.QueryEndpoint)
	pipeline := gating.NewPipeline(boundaryService, gridService, classifyService, coordinator)

	return &routes.Deps{
		Grid:        gridService,
		Classify:    classifyService,
		Boundary:    boundaryService,
		Engine:      engine,
		Feed:        feed,
		Pipeline:    pipeline,
		Coordinator: coordinator,
	}
}

func runAPIServer(cfg config.Config, deps *routes.Deps) {
	// Initialize Gin router
	r := gin.Default()

	// Configure API routes
	api.SetupRouter(r, deps)

	// Start the server
	r.Run(cfg.Port)
}

func reportMemoryStats() {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			log.Printf("Alloc = %v MiB, TotalAlloc = %v MiB, Sys = %v MiB, NumGC = %v",
				m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024, m.NumGC)
		}
	}()
}

func closeConnections() {
	if err := postgres.Close(); err != nil {
		log.Printf("Error closing PostgreSQL connection: %v", err)
	}

	if err := redis.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	log.Println("PostgreSQL and Redis connections closed successfully")
}

func setupSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutdown signal received, closing connections...")
		closeConnections()
		os.Exit(0)
	}()
}
