package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/ga4-reporter/internal/api"
	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/ga4"
	"github.com/ignite/ga4-reporter/internal/seo"
)

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sources, err := ga4.LoadSources(cfg.GA4.PropertiesPath)
	if err != nil {
		log.Fatalf("Failed to load property mapping: %v", err)
	}
	log.Printf("Loaded %d analytics sources: %v", len(sources), sources.Labels())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := ga4.NewClient(ctx, cfg.GA4)
	if err != nil {
		log.Fatalf("Failed to initialize analytics client: %v", err)
	}

	policy, err := ga4.ParseFailurePolicy(cfg.GA4.FailurePolicy)
	if err != nil {
		log.Fatalf("Invalid failure_policy: %v", err)
	}
	defaults := api.QueryDefaults{
		RowLimit:    cfg.GA4.RowLimit,
		Concurrency: cfg.GA4.Concurrency,
		Policy:      policy,
	}

	kg := seo.NewKnowledgeGraphClient(cfg.KnowledgeGraph)
	robots := seo.NewFetcher(cfg.GA4.Timeout())

	server := api.NewServer(cfg.Server, client, sources, defaults, kg, robots)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
