// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"mediaintel/internal/adapter/events"
	"mediaintel/internal/adapter/storage"
	"mediaintel/internal/config"
	"mediaintel/internal/domain/mention"
	"mediaintel/internal/server"
	"mediaintel/internal/service/analysis"
	dashboardService "mediaintel/internal/service/dashboard"
	"mediaintel/internal/service/ingest"
	"mediaintel/internal/service/narrative"
	"mediaintel/internal/service/navigation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	store, err := initStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	var natsConn *nats.Conn
	var eventBus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsConn, err = initNATS(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
		eventBus = natsConn
	} else {
		log.Println("NATS_URL not set, dataset events disabled")
	}

	catalog := analysis.DefaultCatalog()
	if cfg.Analysis.CatalogPath != "" {
		catalog, err = analysis.LoadCatalog(cfg.Analysis.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	// Narrative summaries (optional)
	var narrator dashboardService.Narrator
	if summarizer := narrative.NewSummarizer(narrative.Config{
		APIKey:    cfg.OpenAI.APIKey,
		Model:     cfg.OpenAI.Model,
		BaseURL:   cfg.OpenAI.BaseURL,
		MaxTokens: cfg.OpenAI.MaxTokens,
	}); summarizer != nil {
		narrator = summarizer
	} else {
		log.Println("OPENAI_API_KEY not set, narrative summaries disabled")
	}

	svc, err := dashboardService.NewService(
		store,
		ingest.NewParser(ingest.ParserConfig{MaxRows: cfg.Analysis.MaxRows}),
		analysis.NewBuilder(catalog),
		narrator,
		eventBus,
		dashboardService.ServiceConfig{
			EventsTopic:       cfg.NATS.EventsTopic,
			CacheSize:         cfg.Analysis.CacheSize,
			RetentionMaxAge:   cfg.Retention.MaxAge,
			RetentionSchedule: cfg.Retention.Schedule,
		},
	)
	if err != nil {
		log.Fatalf("Failed to create dashboard service: %v", err)
	}

	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start retention schedule: %v", err)
	}

	navigator, err := navigation.NewNavigator(catalog, cfg.Server.MaxSessions)
	if err != nil {
		log.Fatalf("Failed to create navigator: %v", err)
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		cfg.Analysis.MaxUploadBytes,
		svc,
		navigator,
		natsConn,
		cfg.NATS.EventsTopic,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	svc.Stop()

	log.Println("Shutdown complete")
}

// Initialize the dataset store for the configured driver
func initStore(ctx context.Context, cfg config.DatabaseConfig) (mention.Store, error) {
	if cfg.Driver == config.DriverSQLite {
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return storage.NewSQLiteStore(ctx, cfg.SQLitePath)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store, err := storage.NewDatasetStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
