package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sgunnelsporter/VirtualTourist/internal/api"
	"github.com/sgunnelsporter/VirtualTourist/internal/api/ws"
	"github.com/sgunnelsporter/VirtualTourist/internal/config"
	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/observability"
	"github.com/sgunnelsporter/VirtualTourist/internal/projection"
	"github.com/sgunnelsporter/VirtualTourist/internal/queue"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
	"github.com/sgunnelsporter/VirtualTourist/pkg/dto"
)

// downloadPublisher asks the worker to download a photo's image. The
// projection layer calls this when an album entry is rendered without data.
type downloadPublisher struct {
	producer *queue.Producer
}

func (d downloadPublisher) RequestDownload(ctx context.Context, pinID, photoID uuid.UUID) error {
	return d.producer.PublishCommand(models.AlbumCommand{
		Action:  models.AlbumActionDownload,
		PinID:   pinID,
		PhotoID: &photoID,
	})
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Virtual Tourist API service", "port", cfg.Server.Port)

	// Connect to MinIO
	objects, err := storage.NewObjectStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database, objects)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Album projections, backed by the store and the worker's downloads.
	registry := projection.NewRegistry(db, downloadPublisher{producer: producer})

	// Consume worker events: update projections and broadcast to clients.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.PhotoEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}

		registry.HandleEvent(ctx, ev)

		hub.BroadcastEvent(&dto.WSEvent{
			Type:    string(ev.Type),
			PinID:   ev.PinID,
			PhotoID: ev.PhotoID,
			Error:   ev.Error,
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		Store:    db,
		Commands: producer,
		Registry: registry,
		Hub:      hub,
		DB:       db,
		Objects:  objects,
		Queue:    producer,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
