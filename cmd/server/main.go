package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/messenger/internal/application"
	"github.com/SARVESHVARADKAR123/messenger/internal/bus"
	"github.com/SARVESHVARADKAR123/messenger/internal/cache"
	"github.com/SARVESHVARADKAR123/messenger/internal/config"
	"github.com/SARVESHVARADKAR123/messenger/internal/handlers"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/policy"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository/postgres"
	"github.com/SARVESHVARADKAR123/messenger/internal/router"
	"github.com/SARVESHVARADKAR123/messenger/internal/storage"
	"github.com/SARVESHVARADKAR123/messenger/internal/tx"
	"github.com/SARVESHVARADKAR123/messenger/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	observability.InitLogger(cfg.ServiceName, cfg.Environment)
	log := observability.Log
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to reach database", zap.Error(err))
	}

	c := cache.New(cfg.RedisAddr)
	defer c.Client.Close()

	store := mustStorage(ctx, cfg, log)

	instanceID := uuid.NewString()
	events := bus.New(bus.Options{QueueSize: cfg.Bus.QueueSize, BufferSize: cfg.Bus.BufferSize})
	switch cfg.Bus.Broker {
	case "redis":
		events.AttachBroker(ctx, bus.NewRedisBroker(c.Client), instanceID)
	case "kafka":
		groupID := cfg.Bus.KafkaGroupID
		if groupID == "" {
			groupID = "messenger-" + instanceID
		}
		events.AttachBroker(ctx, bus.NewKafkaBroker(cfg.Bus.KafkaBrokers, cfg.Bus.KafkaTopic, groupID), instanceID)
	}
	log.Info("event bus ready", zap.String("broker", cfg.Bus.Broker), zap.String("instance_id", instanceID))

	repo := &postgres.Repository{DB: db, Cache: c}
	svc := application.New(repo, &tx.Manager{DB: db}, store, events, policy.NewAuthorizer())

	registry := websocket.NewRegistry()

	h := router.NewRouter(router.Handlers{
		Conversations: handlers.NewConversationHandler(svc),
		Messages:      handlers.NewMessageHandler(svc),
		Admin:         handlers.NewAdminHandler(svc),
		Events:        websocket.NewHandler(registry, events),
		Ready: map[string]observability.Pinger{
			"postgres": db,
			"redis":    c,
		},
	}, cfg)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	// No WriteTimeout: bulk uploads and websocket connections outlive any fixed bound.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info("messenger started", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	registry.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	events.Close()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", zap.Error(err))
	}

	log.Info("messenger stopped")
}

func mustStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.Gateway {
	var (
		next storage.Gateway
		err  error
	)
	switch cfg.Storage.Driver {
	case "s3":
		next, err = storage.NewS3(ctx, storage.S3Config{
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
	default:
		next, err = storage.NewMinio(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		})
	}
	if err != nil {
		log.Fatal("failed to initialize attachment storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	return storage.NewGuarded(next, storage.GuardConfig{
		StoreTimeout: cfg.Storage.StoreTimeout,
		URLTimeout:   cfg.Storage.URLTimeout,
		MaxFailures:  cfg.Storage.BreakerMaxFailures,
		OpenTimeout:  cfg.Storage.BreakerOpenTimeout,
	})
}
