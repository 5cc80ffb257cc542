package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NateWesth/aleph-order-tracker/config"
	"github.com/NateWesth/aleph-order-tracker/internal/auth"
	"github.com/NateWesth/aleph-order-tracker/internal/events"
	handler "github.com/NateWesth/aleph-order-tracker/internal/handler/http"
	"github.com/NateWesth/aleph-order-tracker/internal/logger"
	"github.com/NateWesth/aleph-order-tracker/internal/metrics"
	"github.com/NateWesth/aleph-order-tracker/internal/repository"
	"github.com/NateWesth/aleph-order-tracker/internal/repository/postgres"
	"github.com/NateWesth/aleph-order-tracker/internal/service"
	"github.com/NateWesth/aleph-order-tracker/internal/view"
	"github.com/NateWesth/aleph-order-tracker/internal/viewcache"
	"github.com/NateWesth/aleph-order-tracker/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context cancelled on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	metrics.Register()

	// webhook token verification is optional: without a key the endpoint is
	// open, which is fine behind a trusted reverse proxy
	var token service.TokenService
	if cfg.WebhookTokenKey != "" {
		tokenKey, err := hex.DecodeString(cfg.WebhookTokenKey)
		if err != nil {
			logger.Log.Fatal("Error extracting webhook token key", zap.Error(err))
		}
		token = auth.NewAuthToken(tokenKey)
	}

	// view cache
	var cache viewcache.Cache
	if cfg.RedisAddr != "" {
		rc := viewcache.NewRedisCache(cfg.RedisAddr)
		defer rc.Close()
		cache = rc
	} else {
		cache = viewcache.NewMemoryCache()
	}

	// dispatch pipeline
	bus := events.NewBus()
	defer bus.Close()
	normalizer := events.NewNormalizer(logger.Log)
	pipeline := events.NewPipeline(normalizer, bus)
	dispatcher := events.NewDispatcher(bus, cfg.DebounceQuiet, logger.Log)
	defer dispatcher.Stop()

	// optional NATS relay for out-of-process consumers
	if cfg.NATSAddr != "" {
		relay, err := events.NewRelay(cfg.NATSAddr, logger.Log)
		if err != nil {
			logger.Log.Fatal("Error connecting realtime relay", zap.Error(err))
		}
		defer relay.Close()
		if _, err := relay.Attach(bus); err != nil {
			logger.Log.Fatal("Error attaching realtime relay", zap.Error(err))
		}
	}

	// dependency injection
	// order
	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(orderRepo, pipeline, cache)
	orderHandler := handler.NewOrderHandler(orderService)

	// reconcile
	syncLogRepo := repository.NewSyncLogRepository(db)
	reconcileService := service.NewReconcileService(orderRepo, syncLogRepo, pipeline, cfg.TargetStage, cfg.ReconcileTimeout)
	webhookHandler := handler.NewWebhookHandler(reconcileService)

	// views
	registry := view.NewRegistry(orderRepo, cache)
	viewHandler := handler.NewViewHandler(registry)
	registry.RegisterAll(dispatcher)

	if err := dispatcher.Start(ctx); err != nil {
		logger.Log.Fatal("Error starting dispatcher", zap.Error(err))
	}

	// initial render so the first page load never waits for an event
	dispatcher.RefreshAll(ctx)

	sweeper := worker.NewViewSweeper(dispatcher, cfg.SweepInterval)
	go sweeper.Run(ctx)

	webhookAuthFailed := func(r *http.Request, reason string) {
		logger.Log.Error("webhook auth failed",
			zap.String("remote", r.RemoteAddr), zap.String("reason", reason))
		reconcileService.RecordFailure(r.Context(), "webhook", reason)
	}

	router := chi.NewRouter()

	router.Use(handler.Logging(logger.Log))

	router.Post("/api/orders", orderHandler.CreateOrder())
	router.Post("/api/orders/import", orderHandler.ImportOrder())
	router.Get("/api/orders/{id}", orderHandler.GetOrder())
	router.Delete("/api/orders/{id}", orderHandler.DeleteOrder())
	router.Post("/api/orders/{id}/complete", orderHandler.CompleteOrder())
	router.Post("/api/orders/{id}/items/{itemID}/stage", orderHandler.AdvanceItemStage())
	router.Post("/api/orders/{id}/items/{itemID}/delivered", orderHandler.SetDelivered())
	router.Post("/api/orders/{id}/purchase-orders", orderHandler.AddPurchaseOrder())
	router.Get("/api/views/{view}/orders", viewHandler.GetViewOrders())

	router.Group(func(group chi.Router) {
		group.Use(handler.WebhookAuth(token, webhookAuthFailed))
		group.Post("/api/webhooks/erp", webhookHandler.HandleERPEvent())
	})

	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Error starting server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Error shutting down server", zap.Error(err))
	}

	logger.Log.Info("Server stopped")
}
