package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsridhar76/go-ordermgmt/internal/auth"
	"github.com/nsridhar76/go-ordermgmt/internal/cache"
	"github.com/nsridhar76/go-ordermgmt/internal/config"
	"github.com/nsridhar76/go-ordermgmt/internal/healthcheck"
	"github.com/nsridhar76/go-ordermgmt/internal/httpapi"
	"github.com/nsridhar76/go-ordermgmt/internal/logging"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging/handlers"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging/noop"
	"github.com/nsridhar76/go-ordermgmt/internal/repository/memory"
	"github.com/nsridhar76/go-ordermgmt/internal/repository/postgres"
	"github.com/nsridhar76/go-ordermgmt/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// recordStore is what both store drivers provide.
type recordStore interface {
	service.OrderStore
	handlers.HistoryStore
	healthcheck.Pinger
}

var (
	_ recordStore = (*postgres.Store)(nil)
	_ recordStore = (*memory.Store)(nil)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ordersvc: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cacheClient := cache.NewClient(cfg.RedisURL, logger)
	if err := cacheClient.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = cacheClient.Close() }()

	tokens, err := auth.NewTokens(auth.TokensConfig{
		AccessSecret:  []byte(cfg.SecretKey),
		RefreshSecret: []byte(cfg.RefreshSecretKey),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	var (
		publisher messaging.Publisher = noop.Publisher{}
		events    httpapi.EventHistory
	)
	if cfg.EventSystem == config.EventSystemLocal {
		busMetrics, err := messaging.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		bus := messaging.NewBus(messaging.BusConfig{
			HandlerTimeout: cfg.EventHandlerTimeout,
			HistorySize:    cfg.EventHistorySize,
			Metrics:        busMetrics,
		}, logger)
		bus.RegisterHandlers(
			handlers.NewCacheHandler(cacheClient, cfg.CacheTTL, logger),
			handlers.NewHistoryHandler(store, logger),
		)
		publisher, events = bus, bus
		logger.Info("Event bus initialized", watermill.LogFields{"history_size": cfg.EventHistorySize})
	} else {
		logger.Info("Event system disabled, cache and audit trail will not be updated", nil)
	}

	checker := healthcheck.NewChecker(2*time.Second, logger)
	checker.Add("database", store)
	checker.Add("redis", cacheClient)

	httpMetrics, err := httpapi.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	api := httpapi.NewServer(
		httpapi.Config{Version: version, Gatherer: prometheus.DefaultGatherer},
		service.NewOrderService(service.OrderServiceConfig{CacheTTL: cfg.CacheTTL}, store, cacheClient, publisher, logger),
		service.NewAuthService(tokens, logger),
		tokens,
		events,
		checker,
		httpMetrics,
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", watermill.LogFields{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- errors.Wrap(err, "HTTP server failed")
		}
	}()

	var grpcServer *healthcheck.GRPCServer
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return errors.Wrapf(err, "cannot listen on %s", cfg.GRPCAddr)
		}
		grpcServer = healthcheck.NewGRPCServer(checker, cfg.HealthInterval, logger)
		go grpcServer.Run(ctx)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				serveErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down", nil)
	case err := <-serveErr:
		logger.Error("Server failed, shutting down", err, nil)
	}

	return shutdown(cfg.ShutdownTimeout, httpServer, grpcServer)
}

func openStore(ctx context.Context, cfg config.Config, logger watermill.LoggerAdapter) (recordStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Info("Using in-memory store", nil)
		return memory.NewStore(), func() {}, nil
	}

	store := postgres.NewStore(cfg.DatabaseURL, logger)
	if err := store.Connect(ctx); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

func shutdown(timeout time.Duration, httpServer *http.Server, grpcServer *healthcheck.GRPCServer) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var result error
	if err := httpServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "HTTP server shutdown"))
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	return result
}
