package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-planner/config"
	"project-planner/handlers"
	"project-planner/logging"
	"project-planner/metrics"
	"project-planner/middleware"
	"project-planner/repositories"
	"project-planner/services"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(logging.Options{
		SystemName: "project-planner",
		FilePath:   cfg.LogFile,
		Level:      cfg.LogLevel,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Project Planner API...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, disconnect, err := openStore(ctx, cfg)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: %v", err)
	}
	defer disconnect()

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:          store,
		JWT:            services.NewJWTService(cfg.JWTSecret, cfg.TokenTTL),
		AllowedOrigins: cfg.AllowedOrigins,
		AuthLimiter:    middleware.NewRateLimiter(ctx, cfg.AuthRateRPS, cfg.AuthRateBurst),
		Metrics:        metrics.New(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVER_STOPPED, Description: Server stopped")
}

// openStore connects to MongoDB, or builds the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logging.Logger.Warn("Event ID: DB_MEMORY_STORE, Description: Using in-memory storage, data is lost on exit")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	disconnect := func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		if err := client.Disconnect(dctx); err != nil {
			logging.Logger.Errorf("Event ID: DB_DISCONNECT_FAILED, Description: %v", err)
		}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database %s", cfg.MongoDBName)

	store, err := repositories.NewMongoStore(connectCtx, client.Database(cfg.MongoDBName))
	if err != nil {
		disconnect()
		return nil, nil, err
	}
	return store, disconnect, nil
}
