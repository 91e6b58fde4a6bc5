package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"product-catalog-importer/internal/api"
	"product-catalog-importer/internal/config"
	"product-catalog-importer/internal/importexport"
	"product-catalog-importer/internal/logging"
	"product-catalog-importer/internal/mapping"
	"product-catalog-importer/internal/store"
)

const (
	defaultAppName = "ProductCatalogImporter"
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	// A missing .env is fine, the environment may be set some other way.
	envErr := godotenv.Load()

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		fatal("error loading configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		slog.Info("no .env file loaded, relying on system environment")
	}
	slog.Info("starting service", "app", defaultAppName, "app_env", cfg.AppEnv, "log_level", cfg.LogLevel)

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		fatal("failed to initialize database connection", "error", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		fatal("failed to ping database", "error", err)
	}
	slog.Info("database connection established")

	dbStore := store.NewPostgresStore(db)
	if err := dbStore.Migrate(context.Background()); err != nil {
		fatal("failed to migrate database", "error", err)
	}

	// --- Import Resource ---
	def, err := mapping.LoadFile(cfg.Import.MappingFile)
	if err != nil {
		fatal("failed to load mapping", "file", cfg.Import.MappingFile, "error", err)
	}
	resource, err := mapping.Build(def, dbStore, cfg.Import.Languages)
	if err != nil {
		fatal("failed to build resource", "file", cfg.Import.MappingFile, "error", err)
	}
	importer := importexport.NewImporter(resource, importexport.ProductFinder{Products: dbStore}, dbStore,
		importexport.WithCachedLoader(cfg.Import.CachedLoader))
	slog.Info("import resource ready", "resource", resource.Name, "columns", len(resource.Fields()), "cached_loader", cfg.Import.CachedLoader)

	httpAPIHandler := api.NewHTTPHandler(importer, dbStore, cfg.Import.MaxRows, cfg.Import.MaxBodyBytes)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, cfg.HttpServer.TimeoutWrite)
	registerHealthCheck(httpRouter, db)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server ListenAndServe error", "error", err)
		}
		slog.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer()
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		fatal("failed to listen for gRPC", "port", cfg.GrpcServer.Port, "error", err)
	}

	go func() {
		slog.Info("gRPC server listening", "port", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			fatal("gRPC server Serve error", "error", err)
		}
		slog.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(httpServer, grpcServer, dbStore, shutdownComplete)

	<-shutdownComplete
	slog.Info("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux, timeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Large batches run close to the write timeout.
	router.Use(middleware.Timeout(timeout))
}

func registerHealthCheck(router *chi.Mux, db *sql.DB) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logging.FromContext(r.Context()).Warn("health check DB ping failed", "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // payload carries the detailed status
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
	slog.Info("HTTP health check registered", "path", healthPath)
}

// setupGRPCServer serves the standard health and reflection services so
// the importer can sit behind the same health checks as the rest of the catalog.
func setupGRPCServer() *grpc.Server {
	s := grpc.NewServer()

	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	reflection.Register(s)
	slog.Info("gRPC health and reflection services registered")

	return s
}

func waitForShutdown(
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.PostgresStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	slog.Info("received signal, starting graceful shutdown", "signal", receivedSignal.String())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	// Shutdown waits for running imports to finish writing their response.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server graceful shutdown failed", "error", err)
	} else {
		slog.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		slog.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		slog.Warn("gRPC server graceful shutdown timed out, forcing stop", "error", shutdownCtx.Err())
		grpcServer.Stop()
	}

	if err := dbStore.Close(); err != nil {
		slog.Warn("error closing database connection", "error", err)
	}

	slog.Info("graceful shutdown sequence completed")
}
