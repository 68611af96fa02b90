// Command server is the gateway's process entrypoint: it loads
// configuration, connects the database, wires the dependency-injection
// container, and serves the WebSocket session gateway plus the bootstrap
// HTTP endpoint, grounded on the teacher's cmd/server/main.go and root
// main.go (signal-driven graceful shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxgate/backend/pkg/config"
	"voxgate/backend/pkg/di"
	"voxgate/backend/pkg/logger"
	"voxgate/backend/pkg/router"
	"voxgate/backend/pkg/secrets"
	"voxgate/backend/shared/observability"
	"voxgate/backend/speech/voiceprofile"
	"voxgate/backend/store/archive"
	"voxgate/backend/store/models"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format == "json"
	log := logger.New(logConfig)

	if err := secrets.Init(log); err != nil {
		log.Warn("secrets manager unavailable, falling back to environment variables", "error", err.Error())
	}

	shutdownTracing := observability.SetupTracing("voxgate-gateway")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	db, err := config.NewDB()
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.ChatSession{},
		&models.Message{},
		&voiceprofile.Profile{},
		&archive.Chunk{},
	); err != nil {
		log.Error("failed to migrate database", "error", err.Error())
		os.Exit(1)
	}

	container, err := di.New(db, cfg, log)
	if err != nil {
		log.Error("failed to build dependency container", "error", err.Error())
		os.Exit(1)
	}

	if container.Archive != nil {
		go runArchiveSweeper(container.Archive, cfg.Archive.CleanupPeriod)
	}

	r := router.New(container)
	r.SetupRoutes()
	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("shutting down server")
	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server shutdown complete")
}

func runArchiveSweeper(a *archive.Archive, period time.Duration) {
	if period <= 0 {
		period = time.Hour
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		a.Sweep()
	}
}
