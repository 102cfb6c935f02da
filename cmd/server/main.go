/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars / app.env)
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the late-charge monitor (if enabled)
  5. Start server with graceful shutdown

CONFIGURATION (env or app.env):
  HTTP_HOST / HTTP_PORT         Bind address (default 0.0.0.0:8080)
  DB_PATH                       SQLite database path; ":memory:" works
  POLICY_DUE_DAY                Day of month charges fall due (1-28)
  POLICY_GRACE_DAYS             Grace window after the due date
  POLICY_DELINQUENCY_DAYS       Late window after grace
  MONITOR_ENABLED               Run the late-charge sweep
  MONITOR_INTERVAL              Sweep interval (default 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/edificio/billing-engine/api"
	"github.com/edificio/billing-engine/config"
	"github.com/edificio/billing-engine/store/sqlite"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Environment == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, cfg.LatenessPolicy(), log)
	router := api.NewRouter(handler)

	var monitor *api.LateChargeMonitor
	if cfg.Monitor.Enabled {
		monitor = api.NewLateChargeMonitor(handler, log)
		monitor.CheckInterval = cfg.Monitor.Interval
		monitor.Start()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Environment).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	if monitor != nil {
		monitor.Stop()
	}

	log.Info().Msg("server stopped")
}
