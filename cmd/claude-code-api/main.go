package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/znorris/claude-code-api/internal/api"
	"github.com/znorris/claude-code-api/internal/config"
	"github.com/znorris/claude-code-api/internal/db"
	"github.com/znorris/claude-code-api/internal/logging"
	"github.com/znorris/claude-code-api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel)
	logger.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DatabasePath).Msg("starting claude-code-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := db.MustOpen(cfg.DatabasePath)
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Fatal().Err(err).Msg("db migration failed")
	}

	st := store.New(conn)

	// periodic sweep of expired sessions; messages cascade with them
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := st.Sessions().DeleteExpired(ctx)
				if err != nil {
					logger.Warn().Err(err).Msg("session sweep failed")
				} else if n > 0 {
					logger.Info().Int64("sessions", n).Msg("expired sessions removed")
				}
			}
		}
	}()

	app := api.NewServer(cfg, conn, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
}
