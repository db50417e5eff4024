package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/app"
	"renoquote/internal/config"
	"renoquote/internal/logging"
	"renoquote/internal/server"
)

func main() {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	ctx := context.Background()
	services, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire services")
	}
	defer services.Close()

	srv := server.New(cfg.Port, services.Handler, services.Options)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
