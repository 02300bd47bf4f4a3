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

	"github.com/you/go-voice-flights/internal/config"
	"github.com/you/go-voice-flights/internal/httpx"
	"github.com/you/go-voice-flights/internal/logger"
	"github.com/you/go-voice-flights/internal/providers"
	"github.com/you/go-voice-flights/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "voice-flights"})
	log := logger.Get()

	if !cfg.AmadeusConfigured() {
		log.Warn().Msg("amadeus credentials missing; searches will fail until AMADEUS_CLIENT_ID and AMADEUS_CLIENT_SECRET are set")
	}

	// one client and one token broker for the whole process
	client := &http.Client{Timeout: cfg.RequestTimeout}
	tokens := providers.NewTokenBroker(cfg, client)
	amadeus := providers.NewAmadeus(cfg, tokens, client)
	searchSvc := service.NewSearchService(amadeus, cfg.RequestTimeout, cfg.VoiceFlightResults)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(cfg, searchSvc),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Bool("auth", cfg.AuthEnabled()).Msg("server listening")
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			log.Info().Msg("TLS enabled")
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}
