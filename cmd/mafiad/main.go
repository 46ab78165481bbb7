package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mafiad/internal/config"
	"mafiad/internal/game"
	"mafiad/internal/logging"
	"mafiad/internal/registry"
	"mafiad/internal/transport"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(false)
		fallback.Fatal().Err(err).Msg("bad configuration")
	}
	log := logging.New(cfg.Debug)

	settings := game.Settings{
		NightDuration:     cfg.NightDuration(),
		DayDuration:       cfg.DayDuration(),
		VoteDuration:      cfg.VoteDuration(),
		ResultDelay:       cfg.ResultDelay(),
		DetectiveAccuracy: cfg.DetectiveAccuracy,
	}
	reg := registry.New(settings, cfg.RoomRetention(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg.StartSweeper(ctx, cfg.SweepInterval())

	srv := transport.NewServer(cfg, reg, log)
	srv.Version = buildVersion
	srv.BuildTime = buildTime

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("version", buildVersion).Msg("mafiad listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	cancel()
	reg.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
