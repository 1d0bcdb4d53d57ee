package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"soundkeep/internal/bot"
	"soundkeep/internal/config"
	"soundkeep/internal/logger"
	"soundkeep/internal/music/audiocache"
	"soundkeep/internal/music/downloader"
	"soundkeep/internal/music/extract"
	"soundkeep/internal/music/resolver"
	"soundkeep/internal/settings"
	"soundkeep/internal/storage"
	v "soundkeep/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		l := logger.Init("info", "")
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(cfg.LogLevel, cfg.LogFile)
	log.Info().Str("app", v.AppName).Str("version", v.AppVersion).Msg("starting")

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	sets, err := settings.New(cfg.SettingsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open settings store")
	}
	defer sets.Close()

	cache, err := audiocache.New(store, cfg.CacheDir, cfg.CacheMaxBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio cache")
	}

	client := extract.NewYTDLP(cfg.ExtractRate)
	dl := downloader.New(client, extract.DefaultProfiles, cfg.DownloadWorkers)
	res := resolver.New(client, resolver.NewYouTubeSearch(), cache, dl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx, cfg, store, sets, res, cache, dl)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("bot exited with error")
		}
	}

	log.Info().Msg("exited cleanly")
}
