package app

import (
	"log/slog"
	"os"

	routerApp "github.com/GintGld/clip-editor/internal/app/router"
	mediaClient "github.com/GintGld/clip-editor/internal/client/media"
	"github.com/GintGld/clip-editor/internal/config"
	"github.com/GintGld/clip-editor/internal/lib/logger/sl"
	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/storage/sqlite"
)

type App struct {
	Router  *routerApp.App
	storage *sqlite.Storage
}

func New(
	log *slog.Logger,
	cfg *config.Config,
) *App {
	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if cfg.Remote.BaseURL == "" {
		log.Warn("media api url is not set, processing requests will fail")
	}

	remote := mediaClient.New(
		log,
		cfg.Remote.BaseURL,
		cfg.Remote.APIKey,
		cfg.Remote.Timeout,
	)

	router := routerApp.New(
		log,
		storage,
		remote,
		routerApp.Options{
			Address:     cfg.HTTPServer.Address,
			Timeout:     cfg.HTTPServer.Timeout,
			IdleTimeout: cfg.HTTPServer.IdleTimeout,
			BodyLimitMB: cfg.HTTPServer.BodyLimitMB,
			Tolerances: timeline.Tolerances{
				MinSegment:   cfg.Timeline.MinSegment,
				MatchEpsilon: cfg.Timeline.MatchEpsilon,
			},
			GapPadding:     cfg.Timeline.GapPadding,
			MinGapDuration: cfg.Timeline.MinGapDuration,
			MixDefaults: models.MixParams{
				UseVocals:    true,
				UseMusic:     true,
				VocalsVolume: cfg.Mixer.VocalsVolume,
				MusicVolume:  cfg.Mixer.MusicVolume,
				CustomVolume: cfg.Mixer.CustomVolume,
			},
			MaxVolume: cfg.Mixer.MaxVolume,
		},
	)

	return &App{
		Router:  router,
		storage: storage,
	}
}

// Stop releases resources after the router is stopped.
func (a *App) Stop() error {
	return a.storage.Stop()
}
