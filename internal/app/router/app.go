package router

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	mediaClient "github.com/GintGld/clip-editor/internal/client/media"
	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/session"
	"github.com/GintGld/clip-editor/internal/storage/sqlite"

	mixerSrv "github.com/GintGld/clip-editor/internal/service/mixer"
	sessionSrv "github.com/GintGld/clip-editor/internal/service/session"
	timelineSrv "github.com/GintGld/clip-editor/internal/service/timeline"

	mixerCtr "github.com/GintGld/clip-editor/internal/controller/mixer"
	sessionCtr "github.com/GintGld/clip-editor/internal/controller/session"
	timelineCtr "github.com/GintGld/clip-editor/internal/controller/timeline"
)

type App struct {
	log     *slog.Logger
	address string
	app     *fiber.App
}

type Options struct {
	Address     string
	Timeout     time.Duration
	IdleTimeout time.Duration
	BodyLimitMB int

	Tolerances     timeline.Tolerances
	GapPadding     float64
	MinGapDuration float64

	MixDefaults models.MixParams
	MaxVolume   float64
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *sqlite.Storage,
	remote *mediaClient.Client,
	opts Options,
) *App {
	registry := session.NewRegistry()
	segmenter := timeline.New(opts.Tolerances)

	// Create sevices
	sessions := sessionSrv.New(
		log,
		remote,
		storage,
		registry,
		segmenter,
		remote,
		opts.MixDefaults,
		opts.MaxVolume,
	)

	tl := timelineSrv.New(
		log,
		registry,
		remote,
		opts.GapPadding,
		opts.MinGapDuration,
	)

	mixer := mixerSrv.New(
		log,
		registry,
	)

	bodyLimit := opts.BodyLimitMB << 20
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		BodyLimit:   bodyLimit,
		ReadTimeout: opts.Timeout,
		IdleTimeout: opts.IdleTimeout,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "ok",
			"sessions": registry.Len(),
		})
	})

	// Mount controllers to an app
	app.Mount("/sessions", sessionCtr.New(sessions))
	app.Mount("/timeline", timelineCtr.New(tl))
	app.Mount("/audio", mixerCtr.New(mixer))

	return &App{
		log:     log,
		address: opts.Address,
		app:     app,
	}
}

// Handler serves requests without a listener.
func (a *App) Handler() fasthttp.RequestHandler {
	return a.app.Handler()
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	a.log.Info("http server started", slog.String("address", a.address))

	return a.app.Listen(a.address)
}

func (a *App) Stop() {
	if err := a.app.Shutdown(); err != nil {
		a.log.Warn("failed to shutdown http server", slog.String("error", err.Error()))
	}
}
