package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/logger/sl"
	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/service"
	"github.com/GintGld/clip-editor/internal/session"
	"github.com/GintGld/clip-editor/internal/storage"
)

type Session struct {
	log       *slog.Logger
	uploader  Uploader
	storage   SourceStorage
	registry  *session.Registry
	segmenter *timeline.Segmenter
	proc      audio.Processor
	defaults  models.MixParams
	maxVolume float64
}

type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (models.Source, error)
}

type SourceStorage interface {
	SaveSource(ctx context.Context, sessionID string, src models.Source) error
	SourceBySession(ctx context.Context, sessionID string) (models.Source, error)
	AllSources(ctx context.Context) ([]models.SessionSource, error)
	DeleteSessionSource(ctx context.Context, sessionID string) error
}

func New(
	log *slog.Logger,
	uploader Uploader,
	storage SourceStorage,
	registry *session.Registry,
	segmenter *timeline.Segmenter,
	proc audio.Processor,
	defaults models.MixParams,
	maxVolume float64,
) *Session {
	return &Session{
		log:       log,
		uploader:  uploader,
		storage:   storage,
		registry:  registry,
		segmenter: segmenter,
		proc:      proc,
		defaults:  defaults,
		maxVolume: maxVolume,
	}
}

// Create uploads source media and opens a session editing it.
func (s *Session) Create(ctx context.Context, name string, r io.Reader) (models.SessionInfo, error) {
	const op = "Session.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("name", name),
	)

	log.Info("uploading source")

	src, err := s.uploader.Upload(ctx, name, r)
	if err != nil {
		log.Error("failed to upload source", sl.Err(err))
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	if !timeline.ValidDuration(src.Duration) {
		log.Error("source has invalid duration", slog.Float64("duration", src.Duration))
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, service.ErrInvalidDuration)
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	src.CreatedAt = time.Now()

	id := uuid.NewString()
	cache := audio.New[string](s.proc, s.defaults, s.maxVolume)

	sess, err := session.New(id, src, s.segmenter, cache)
	if err != nil {
		log.Error("failed to create session", sl.Err(err))
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, service.ErrInvalidDuration)
	}

	if err := s.storage.SaveSource(ctx, id, src); err != nil {
		log.Error("failed to save source", sl.Err(err))
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	s.registry.Add(sess)

	log.Info(
		"session created",
		slog.String("session", id),
		slog.String("source", src.ID),
		slog.Float64("duration", src.Duration),
	)

	return info(sess, src), nil
}

// Session returns summary of the session.
// Source descriptor is read from the source registry.
func (s *Session) Session(ctx context.Context, id string) (models.SessionInfo, error) {
	const op = "Session.Session"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session", id),
	)

	sess, err := s.registry.Get(id)
	if err != nil {
		log.Warn("session not found")
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}

	src, err := s.storage.SourceBySession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSourceNotFound) {
			log.Warn("session has no registered source")
			return models.SessionInfo{}, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
		}
		log.Error("failed to get source", sl.Err(err))
		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	return info(sess, src), nil
}

// Sessions lists open sessions, oldest first.
//
// Registered sources without a live session are
// leftovers of a crash and are skipped.
func (s *Session) Sessions(ctx context.Context) ([]models.SessionInfo, error) {
	const op = "Session.Sessions"

	log := s.log.With(slog.String("op", op))

	sources, err := s.storage.AllSources(ctx)
	if err != nil {
		log.Error("failed to list sources", sl.Err(err))
		return []models.SessionInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	infos := make([]models.SessionInfo, 0, len(sources))
	for _, ss := range sources {
		sess, err := s.registry.Get(ss.SessionID)
		if err != nil {
			log.Debug("skip source without session", slog.String("session", ss.SessionID))
			continue
		}
		infos = append(infos, info(sess, ss.Source))
	}

	return infos, nil
}

// Close discards the session and everything derived in it.
func (s *Session) Close(ctx context.Context, id string) error {
	const op = "Session.Close"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session", id),
	)

	if err := s.registry.Close(id); err != nil {
		log.Warn("session not found")
		return fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}

	if err := s.storage.DeleteSessionSource(ctx, id); err != nil && !errors.Is(err, storage.ErrSourceNotFound) {
		log.Error("failed to delete source", sl.Err(err))
	}

	log.Info("session closed")

	return nil
}

func info(sess *session.Session, src models.Source) models.SessionInfo {
	cuts, segments := sess.Counts()

	return models.SessionInfo{
		ID:        sess.ID,
		Source:    src,
		Cuts:      cuts,
		Segments:  segments,
		Entities:  sess.Audio.IDs(),
		CreatedAt: sess.CreatedAt,
	}
}
