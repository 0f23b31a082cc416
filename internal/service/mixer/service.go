package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/logger/sl"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/service"
	"github.com/GintGld/clip-editor/internal/session"
)

type Mixer struct {
	log      *slog.Logger
	sessions SessionProvider
}

type SessionProvider interface {
	Get(id string) (*session.Session, error)
}

func New(
	log *slog.Logger,
	sessions SessionProvider,
) *Mixer {
	return &Mixer{
		log:      log,
		sessions: sessions,
	}
}

// Register starts audio editing of the entity media.
func (m *Mixer) Register(ctx context.Context, sid, eid string, media models.Artifact) (models.AudioState, error) {
	const op = "Mixer.Register"

	log := m.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("entity", eid),
	)

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, err
	}

	if err := cache.Put(eid, media); err != nil {
		log.Warn("failed to register entity", sl.Err(err))
		return models.AudioState{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	log.Info("entity registered", slog.Int("size", len(media.Data)))

	return m.state(cache, eid)
}

func (m *Mixer) Entities(ctx context.Context, sid string) ([]models.AudioState, error) {
	const op = "Mixer.Entities"

	cache, err := m.cache(op, sid)
	if err != nil {
		return nil, err
	}

	ids := cache.IDs()
	states := make([]models.AudioState, 0, len(ids))
	for _, id := range ids {
		st, err := m.state(cache, id)
		if err != nil {
			// removed concurrently
			continue
		}
		states = append(states, st)
	}

	return states, nil
}

func (m *Mixer) Entity(ctx context.Context, sid, eid string) (models.AudioState, error) {
	const op = "Mixer.Entity"

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, err
	}

	st, err := m.state(cache, eid)
	if err != nil {
		return models.AudioState{}, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

// Media returns current media of the entity.
func (m *Mixer) Media(ctx context.Context, sid, eid string) (models.Artifact, error) {
	const op = "Mixer.Media"

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.Artifact{}, err
	}

	art, err := cache.Artifact(eid)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	return art, nil
}

// Remove ends editing of the entity.
func (m *Mixer) Remove(ctx context.Context, sid, eid string) error {
	const op = "Mixer.Remove"

	cache, err := m.cache(op, sid)
	if err != nil {
		return err
	}

	if err := cache.Remove(eid); err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}

	m.log.Info("entity removed", slog.String("op", op), slog.String("session", sid), slog.String("entity", eid))

	return nil
}

// Separate splits entity audio into vocals and music.
func (m *Mixer) Separate(ctx context.Context, sid, eid string) (models.AudioState, error) {
	const op = "Mixer.Separate"

	log := m.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("entity", eid),
	)

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, err
	}

	log.Info("separating audio")

	if err := cache.Separate(ctx, eid); err != nil {
		if isLocal(err) {
			log.Warn("separation rejected", sl.Err(err))
		} else {
			log.Error("failed to separate audio", sl.Err(err))
		}
		return models.AudioState{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	log.Info("audio separated")

	return m.state(cache, eid)
}

// UploadCustom stages custom audio. Applied custom
// audio is reverted before it is replaced.
func (m *Mixer) UploadCustom(ctx context.Context, sid, eid, name string, data []byte) (models.AudioState, bool, error) {
	const op = "Mixer.UploadCustom"

	log := m.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("entity", eid),
	)

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, false, err
	}

	reverted, err := cache.UploadCustom(eid, name, data)
	if err != nil {
		log.Warn("custom audio rejected", sl.Err(err))
		return models.AudioState{}, false, fmt.Errorf("%s: %w", op, translate(err))
	}

	log.Info(
		"custom audio staged",
		slog.String("name", name),
		slog.Int("size", len(data)),
		slog.Bool("reverted", reverted),
	)

	st, err := m.state(cache, eid)
	return st, reverted, err
}

// SetParams sets volumes of the next apply.
func (m *Mixer) SetParams(ctx context.Context, sid, eid string, p models.MixParams) (models.AudioState, error) {
	const op = "Mixer.SetParams"

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, err
	}

	if _, err := cache.SetParams(eid, p); err != nil {
		return models.AudioState{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	return m.state(cache, eid)
}

// Apply mixes derived audio into entity media.
func (m *Mixer) Apply(ctx context.Context, sid, eid string) (models.AudioState, error) {
	const op = "Mixer.Apply"

	log := m.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("entity", eid),
	)

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, err
	}

	log.Info("applying audio")

	if err := cache.Apply(ctx, eid); err != nil {
		if isLocal(err) {
			log.Warn("apply rejected", sl.Err(err))
		} else {
			log.Error("failed to apply audio", sl.Err(err))
		}
		return models.AudioState{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	st, err := m.state(cache, eid)
	if err != nil {
		return models.AudioState{}, err
	}

	log.Info("audio applied", slog.Int64("size", st.FileSize))

	return st, nil
}

// Revert undoes the last apply or discards staged custom audio.
func (m *Mixer) Revert(ctx context.Context, sid, eid string) (models.AudioState, audio.RevertResult, error) {
	const op = "Mixer.Revert"

	log := m.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("entity", eid),
	)

	cache, err := m.cache(op, sid)
	if err != nil {
		return models.AudioState{}, "", err
	}

	res, err := cache.Revert(eid)
	if err != nil {
		log.Warn("revert rejected", sl.Err(err))
		return models.AudioState{}, "", fmt.Errorf("%s: %w", op, translate(err))
	}

	log.Info("reverted", slog.String("result", string(res)))

	st, err := m.state(cache, eid)
	return st, res, err
}

func (m *Mixer) cache(op, sid string) (*audio.Cache[string], error) {
	sess, err := m.sessions.Get(sid)
	if err != nil {
		m.log.Warn("session not found", slog.String("op", op), slog.String("session", sid))
		return nil, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}
	return sess.Audio, nil
}

func (m *Mixer) state(cache *audio.Cache[string], eid string) (models.AudioState, error) {
	st, err := cache.State(eid)
	if err != nil {
		return models.AudioState{}, translate(err)
	}
	st.EntityID = eid
	return st, nil
}

// translate maps cache errors to service errors.
// Remote errors are passed as is.
func translate(err error) error {
	switch {
	case errors.Is(err, audio.ErrEntityNotFound):
		return service.ErrEntityNotFound
	case errors.Is(err, audio.ErrBusy):
		return service.ErrBusy
	case errors.Is(err, audio.ErrApplied):
		return service.ErrAudioApplied
	case errors.Is(err, audio.ErrAlreadySeparated):
		return service.ErrAlreadySeparated
	case errors.Is(err, audio.ErrNothingToApply):
		return service.ErrNothingToApply
	case errors.Is(err, audio.ErrNothingToRevert):
		return service.ErrNothingToRevert
	case errors.Is(err, audio.ErrEmptyAudio), errors.Is(err, audio.ErrEmptyMedia):
		return service.ErrEmptyFile
	case errors.Is(err, audio.ErrInvalidParams):
		return service.ErrInvalidParams
	}
	return err
}

func isLocal(err error) bool {
	return translate(err) != err
}
