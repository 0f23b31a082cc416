package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/clip-editor/internal/client/media"
	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/service"
	"github.com/GintGld/clip-editor/internal/session"
)

type fakeProcessor struct {
	mixErr error
}

func (f *fakeProcessor) Separate(_ context.Context, video []byte) (audio.Stems, error) {
	return audio.Stems{Vocals: []byte("v"), Music: []byte("m")}, nil
}

func (f *fakeProcessor) Mix(_ context.Context, req audio.MixRequest) (models.Artifact, error) {
	if f.mixErr != nil {
		return models.Artifact{}, f.mixErr
	}
	data := []byte(fmt.Sprintf("mix(%s|%.1f)", req.Video, req.Params.VocalsVolume))
	return models.Artifact{Data: data}, nil
}

func setup(t *testing.T) (*Mixer, *fakeProcessor) {
	t.Helper()

	proc := &fakeProcessor{}
	sess, err := session.New(
		"sess",
		models.Source{ID: "src", Duration: 10},
		timeline.New(timeline.DefaultTolerances()),
		audio.New[string](proc, models.DefaultParams(), models.DefaultMaxVolume),
	)
	require.NoError(t, err)

	reg := session.NewRegistry()
	reg.Add(sess)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, reg), proc
}

func TestStemsRound(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	st, err := m.Register(ctx, "sess", "clip-0", models.Artifact{Data: []byte("X")})
	require.NoError(t, err)
	assert.Equal(t, "clip-0", st.EntityID)
	assert.Equal(t, int64(1), st.FileSize)

	_, err = m.Apply(ctx, "sess", "clip-0")
	assert.ErrorIs(t, err, service.ErrNothingToApply)

	st, err = m.Separate(ctx, "sess", "clip-0")
	require.NoError(t, err)
	assert.Equal(t, models.SeparationSeparated, st.Separation)

	_, err = m.Separate(ctx, "sess", "clip-0")
	assert.ErrorIs(t, err, service.ErrAlreadySeparated)

	p := models.DefaultParams()
	p.VocalsVolume = 0
	st, err = m.SetParams(ctx, "sess", "clip-0", p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Params.VocalsVolume)

	st, err = m.Apply(ctx, "sess", "clip-0")
	require.NoError(t, err)
	assert.True(t, st.CanRevert)
	assert.Equal(t, 1.0, st.Params.VocalsVolume)

	art, err := m.Media(ctx, "sess", "clip-0")
	require.NoError(t, err)
	assert.Equal(t, "mix(X|0.0)", string(art.Data))

	_, res, err := m.Revert(ctx, "sess", "clip-0")
	require.NoError(t, err)
	assert.Equal(t, audio.RevertRestored, res)

	art, err = m.Media(ctx, "sess", "clip-0")
	require.NoError(t, err)
	assert.Equal(t, "X", string(art.Data))

	_, _, err = m.Revert(ctx, "sess", "clip-0")
	assert.ErrorIs(t, err, service.ErrNothingToRevert)
}

func TestCustomRound(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "sess", "export", models.Artifact{Data: []byte("Y")})
	require.NoError(t, err)

	_, _, err = m.UploadCustom(ctx, "sess", "export", "song.mp3", nil)
	assert.ErrorIs(t, err, service.ErrEmptyFile)

	st, reverted, err := m.UploadCustom(ctx, "sess", "export", "song.mp3", []byte("song"))
	require.NoError(t, err)
	assert.False(t, reverted)
	assert.Equal(t, models.CustomStaged, st.Custom)
	assert.Equal(t, "song.mp3", st.CustomName)

	st, err = m.Apply(ctx, "sess", "export")
	require.NoError(t, err)
	assert.Equal(t, models.CustomApplied, st.Custom)

	_, reverted, err = m.UploadCustom(ctx, "sess", "export", "other.mp3", []byte("other"))
	require.NoError(t, err)
	assert.True(t, reverted)

	art, err := m.Media(ctx, "sess", "export")
	require.NoError(t, err)
	assert.Equal(t, "Y", string(art.Data))

	st, res, err := m.Revert(ctx, "sess", "export")
	require.NoError(t, err)
	assert.Equal(t, audio.RevertDiscarded, res)
	assert.Equal(t, models.CustomNone, st.Custom)
}

func TestApplyRemoteFailure(t *testing.T) {
	m, proc := setup(t)
	ctx := context.Background()
	proc.mixErr = &media.Error{Kind: media.KindBusiness, Message: "bad audio"}

	_, err := m.Register(ctx, "sess", "e", models.Artifact{Data: []byte("X")})
	require.NoError(t, err)
	_, _, err = m.UploadCustom(ctx, "sess", "e", "a.mp3", []byte("a"))
	require.NoError(t, err)

	_, err = m.Apply(ctx, "sess", "e")
	msg, ok := media.IsBusiness(err)
	require.True(t, ok)
	assert.Equal(t, "bad audio", msg)

	st, err := m.Entity(ctx, "sess", "e")
	require.NoError(t, err)
	assert.Equal(t, models.CustomStaged, st.Custom)
	assert.False(t, st.Processing)
}

func TestEntities(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		_, err := m.Register(ctx, "sess", id, models.Artifact{Data: []byte(id)})
		require.NoError(t, err)
	}

	list, err := m.Entities(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].EntityID)

	require.NoError(t, m.Remove(ctx, "sess", "b"))
	assert.ErrorIs(t, m.Remove(ctx, "sess", "b"), service.ErrEntityNotFound)

	_, err = m.Entity(ctx, "sess", "b")
	assert.ErrorIs(t, err, service.ErrEntityNotFound)

	_, err = m.Entities(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}
