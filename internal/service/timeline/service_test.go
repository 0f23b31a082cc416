package service

import (
	"context"
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

type fakeRemote struct {
	analysis   media.GapAnalysis
	analyzeErr error
	captionErr error

	analyzed [][2]float64
	removed  []models.Gap
	padding  float64
	exported []models.Segment

	// runs while the remote call is in flight
	onRemove func()
}

func (f *fakeRemote) AnalyzeGaps(_ context.Context, _ string, start, end, _ float64) (media.GapAnalysis, error) {
	f.analyzed = append(f.analyzed, [2]float64{start, end})
	return f.analysis, f.analyzeErr
}

func (f *fakeRemote) RemoveGaps(_ context.Context, _ string, _, _ float64, gaps []models.Gap, padding float64) (models.Artifact, error) {
	if f.onRemove != nil {
		f.onRemove()
	}
	f.removed = gaps
	f.padding = padding
	return models.Artifact{Data: []byte("trimmed"), FileSize: 7}, nil
}

func (f *fakeRemote) Export(_ context.Context, _ string, segments []models.Segment) (models.Artifact, error) {
	f.exported = segments
	return models.Artifact{Data: []byte("export"), FileSize: 6}, nil
}

func (f *fakeRemote) BurnCaptions(_ context.Context, video []byte) (models.Artifact, error) {
	if f.captionErr != nil {
		return models.Artifact{}, f.captionErr
	}
	data := append([]byte("cc+"), video...)
	return models.Artifact{Data: data, FileSize: int64(len(data))}, nil
}

type nopProcessor struct{}

func (nopProcessor) Separate(context.Context, []byte) (audio.Stems, error) {
	return audio.Stems{}, nil
}

func (nopProcessor) Mix(context.Context, audio.MixRequest) (models.Artifact, error) {
	return models.Artifact{}, nil
}

// gateProcessor blocks mixing until gate is closed.
type gateProcessor struct {
	started chan struct{}
	gate    chan struct{}
}

func (p *gateProcessor) Separate(context.Context, []byte) (audio.Stems, error) {
	return audio.Stems{}, nil
}

func (p *gateProcessor) Mix(context.Context, audio.MixRequest) (models.Artifact, error) {
	p.started <- struct{}{}
	<-p.gate
	return models.Artifact{Data: []byte("mixed")}, nil
}

func setup(t *testing.T) (*Timeline, *fakeRemote, *session.Session) {
	t.Helper()
	return setupWith(t, nopProcessor{})
}

func setupWith(t *testing.T, proc audio.Processor) (*Timeline, *fakeRemote, *session.Session) {
	t.Helper()

	sess, err := session.New(
		"sess",
		models.Source{ID: "src", Name: "talk.mp4", Duration: 10, FPS: 25},
		timeline.New(timeline.DefaultTolerances()),
		audio.New[string](proc, models.DefaultParams(), models.DefaultMaxVolume),
	)
	require.NoError(t, err)

	reg := session.NewRegistry()
	reg.Add(sess)

	remote := &fakeRemote{
		analysis: media.GapAnalysis{
			Words: []models.Word{
				{Word: "Привет", Start: 0.1, End: 0.5},
				{Word: "hello", Start: 1, End: 1.4},
				{Word: "help", Start: 2, End: 2.3},
			},
			Gaps:         []models.Gap{{Start: 1.4, End: 2, Duration: 0.6}},
			TotalGapTime: 0.6,
		},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, reg, remote, 0.05, 0.4), remote, sess
}

func TestCutsAndSegments(t *testing.T) {
	tl, _, _ := setup(t)
	ctx := context.Background()

	_, _, err := tl.AddCut(ctx, "sess", 7.5)
	require.NoError(t, err)
	cut, segs, err := tl.AddCut(ctx, "sess", 3.0)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	for _, s := range segs {
		assert.True(t, s.Selected)
		assert.False(t, s.GapsAnalyzed)
	}

	segs, err = tl.RemoveCut(ctx, "sess", cut.ID)
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	_, err = tl.RemoveCut(ctx, "sess", cut.ID)
	assert.ErrorIs(t, err, service.ErrCutNotFound)

	segs, err = tl.ClearCuts(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, segs, 1)

	_, err = tl.Segments(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestAnalyzeAndRemoveGaps(t *testing.T) {
	tl, remote, sess := setup(t)
	ctx := context.Background()

	_, segs, err := tl.AddCut(ctx, "sess", 5)
	require.NoError(t, err)
	first, second := segs[0], segs[1]

	_, err = tl.RemoveGaps(ctx, "sess", first.ID)
	assert.ErrorIs(t, err, service.ErrNotAnalyzed)

	a, err := tl.Analyze(ctx, "sess", first.ID, 0.4)
	require.NoError(t, err)
	assert.Equal(t, first.ID, a.SegmentID)
	assert.Equal(t, [][2]float64{{0, 5}}, remote.analyzed)

	// analysis of the first segment is not usable for the second
	_, err = tl.RemoveGaps(ctx, "sess", second.ID)
	assert.ErrorIs(t, err, service.ErrNotAnalyzed)

	res, err := tl.RemoveGaps(ctx, "sess", first.ID)
	require.NoError(t, err)
	assert.True(t, res.Segment.GapsAnalyzed)
	assert.Equal(t, remote.analysis.Gaps, res.Segment.Gaps)
	assert.Equal(t, 0.05, remote.padding)
	assert.Equal(t, SegmentEntity(first.ID), res.EntityID)

	art, err := sess.Audio.Artifact(res.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "trimmed", string(art.Data))
}

func TestSelectDropsForeignAnalysis(t *testing.T) {
	tl, _, _ := setup(t)
	ctx := context.Background()

	_, segs, err := tl.AddCut(ctx, "sess", 5)
	require.NoError(t, err)

	_, err = tl.Analyze(ctx, "sess", segs[0].ID, 0.4)
	require.NoError(t, err)

	_, err = tl.Analysis(ctx, "sess")
	require.NoError(t, err)

	_, err = tl.Select(ctx, "sess", segs[1].ID)
	require.NoError(t, err)

	_, err = tl.Analysis(ctx, "sess")
	assert.ErrorIs(t, err, service.ErrNotAnalyzed)
}

func TestAnalyzeFailure(t *testing.T) {
	tl, remote, _ := setup(t)
	ctx := context.Background()
	remote.analyzeErr = &media.Error{Kind: media.KindBusiness, Message: "No speech"}

	segs, err := tl.Segments(ctx, "sess")
	require.NoError(t, err)

	_, err = tl.Analyze(ctx, "sess", segs[0].ID, 0.4)
	msg, ok := media.IsBusiness(err)
	require.True(t, ok)
	assert.Equal(t, "No speech", msg)

	_, err = tl.Analyze(ctx, "sess", segs[0].ID, 0)
	assert.ErrorIs(t, err, service.ErrInvalidGap)
}

func TestSearchWords(t *testing.T) {
	tl, _, _ := setup(t)
	ctx := context.Background()

	segs, err := tl.Segments(ctx, "sess")
	require.NoError(t, err)
	_, err = tl.Analyze(ctx, "sess", segs[0].ID, 0.4)
	require.NoError(t, err)

	words, err := tl.SearchWords(ctx, "sess", "HEL")
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "help", words[0].Word)

	words, err = tl.SearchWords(ctx, "sess", "привет")
	require.NoError(t, err)
	require.Len(t, words, 1)

	words, err = tl.SearchWords(ctx, "sess", "")
	require.NoError(t, err)
	assert.Len(t, words, 3)
}

func TestExport(t *testing.T) {
	tl, remote, sess := setup(t)
	ctx := context.Background()

	_, segs, err := tl.AddCut(ctx, "sess", 4)
	require.NoError(t, err)
	_, err = tl.Toggle(ctx, "sess", segs[0].ID)
	require.NoError(t, err)

	res, err := tl.Export(ctx, "sess", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Segments)
	assert.Equal(t, 6.0, res.Duration)
	assert.True(t, res.Captions)
	assert.Empty(t, res.Warnings)
	require.Len(t, remote.exported, 1)
	assert.Equal(t, segs[1].ID, remote.exported[0].ID)

	art, err := sess.Audio.Artifact(ExportEntity)
	require.NoError(t, err)
	assert.Equal(t, "cc+export", string(art.Data))
}

func TestExportCaptionFailureIsNotFatal(t *testing.T) {
	tl, remote, sess := setup(t)
	ctx := context.Background()
	remote.captionErr = &media.Error{Kind: media.KindTransport, Message: "timeout"}

	res, err := tl.Export(ctx, "sess", true)
	require.NoError(t, err)
	assert.False(t, res.Captions)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "captions")

	art, err := sess.Audio.Artifact(ExportEntity)
	require.NoError(t, err)
	assert.Equal(t, "export", string(art.Data))
}

func TestExportNothingSelected(t *testing.T) {
	tl, _, _ := setup(t)
	ctx := context.Background()

	segs, err := tl.Segments(ctx, "sess")
	require.NoError(t, err)
	_, err = tl.Toggle(ctx, "sess", segs[0].ID)
	require.NoError(t, err)

	_, err = tl.Export(ctx, "sess", false)
	assert.ErrorIs(t, err, service.ErrNothingSelected)

	_, err = tl.EDL(ctx, "sess", 0)
	assert.ErrorIs(t, err, service.ErrNothingSelected)
}

func TestEDL(t *testing.T) {
	tl, _, _ := setup(t)
	ctx := context.Background()

	_, _, err := tl.AddCut(ctx, "sess", 2)
	require.NoError(t, err)

	out, err := tl.EDL(ctx, "sess", 0)
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE: talk")
	assert.Contains(t, out, "002  AX       V     C        00:00:02:00 00:00:10:00 00:00:02:00 00:00:10:00")
}

func TestRemoveGapsBusyEntityLeavesSegment(t *testing.T) {
	proc := &gateProcessor{started: make(chan struct{}, 1), gate: make(chan struct{})}
	tl, remote, sess := setupWith(t, proc)
	ctx := context.Background()

	segs, err := tl.Segments(ctx, "sess")
	require.NoError(t, err)
	segID := segs[0].ID
	_, err = tl.Analyze(ctx, "sess", segID, 0.4)
	require.NoError(t, err)

	entityID := SegmentEntity(segID)
	require.NoError(t, sess.Audio.Put(entityID, models.Artifact{Data: []byte("X")}))
	_, err = sess.Audio.UploadCustom(entityID, "song.mp3", []byte("song"))
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		done <- sess.Audio.Apply(ctx, entityID)
	}()
	<-proc.started

	_, err = tl.RemoveGaps(ctx, "sess", segID)
	assert.ErrorIs(t, err, service.ErrBusy)
	assert.Nil(t, remote.removed, "remote must not be called")

	seg, err := sess.Segment(segID)
	require.NoError(t, err)
	assert.False(t, seg.GapsAnalyzed)
	assert.Empty(t, seg.Gaps)

	close(proc.gate)
	require.NoError(t, <-done)

	// applied mix is never dropped by a new gap removal
	_, err = tl.RemoveGaps(ctx, "sess", segID)
	assert.ErrorIs(t, err, service.ErrAudioApplied)

	seg, err = sess.Segment(segID)
	require.NoError(t, err)
	assert.False(t, seg.GapsAnalyzed)

	_, err = sess.Audio.Revert(entityID)
	require.NoError(t, err)

	res, err := tl.RemoveGaps(ctx, "sess", segID)
	require.NoError(t, err)
	assert.True(t, res.Segment.GapsAnalyzed)

	art, err := sess.Audio.Artifact(entityID)
	require.NoError(t, err)
	assert.Equal(t, "trimmed", string(art.Data))
}

func TestRemoveGapsEntityAppliedDuringRemoteCall(t *testing.T) {
	tl, remote, sess := setup(t)
	ctx := context.Background()

	segs, err := tl.Segments(ctx, "sess")
	require.NoError(t, err)
	segID := segs[0].ID
	_, err = tl.Analyze(ctx, "sess", segID, 0.4)
	require.NoError(t, err)

	entityID := SegmentEntity(segID)
	remote.onRemove = func() {
		require.NoError(t, sess.Audio.Put(entityID, models.Artifact{Data: []byte("X")}))
		_, err := sess.Audio.UploadCustom(entityID, "song.mp3", []byte("song"))
		require.NoError(t, err)
		require.NoError(t, sess.Audio.Apply(ctx, entityID))
	}

	_, err = tl.RemoveGaps(ctx, "sess", segID)
	assert.ErrorIs(t, err, service.ErrAudioApplied)

	seg, err := sess.Segment(segID)
	require.NoError(t, err)
	assert.False(t, seg.GapsAnalyzed)
	assert.Empty(t, seg.Gaps)

	st, err := sess.Audio.State(entityID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomApplied, st.Custom)
}
