package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GintGld/clip-editor/internal/client/media"
	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/edl"
	"github.com/GintGld/clip-editor/internal/lib/logger/sl"
	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/service"
	"github.com/GintGld/clip-editor/internal/session"
)

// Entity ids registered by the timeline.
const (
	ExportEntity        = "export"
	segmentEntityPrefix = "segment-"
)

func SegmentEntity(segmentID string) string {
	return segmentEntityPrefix + segmentID
}

type Timeline struct {
	log      *slog.Logger
	sessions SessionProvider
	remote   Remote
	padding  float64
	minGap   float64
}

type SessionProvider interface {
	Get(id string) (*session.Session, error)
}

type Remote interface {
	AnalyzeGaps(ctx context.Context, sourceID string, start, end, minGap float64) (media.GapAnalysis, error)
	RemoveGaps(ctx context.Context, sourceID string, start, end float64, gaps []models.Gap, padding float64) (models.Artifact, error)
	Export(ctx context.Context, sourceID string, segments []models.Segment) (models.Artifact, error)
	BurnCaptions(ctx context.Context, video []byte) (models.Artifact, error)
}

func New(
	log *slog.Logger,
	sessions SessionProvider,
	remote Remote,
	padding float64,
	minGap float64,
) *Timeline {
	return &Timeline{
		log:      log,
		sessions: sessions,
		remote:   remote,
		padding:  padding,
		minGap:   minGap,
	}
}

// DefaultMinGap returns gap threshold used
// when the request does not set one.
func (t *Timeline) DefaultMinGap() float64 {
	return t.minGap
}

func (t *Timeline) Cuts(ctx context.Context, sid string) ([]models.Cut, error) {
	const op = "Timeline.Cuts"

	sess, err := t.session(op, sid)
	if err != nil {
		return nil, err
	}

	return sess.Cuts(), nil
}

// AddCut adds cut and returns recomputed segments.
func (t *Timeline) AddCut(ctx context.Context, sid string, at float64) (models.Cut, []models.Segment, error) {
	const op = "Timeline.AddCut"

	log := t.log.With(
		slog.String("op", op),
		slog.String("session", sid),
	)

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Cut{}, nil, err
	}

	cut, err := sess.AddCut(at)
	if err != nil {
		log.Warn("invalid cut", slog.Float64("time", at))
		return models.Cut{}, nil, fmt.Errorf("%s: %w", op, service.ErrInvalidTime)
	}

	segments := sess.Segments()
	log.Debug("cut added", slog.String("cut", cut.ID), slog.Int("segments", len(segments)))

	return cut, segments, nil
}

func (t *Timeline) RemoveCut(ctx context.Context, sid, cutID string) ([]models.Segment, error) {
	const op = "Timeline.RemoveCut"

	sess, err := t.session(op, sid)
	if err != nil {
		return nil, err
	}

	if err := sess.RemoveCut(cutID); err != nil {
		t.log.Warn("cut not found", slog.String("op", op), slog.String("cut", cutID))
		return nil, fmt.Errorf("%s: %w", op, service.ErrCutNotFound)
	}

	return sess.Segments(), nil
}

func (t *Timeline) ClearCuts(ctx context.Context, sid string) ([]models.Segment, error) {
	const op = "Timeline.ClearCuts"

	sess, err := t.session(op, sid)
	if err != nil {
		return nil, err
	}

	sess.ClearCuts()

	return sess.Segments(), nil
}

func (t *Timeline) Segments(ctx context.Context, sid string) ([]models.Segment, error) {
	const op = "Timeline.Segments"

	sess, err := t.session(op, sid)
	if err != nil {
		return nil, err
	}

	return sess.Segments(), nil
}

func (t *Timeline) Toggle(ctx context.Context, sid, segID string) (models.Segment, error) {
	const op = "Timeline.Toggle"

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Segment{}, err
	}

	seg, err := sess.ToggleSegment(segID)
	if err != nil {
		return models.Segment{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	return seg, nil
}

// Select makes the segment current.
func (t *Timeline) Select(ctx context.Context, sid, segID string) (models.Segment, error) {
	const op = "Timeline.Select"

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Segment{}, err
	}

	seg, err := sess.Select(segID)
	if err != nil {
		return models.Segment{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	return seg, nil
}

// Analyze runs gap analysis of the segment and keeps
// the result until the segment stops being current.
func (t *Timeline) Analyze(ctx context.Context, sid, segID string, minGap float64) (models.Analysis, error) {
	const op = "Timeline.Analyze"

	log := t.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("segment", segID),
	)

	if minGap <= 0 {
		return models.Analysis{}, fmt.Errorf("%s: %w", op, service.ErrInvalidGap)
	}

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Analysis{}, err
	}

	seg, err := sess.Select(segID)
	if err != nil {
		log.Warn("segment not found")
		return models.Analysis{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	log.Info("analyzing gaps", slog.Float64("start", seg.Start), slog.Float64("end", seg.End))

	res, err := t.remote.AnalyzeGaps(ctx, sess.Source.ID, seg.Start, seg.End, minGap)
	if err != nil {
		log.Error("failed to analyze gaps", sl.Err(err))
		return models.Analysis{}, fmt.Errorf("%s: %w", op, err)
	}

	analysis := models.Analysis{
		SegmentID:      seg.ID,
		MinGapDuration: minGap,
		Words:          res.Words,
		Gaps:           res.Gaps,
		TotalGapTime:   res.TotalGapTime,
	}

	// segment may be gone while the call was in flight
	if err := sess.SetAnalysis(analysis); err != nil {
		log.Warn("segment removed during analysis")
		return models.Analysis{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	log.Info(
		"gaps analyzed",
		slog.Int("words", len(analysis.Words)),
		slog.Int("gaps", len(analysis.Gaps)),
	)

	return analysis, nil
}

// Analysis returns analysis of the current segment.
func (t *Timeline) Analysis(ctx context.Context, sid string) (models.Analysis, error) {
	const op = "Timeline.Analysis"

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Analysis{}, err
	}

	a, err := sess.Analysis()
	if err != nil {
		return models.Analysis{}, fmt.Errorf("%s: %w", op, service.ErrNotAnalyzed)
	}

	return a, nil
}

// SearchWords fuzzy searches words of the current analysis.
func (t *Timeline) SearchWords(ctx context.Context, sid, query string) ([]models.Word, error) {
	const op = "Timeline.SearchWords"

	a, err := t.Analysis(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return searchWords(a.Words, query), nil
}

// RemoveGaps cuts analyzed gaps out of the segment.
//
// The processed region is registered as an audio entity.
func (t *Timeline) RemoveGaps(ctx context.Context, sid, segID string) (models.GapRemoval, error) {
	const op = "Timeline.RemoveGaps"

	log := t.log.With(
		slog.String("op", op),
		slog.String("session", sid),
		slog.String("segment", segID),
	)

	sess, err := t.session(op, sid)
	if err != nil {
		return models.GapRemoval{}, err
	}

	a, err := sess.AnalysisOf(segID)
	switch {
	case errors.Is(err, session.ErrSegmentNotFound):
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	case err != nil:
		log.Warn("segment is not analyzed")
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, service.ErrNotAnalyzed)
	}
	if len(a.Gaps) == 0 {
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, service.ErrNoGaps)
	}

	seg, err := sess.Segment(segID)
	if err != nil {
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	}

	// result must be accepted by the entity, check before the remote call
	entityID := SegmentEntity(segID)
	if err := sess.Audio.CheckReplace(entityID); err != nil {
		log.Warn("segment entity can not be replaced", sl.Err(err))
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, entityErr(err))
	}

	log.Info("removing gaps", slog.Int("gaps", len(a.Gaps)), slog.Float64("padding", t.padding))

	art, err := t.remote.RemoveGaps(ctx, sess.Source.ID, seg.Start, seg.End, a.Gaps, t.padding)
	if err != nil {
		log.Error("failed to remove gaps", sl.Err(err))
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, err)
	}

	seg, err = sess.MarkGapsRemoved(segID, a.Gaps, func() error {
		return sess.Audio.Replace(entityID, art)
	})
	switch {
	case errors.Is(err, session.ErrSegmentNotFound):
		log.Warn("segment removed during gap removal")
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, service.ErrSegmentNotFound)
	case err != nil:
		log.Warn("failed to register entity", sl.Err(err))
		return models.GapRemoval{}, fmt.Errorf("%s: %w", op, entityErr(err))
	}

	log.Info("gaps removed", slog.String("entity", entityID), slog.Int64("size", art.FileSize))

	return models.GapRemoval{
		Segment:  seg,
		EntityID: entityID,
		FileSize: art.FileSize,
	}, nil
}

// Export concatenates selected segments.
//
// Caption burn-in is optional: its failure is reported
// in warnings and the uncaptioned video is kept.
func (t *Timeline) Export(ctx context.Context, sid string, captions bool) (models.Export, error) {
	const op = "Timeline.Export"

	log := t.log.With(
		slog.String("op", op),
		slog.String("session", sid),
	)

	sess, err := t.session(op, sid)
	if err != nil {
		return models.Export{}, err
	}

	segments := sess.SelectedSegments()
	if len(segments) == 0 {
		return models.Export{}, fmt.Errorf("%s: %w", op, service.ErrNothingSelected)
	}

	if err := sess.Audio.CheckReplace(ExportEntity); err != nil {
		log.Warn("export entity can not be replaced", sl.Err(err))
		return models.Export{}, fmt.Errorf("%s: %w", op, entityErr(err))
	}

	log.Info("exporting", slog.Int("segments", len(segments)), slog.Bool("captions", captions))

	art, err := t.remote.Export(ctx, sess.Source.ID, segments)
	if err != nil {
		log.Error("failed to export", sl.Err(err))
		return models.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	res := models.Export{
		EntityID: ExportEntity,
		Segments: len(segments),
		Warnings: []string{},
	}
	for _, s := range segments {
		res.Duration += s.Duration()
	}

	if captions {
		captioned, err := t.remote.BurnCaptions(ctx, art.Data)
		if err != nil {
			log.Warn("caption burn-in failed, keeping export without captions", sl.Err(err))
			res.Warnings = append(res.Warnings, "captions: "+reason(err))
		} else {
			art = captioned
			res.Captions = true
		}
	}

	if err := sess.Audio.Replace(ExportEntity, art); err != nil {
		log.Warn("failed to register export", sl.Err(err))
		return models.Export{}, fmt.Errorf("%s: %w", op, entityErr(err))
	}
	res.FileSize = art.FileSize

	log.Info("exported", slog.Int64("size", res.FileSize))

	return res, nil
}

// EDL renders edit decision list of selected segments.
func (t *Timeline) EDL(ctx context.Context, sid string, fps float64) (string, error) {
	const op = "Timeline.EDL"

	sess, err := t.session(op, sid)
	if err != nil {
		return "", err
	}

	segments := sess.SelectedSegments()
	if len(segments) == 0 {
		return "", fmt.Errorf("%s: %w", op, service.ErrNothingSelected)
	}

	if fps <= 0 {
		fps = sess.Source.FPS
	}

	title := strings.TrimSuffix(sess.Source.Name, ".mp4")
	if title == "" {
		title = sess.ID
	}

	return edl.Generate(title, sess.Source, segments, fps), nil
}

func (t *Timeline) session(op, sid string) (*session.Session, error) {
	sess, err := t.sessions.Get(sid)
	if err != nil {
		t.log.Warn("session not found", slog.String("op", op), slog.String("session", sid))
		return nil, fmt.Errorf("%s: %w", op, service.ErrSessionNotFound)
	}
	return sess, nil
}

func entityErr(err error) error {
	switch {
	case errors.Is(err, audio.ErrBusy):
		return service.ErrBusy
	case errors.Is(err, audio.ErrApplied):
		return service.ErrAudioApplied
	}
	return err
}

// reason returns message suitable for the user.
func reason(err error) string {
	if msg, ok := media.IsBusiness(err); ok {
		return msg
	}
	if key, ok := media.IsMissingConfig(err); ok {
		return "missing config " + key
	}
	return "media service unavailable"
}
