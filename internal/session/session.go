// Package session holds state of editing sessions.
//
// A session is created when a source is uploaded and discarded
// when the user leaves the editor. It owns cut list, derived
// segments, transient gap analysis and audio of its entities.
package session

import (
	"errors"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCutNotFound     = errors.New("cut not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrInvalidTime     = errors.New("invalid cut time")
	ErrInvalidDuration = errors.New("invalid source duration")
	ErrNoAnalysis      = errors.New("segment is not analyzed")
)

type Session struct {
	ID        string
	Source    models.Source
	CreatedAt time.Time

	// Audio is the derived audio of session entities.
	Audio *audio.Cache[string]

	segmenter *timeline.Segmenter

	mu       sync.Mutex
	cuts     []models.Cut
	segments []models.Segment
	selected string
	analysis *models.Analysis
}

func New(id string, src models.Source, seg *timeline.Segmenter, cache *audio.Cache[string]) (*Session, error) {
	if !timeline.ValidDuration(src.Duration) {
		return nil, ErrInvalidDuration
	}

	s := &Session{
		ID:        id,
		Source:    src,
		CreatedAt: time.Now(),
		Audio:     cache,
		segmenter: seg,
		cuts:      make([]models.Cut, 0),
	}
	s.recompute()

	return s, nil
}

// Cuts returns cuts in creation order.
func (s *Session) Cuts() []models.Cut {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.cuts)
}

// AddCut adds cut at given time and recomputes segments.
func (s *Session) AddCut(t float64) (models.Cut, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return models.Cut{}, ErrInvalidTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cut := models.Cut{ID: uuid.NewString(), Time: t}
	s.cuts = append(s.cuts, cut)
	s.recompute()

	return cut, nil
}

func (s *Session) RemoveCut(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.cuts, func(c models.Cut) bool { return c.ID == id })
	if i < 0 {
		return ErrCutNotFound
	}

	s.cuts = slices.Delete(s.cuts, i, i+1)
	s.recompute()

	return nil
}

// ClearCuts removes all cuts.
func (s *Session) ClearCuts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cuts = s.cuts[:0]
	s.recompute()
}

// Segments returns copy of current segments.
func (s *Session) Segments() []models.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]models.Segment, len(s.segments))
	for i, seg := range s.segments {
		res[i] = cloneSegment(seg)
	}
	return res
}

// SelectedSegments returns segments included in export.
func (s *Session) SelectedSegments() []models.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]models.Segment, 0, len(s.segments))
	for _, seg := range s.segments {
		if seg.Selected {
			res = append(res, cloneSegment(seg))
		}
	}
	return res
}

func (s *Session) Segment(id string) (models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.segmentIndex(id)
	if i < 0 {
		return models.Segment{}, ErrSegmentNotFound
	}
	return cloneSegment(s.segments[i]), nil
}

// ToggleSegment flips inclusion of the segment.
func (s *Session) ToggleSegment(id string) (models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.segmentIndex(id)
	if i < 0 {
		return models.Segment{}, ErrSegmentNotFound
	}

	s.segments[i].Selected = !s.segments[i].Selected
	return cloneSegment(s.segments[i]), nil
}

// Select makes the segment current. Analysis of
// any other segment is dropped.
func (s *Session) Select(id string) (models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.segmentIndex(id)
	if i < 0 {
		return models.Segment{}, ErrSegmentNotFound
	}

	s.selectLocked(id)
	return cloneSegment(s.segments[i]), nil
}

// Current returns currently selected segment id, empty if none.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selected
}

// SetAnalysis stores analysis of the segment
// and makes the segment current.
func (s *Session) SetAnalysis(a models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.segmentIndex(a.SegmentID) < 0 {
		return ErrSegmentNotFound
	}

	s.selectLocked(a.SegmentID)
	s.analysis = &a

	return nil
}

// Analysis returns analysis of the current segment.
func (s *Session) Analysis() (models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis == nil {
		return models.Analysis{}, ErrNoAnalysis
	}
	return *s.analysis, nil
}

// AnalysisOf returns analysis if it belongs to the segment.
func (s *Session) AnalysisOf(segmentID string) (models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.segmentIndex(segmentID) < 0 {
		return models.Analysis{}, ErrSegmentNotFound
	}
	if s.analysis == nil || s.analysis.SegmentID != segmentID {
		return models.Analysis{}, ErrNoAnalysis
	}
	return *s.analysis, nil
}

// MarkGapsRemoved records gaps removed from the segment.
//
// commit, if not nil, runs under the session lock before
// anything is recorded. Its error leaves the segment unchanged.
func (s *Session) MarkGapsRemoved(segmentID string, gaps []models.Gap, commit func() error) (models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.segmentIndex(segmentID)
	if i < 0 {
		return models.Segment{}, ErrSegmentNotFound
	}

	if commit != nil {
		if err := commit(); err != nil {
			return models.Segment{}, err
		}
	}

	s.segments[i].GapsAnalyzed = true
	s.segments[i].Gaps = slices.Clone(gaps)
	if s.segments[i].Gaps == nil {
		s.segments[i].Gaps = []models.Gap{}
	}

	return cloneSegment(s.segments[i]), nil
}

// Counts returns number of cuts and segments.
func (s *Session) Counts() (cuts, segments int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cuts), len(s.segments)
}

func (s *Session) recompute() {
	s.segments = s.segmenter.Recompute(s.cuts, s.Source.Duration, s.segments)

	if s.selected != "" && s.segmentIndex(s.selected) < 0 {
		s.selected = ""
	}
	if s.analysis != nil && s.analysis.SegmentID != s.selected {
		s.analysis = nil
	}
}

func (s *Session) selectLocked(id string) {
	s.selected = id
	if s.analysis != nil && s.analysis.SegmentID != id {
		s.analysis = nil
	}
}

func (s *Session) segmentIndex(id string) int {
	for i := range s.segments {
		if s.segments[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneSegment(seg models.Segment) models.Segment {
	seg.Gaps = slices.Clone(seg.Gaps)
	if seg.Gaps == nil {
		seg.Gaps = []models.Gap{}
	}
	return seg
}

// Registry owns all open sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards the session with all its state.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)

	return nil
}

// IDs returns ids of open sessions, oldest first.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
