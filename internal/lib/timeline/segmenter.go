// Package timeline derives ordered segments from a set of cut points.
package timeline

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/GintGld/clip-editor/internal/models"
)

const (
	DefaultMinSegment   = 0.1
	DefaultMatchEpsilon = 0.01
)

// Tolerances of the segmenter, in seconds.
type Tolerances struct {
	// Intervals shorter than MinSegment are dropped.
	MinSegment float64
	// Two segments are the same segment if both
	// their endpoints differ by no more than MatchEpsilon.
	MatchEpsilon float64
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		MinSegment:   DefaultMinSegment,
		MatchEpsilon: DefaultMatchEpsilon,
	}
}

type Segmenter struct {
	tol   Tolerances
	newID func() string
}

func New(tol Tolerances) *Segmenter {
	return &Segmenter{
		tol:   tol,
		newID: uuid.NewString,
	}
}

// WithIDGenerator replaces the id source of new segments.
func (s *Segmenter) WithIDGenerator(gen func() string) *Segmenter {
	s.newID = gen
	return s
}

// ValidDuration reports whether d can be segmented.
func ValidDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0
}

// Recompute builds segments for given cuts and duration.
//
// Segments matching a previous one within tolerance
// keep its id, selection and gap analysis.
// Non-finite cut times are ignored.
// Duration must satisfy ValidDuration.
func (s *Segmenter) Recompute(cuts []models.Cut, duration float64, prev []models.Segment) []models.Segment {
	boundaries := make([]float64, 0, len(cuts)+2)
	boundaries = append(boundaries, 0)
	for _, c := range cuts {
		if math.IsNaN(c.Time) || math.IsInf(c.Time, 0) {
			continue
		}
		boundaries = append(boundaries, clamp(c.Time, 0, duration))
	}
	sort.Float64s(boundaries[1:])
	boundaries = append(boundaries, duration)

	segments := make([]models.Segment, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		start, end := boundaries[i], boundaries[i+1]
		if end-start < s.tol.MinSegment {
			continue
		}

		if old, ok := s.match(prev, start, end); ok {
			segments = append(segments, models.Segment{
				ID:           old.ID,
				Start:        start,
				End:          end,
				Selected:     old.Selected,
				GapsAnalyzed: old.GapsAnalyzed,
				Gaps:         cloneGaps(old.Gaps),
			})
			continue
		}

		segments = append(segments, models.Segment{
			ID:       s.newID(),
			Start:    start,
			End:      end,
			Selected: true,
			Gaps:     []models.Gap{},
		})
	}

	return segments
}

func (s *Segmenter) match(prev []models.Segment, start, end float64) (models.Segment, bool) {
	for _, p := range prev {
		if math.Abs(p.Start-start) <= s.tol.MatchEpsilon && math.Abs(p.End-end) <= s.tol.MatchEpsilon {
			return p, true
		}
	}
	return models.Segment{}, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func cloneGaps(gaps []models.Gap) []models.Gap {
	res := make([]models.Gap, len(gaps))
	copy(res, gaps)
	return res
}
