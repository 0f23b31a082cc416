package timeline_test

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GintGld/clip-editor/internal/lib/timeline"
	"github.com/GintGld/clip-editor/internal/models"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("seg-%d", n)
	}
}

func cutsAt(times ...float64) []models.Cut {
	cuts := make([]models.Cut, 0, len(times))
	for i, t := range times {
		cuts = append(cuts, models.Cut{ID: fmt.Sprintf("cut-%d", i), Time: t})
	}
	return cuts
}

func TestRecomputeScenario(t *testing.T) {
	s := timeline.New(timeline.DefaultTolerances()).WithIDGenerator(seqIDs())

	segs := s.Recompute(cutsAt(7.5, 3.0), 10.0, nil)

	require.Len(t, segs, 3)
	expect := [][2]float64{{0, 3.0}, {3.0, 7.5}, {7.5, 10.0}}
	for i, seg := range segs {
		assert.Equal(t, expect[i][0], seg.Start)
		assert.Equal(t, expect[i][1], seg.End)
		assert.True(t, seg.Selected)
		assert.False(t, seg.GapsAnalyzed)
		assert.Empty(t, seg.Gaps)
	}
}

func TestRecomputeEdgeCases(t *testing.T) {
	testCases := []struct {
		desc     string
		cuts     []models.Cut
		duration float64
		expect   [][2]float64
	}{
		{
			desc:     "no cuts",
			duration: 10,
			expect:   [][2]float64{{0, 10}},
		},
		{
			desc:     "no cuts, too short",
			duration: 0.05,
			expect:   [][2]float64{},
		},
		{
			desc:     "zero duration",
			duration: 0,
			expect:   [][2]float64{},
		},
		{
			desc:     "duplicate cut",
			cuts:     cutsAt(4, 4),
			duration: 10,
			expect:   [][2]float64{{0, 4}, {4, 10}},
		},
		{
			desc:     "sliver dropped",
			cuts:     cutsAt(4, 4.05),
			duration: 10,
			expect:   [][2]float64{{0, 4}, {4.05, 10}},
		},
		{
			desc:     "cut at boundaries",
			cuts:     cutsAt(0, 10),
			duration: 10,
			expect:   [][2]float64{{0, 10}},
		},
		{
			desc:     "out of range cuts",
			cuts:     cutsAt(-3, 5, 42),
			duration: 10,
			expect:   [][2]float64{{0, 5}, {5, 10}},
		},
		{
			desc:     "non-finite cuts ignored",
			cuts:     cutsAt(math.NaN(), 5, math.Inf(1), math.Inf(-1)),
			duration: 10,
			expect:   [][2]float64{{0, 5}, {5, 10}},
		},
		{
			desc:     "only NaN cut",
			cuts:     cutsAt(math.NaN()),
			duration: 10,
			expect:   [][2]float64{{0, 10}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := timeline.New(timeline.DefaultTolerances())
			segs := s.Recompute(tc.cuts, tc.duration, nil)

			got := make([][2]float64, 0, len(segs))
			for _, seg := range segs {
				got = append(got, [2]float64{seg.Start, seg.End})
			}
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestRecomputeKeepsIdentity(t *testing.T) {
	s := timeline.New(timeline.DefaultTolerances()).WithIDGenerator(seqIDs())

	prev := []models.Segment{
		{ID: "A", Start: 0, End: 3.0, Selected: true, Gaps: []models.Gap{}},
		{ID: "B", Start: 3.0, End: 7.5, Selected: false, Gaps: []models.Gap{}},
		{ID: "C", Start: 7.5, End: 10.0, Selected: true, Gaps: []models.Gap{}},
	}

	segs := s.Recompute(cutsAt(3.0, 7.5, 3.0), 10.0, prev)

	require.Equal(t, prev, segs)
}

func TestRecomputeToleranceMatch(t *testing.T) {
	s := timeline.New(timeline.DefaultTolerances()).WithIDGenerator(seqIDs())

	prev := []models.Segment{
		{
			ID: "A", Start: 0, End: 5.005,
			GapsAnalyzed: true,
			Gaps:         []models.Gap{{Start: 1, End: 2, Duration: 1}},
		},
		{ID: "B", Start: 5.005, End: 10, Selected: true, Gaps: []models.Gap{}},
	}

	segs := s.Recompute(cutsAt(5.0), 10, prev)
	require.Len(t, segs, 2)
	assert.Equal(t, "A", segs[0].ID)
	assert.True(t, segs[0].GapsAnalyzed)
	assert.Equal(t, prev[0].Gaps, segs[0].Gaps)
	assert.Equal(t, 5.0, segs[0].End)

	// moved further than epsilon: new identity
	segs = s.Recompute(cutsAt(5.1), 10, prev)
	require.Len(t, segs, 2)
	assert.NotEqual(t, "A", segs[0].ID)
	assert.NotEqual(t, "B", segs[1].ID)
	assert.True(t, segs[0].Selected)
	assert.False(t, segs[0].GapsAnalyzed)
}

func TestRecomputeDiffStability(t *testing.T) {
	s := timeline.New(timeline.DefaultTolerances()).WithIDGenerator(seqIDs())

	cuts := cutsAt(3.0, 7.5)
	segs := s.Recompute(cuts, 10, nil)
	segs[1].Selected = false
	toggled := segs[1].ID

	cuts = append(cuts, models.Cut{ID: "extra", Time: 9.0})
	segs = s.Recompute(cuts, 10, segs)

	require.Len(t, segs, 4)
	assert.Equal(t, toggled, segs[1].ID)
	assert.False(t, segs[1].Selected)
}

func TestRecomputeRemoveAllCuts(t *testing.T) {
	s := timeline.New(timeline.DefaultTolerances()).WithIDGenerator(seqIDs())

	full := s.Recompute(nil, 10, nil)
	full[0].Selected = false

	split := s.Recompute(cutsAt(4), 10, full)
	require.Len(t, split, 2)

	// the full span segment is gone from split,
	// so it cannot be matched again
	back := s.Recompute(nil, 10, split)
	require.Len(t, back, 1)
	assert.NotEqual(t, full[0].ID, back[0].ID)
	assert.True(t, back[0].Selected)

	// while it is still among previous segments it is matched
	back = s.Recompute(nil, 10, full)
	assert.Equal(t, full, back)
}

func TestRecomputeProperties(t *testing.T) {
	faker := gofakeit.New(42)
	tol := timeline.DefaultTolerances()
	s := timeline.New(tol)

	for i := 0; i < 200; i++ {
		duration := faker.Float64Range(0, 120)
		cuts := make([]models.Cut, faker.IntRange(0, 20))
		for j := range cuts {
			cuts[j] = models.Cut{ID: faker.UUID(), Time: faker.Float64Range(-5, duration+5)}
		}

		segs := s.Recompute(cuts, duration, nil)

		var covered float64
		for j, seg := range segs {
			require.GreaterOrEqual(t, seg.Start, 0.0)
			require.LessOrEqual(t, seg.End, duration)
			require.GreaterOrEqual(t, seg.End-seg.Start, tol.MinSegment)
			if j > 0 {
				require.GreaterOrEqual(t, seg.Start, segs[j-1].End)
			}
			covered += seg.Duration()
		}

		// everything not covered is made of dropped slivers
		boundaries := []float64{0, duration}
		for _, c := range cuts {
			boundaries = append(boundaries, math.Max(0, math.Min(duration, c.Time)))
		}
		sort.Float64s(boundaries)
		var slivers float64
		for j := 0; j+1 < len(boundaries); j++ {
			if d := boundaries[j+1] - boundaries[j]; d < tol.MinSegment {
				slivers += d
			}
		}
		require.InDelta(t, duration, covered+slivers, 1e-9)

		again := s.Recompute(cuts, duration, segs)
		require.Equal(t, segs, again)
	}
}
