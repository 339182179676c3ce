package tracking

import (
	"errors"
	"io"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"localtrack/internal/models"
	"localtrack/pkg/affine"
	"localtrack/pkg/direction"
	"localtrack/pkg/stopping"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// planeGetter follows +/-x except in the y=2 plane, where it has no direction
func planeGetter(delay bool) direction.Getter {
	return getterFunc(func(p, prev r3.Vec) (r3.Vec, bool) {
		if p.Y > 1.5 {
			return r3.Vec{}, false
		}
		if delay && int(p.X)%3 == 0 {
			time.Sleep(20 * time.Microsecond)
		}
		if r3.Dot(prev, r3.Vec{X: 1}) < 0 {
			return r3.Vec{X: -1}, true
		}
		return r3.Vec{X: 1}, true
	})
}

func createSeeds(n int) []Seed {
	seeds := make([]Seed, n)
	for i := range seeds {
		seeds[i] = Seed{Position: r3.Vec{X: float64(1 + i%9), Y: float64(i % 3), Z: 1}}
	}
	return seeds
}

func newTestEngine(t *testing.T, workers int, returnAll bool, getter direction.Getter) *Engine {
	t.Helper()
	crit, err := stopping.NewThreshold(createLineVolume(1), 0.2)
	require.NoError(t, err)

	params := DefaultParams()
	params.Workers = workers
	params.ReturnAll = returnAll
	params.Logger = quietLogger()

	e, err := NewEngine(crit, getter, params)
	require.NoError(t, err)
	return e
}

func collect(seq func(func(Result) bool)) []Result {
	var out []Result
	seq(func(r Result) bool {
		out = append(out, r)
		return true
	})
	return out
}

func TestNewEngineConfigurationErrors(t *testing.T) {
	crit, err := stopping.NewThreshold(createLineVolume(1), 0.2)
	require.NoError(t, err)
	getter := direction.NewFixed(r3.Vec{X: 1})

	tests := []struct {
		name   string
		crit   stopping.Criterion
		getter direction.Getter
		modify func(*Params)
	}{
		{"nil criterion", nil, getter, func(*Params) {}},
		{"nil getter", crit, nil, func(*Params) {}},
		{"zero step", crit, getter, func(p *Params) { p.StepSize = 0 }},
		{"negative cap", crit, getter, func(p *Params) { p.MaxSteps = -1 }},
		{"world without affine", crit, getter, func(p *Params) { p.OutputSpace = WorldSpace }},
		{"unknown space", crit, getter, func(p *Params) { p.OutputSpace = "scanner" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.modify(&params)
			_, err := NewEngine(tt.crit, tt.getter, params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}

func TestEngineReturnAllPolicy(t *testing.T) {
	seeds := createSeeds(30)

	all := collect(newTestEngine(t, 1, true, planeGetter(false)).Track(slices.Values(seeds)))
	validOnly := collect(newTestEngine(t, 1, false, planeGetter(false)).Track(slices.Values(seeds)))

	require.Len(t, all, 30)
	require.Len(t, validOnly, 20)

	var expected []Result
	for _, r := range all {
		if r.Valid() {
			expected = append(expected, r)
		}
	}
	if diff := cmp.Diff(expected, validOnly); diff != "" {
		t.Errorf("valid-only output is not the valid subset of all results (-want +got):\n%s", diff)
	}
	for _, r := range validOnly {
		assert.True(t, r.Forward.Valid())
		assert.True(t, r.Backward.Valid())
	}
}

func TestEngineParallelPreservesSeedOrder(t *testing.T) {
	seeds := createSeeds(200)
	sequential := collect(newTestEngine(t, 1, true, planeGetter(true)).Track(slices.Values(seeds)))

	for _, workers := range []int{2, 4, 16} {
		e := newTestEngine(t, workers, true, planeGetter(true))
		parallel := collect(e.Track(slices.Values(seeds)))

		require.Len(t, parallel, len(seeds))
		for i, r := range parallel {
			require.Equal(t, i, r.SeedIndex, "workers=%d", workers)
		}
		if diff := cmp.Diff(sequential, parallel); diff != "" {
			t.Errorf("workers=%d: parallel output differs (-sequential +parallel):\n%s", workers, diff)
		}
	}
}

func TestEngineParallelValidOnlyOrder(t *testing.T) {
	seeds := createSeeds(90)
	e := newTestEngine(t, 8, false, planeGetter(true))

	results := collect(e.Track(slices.Values(seeds)))
	require.Len(t, results, 60)
	assert.True(t, slices.IsSortedFunc(results, func(a, b Result) int { return a.SeedIndex - b.SeedIndex }))

	st := e.Stats()
	assert.Equal(t, 90, st.Seeds)
	assert.Equal(t, 60, st.Kept)
	assert.Equal(t, 60, st.Valid)
	assert.Equal(t, 120, st.Terminations[stopping.OutsideImage])
	assert.Equal(t, 60, st.Terminations[stopping.TrackPoint])
}

func TestEngineEarlyBreak(t *testing.T) {
	for _, workers := range []int{1, 4} {
		e := newTestEngine(t, workers, true, planeGetter(true))

		var got []int
		for r := range e.Track(slices.Values(createSeeds(500))) {
			got = append(got, r.SeedIndex)
			if len(got) == 5 {
				break
			}
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got, "workers=%d", workers)
	}
}

func TestEngineIsolatesPanickingSeed(t *testing.T) {
	g := getterFunc(func(p, prev r3.Vec) (r3.Vec, bool) {
		if p.X == 3 && p.Y == 0 {
			panic("corrupt peak")
		}
		return planeGetter(false).NextDirection(p, prev)
	})

	for _, workers := range []int{1, 3} {
		e := newTestEngine(t, workers, true, g)
		results := collect(e.Track(slices.Values(createSeeds(12))))

		require.Len(t, results, 12)
		// Every seed on the y=0 row passes through x=3 and fails
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				assert.False(t, r.Valid())
				assert.Len(t, r.Streamline, 1)
				assert.Zero(t, r.SeedState)
				assert.Zero(t, r.Forward)
				assert.Zero(t, r.Backward)
			}
		}
		assert.Equal(t, 4, failed)
		assert.Equal(t, failed, e.Stats().Failed)
	}
}

func TestEngineOverlappingRunsKeepSeparateStats(t *testing.T) {
	e := newTestEngine(t, 1, true, planeGetter(false))

	// Hold the first run open after one result
	next, stop := iter.Pull(e.Track(slices.Values(createSeeds(9))))
	defer stop()
	_, ok := next()
	require.True(t, ok)

	second := collect(e.Track(slices.Values(createSeeds(20))))
	require.Len(t, second, 20)

	// Finish the first run; its results must not leak into the second's counters
	for {
		if _, ok := next(); !ok {
			break
		}
	}

	st := e.Stats()
	assert.Equal(t, 20, st.Seeds)
	assert.Equal(t, 20, st.Kept)
	total := 0
	for _, n := range st.Terminations {
		total += n
	}
	assert.Equal(t, 40, total)
}

func TestEngineStatsBeforeRun(t *testing.T) {
	e := newTestEngine(t, 1, true, planeGetter(false))
	st := e.Stats()
	assert.Equal(t, 0, st.Seeds)
	assert.NotNil(t, st.Terminations)
}

func TestEngineWorldSpace(t *testing.T) {
	crit, err := stopping.NewThreshold(createLineVolume(1), 0.2)
	require.NoError(t, err)

	params := DefaultParams()
	params.Workers = 1
	params.Logger = quietLogger()
	params.OutputSpace = WorldSpace
	params.Affine = affine.FromVoxelSize(models.VoxelSize{X: 2, Y: 2, Z: 2})

	e, err := NewEngine(crit, direction.NewFixed(r3.Vec{X: 1}), params)
	require.NoError(t, err)

	sls := e.Streamlines(slices.Values([]Seed{{Position: r3.Vec{X: 5, Y: 1, Z: 1}}}))
	require.Len(t, sls, 1)
	assert.Equal(t, r3.Vec{X: -1, Y: 2, Z: 2}, sls[0][0])
	assert.Equal(t, r3.Vec{X: 21, Y: 2, Z: 2}, sls[0][len(sls[0])-1])
}

func TestEngineRestartable(t *testing.T) {
	e := newTestEngine(t, 4, false, planeGetter(false))
	seq := e.Track(slices.Values(createSeeds(15)))

	first := collect(seq)
	second := collect(seq)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-invocation differs:\n%s", diff)
	}
}

func BenchmarkEngineTrack(b *testing.B) {
	crit, _ := stopping.NewThreshold(createLineVolume(1), 0.2)
	params := DefaultParams()
	params.Logger = quietLogger()
	e, _ := NewEngine(crit, direction.NewFixed(r3.Vec{X: 1}), params)
	seeds := createSeeds(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range e.Track(slices.Values(seeds)) {
		}
	}
}
