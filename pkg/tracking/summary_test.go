package tracking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"localtrack/internal/models"
	"localtrack/pkg/stopping"
)

func TestSummarize(t *testing.T) {
	st := Stats{
		Seeds:        3,
		Kept:         2,
		Valid:        2,
		Terminations: map[stopping.State]int{stopping.EndPoint: 4, stopping.TrackPoint: 2},
	}
	sls := []models.Streamline{
		{{X: 0}, {X: 2}},
		{{X: 0}, {X: 4}},
	}

	s := Summarize(st, sls)

	_, err := uuid.Parse(s.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Seeds)
	assert.Equal(t, 4, s.Terminations["ENDPOINT"])
	assert.Equal(t, 2, s.Terminations["TRACKPOINT"])
	assert.InDelta(t, 3.0, s.MeanLength, 1e-12)
	assert.InDelta(t, 1.4142135623730951, s.StdLength, 1e-12)
	assert.Equal(t, 4.0, s.MaxLength)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(Stats{}, nil)
	assert.Zero(t, s.MeanLength)
	assert.Empty(t, s.Terminations)
}

func TestSaveSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.yaml")
	s := Summarize(Stats{Seeds: 1, Kept: 1}, []models.Streamline{{{X: 0}, {X: 1}}})

	require.NoError(t, SaveSummary(s, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Summary
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, s.RunID, loaded.RunID)
	assert.Equal(t, 1, loaded.Kept)
	assert.InDelta(t, 1.0, loaded.MeanLength, 1e-12)
}
