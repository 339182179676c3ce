package tracking

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"localtrack/internal/models"
)

// Summary describes a finished tracking run. It is written next to the
// tractogram so runs can be compared later.
type Summary struct {
	RunID        string         `yaml:"runId"`
	Finished     time.Time      `yaml:"finished"`
	Seeds        int            `yaml:"seeds"`
	Kept         int            `yaml:"kept"`
	Valid        int            `yaml:"valid"`
	Capped       int            `yaml:"capped"`
	Failed       int            `yaml:"failed"`
	Terminations map[string]int `yaml:"terminations"`
	MeanLength   float64        `yaml:"meanLength"`
	StdLength    float64        `yaml:"stdLength"`
	MaxLength    float64        `yaml:"maxLength"`
}

// Summarize combines run counters with length statistics of the kept
// streamlines.
func Summarize(st Stats, streamlines []models.Streamline) Summary {
	s := Summary{
		RunID:        uuid.NewString(),
		Finished:     time.Now().UTC(),
		Seeds:        st.Seeds,
		Kept:         st.Kept,
		Valid:        st.Valid,
		Capped:       st.Capped,
		Failed:       st.Failed,
		Terminations: make(map[string]int, len(st.Terminations)),
	}
	for state, n := range st.Terminations {
		s.Terminations[state.String()] = n
	}

	if len(streamlines) == 0 {
		return s
	}
	lengths := make([]float64, len(streamlines))
	for i, sl := range streamlines {
		lengths[i] = sl.Length()
		if lengths[i] > s.MaxLength {
			s.MaxLength = lengths[i]
		}
	}
	s.MeanLength = stat.Mean(lengths, nil)
	if len(lengths) > 1 {
		s.StdLength = stat.StdDev(lengths, nil)
	}
	return s
}

// SaveSummary writes s as YAML
func SaveSummary(s Summary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating summary directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing summary file: %w", err)
	}
	return nil
}
