package decomposition

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// ScoreFilter flags outlying samples by their score on one principal
// component. Samples with a score below Threshold on the chosen component
// are dropped; the caller refits PCA on the survivors.
type ScoreFilter struct {
	// Component is the zero-based component index, normally 0 (PC1).
	Component int

	// Threshold is the minimum score kept. The reference analysis removes
	// samples with a PC1 score below -10.
	Threshold float64
}

// NewScoreFilter creates a filter on the first component with the given
// threshold.
func NewScoreFilter(threshold float64) *ScoreFilter {
	return &ScoreFilter{Component: 0, Threshold: threshold}
}

// Keep returns a mask over the rows of scores: true for samples at or above
// the threshold on the configured component.
func (f *ScoreFilter) Keep(scores mat.Matrix) ([]bool, error) {
	r, c := scores.Dims()
	if f.Component < 0 || f.Component >= c {
		return nil, errors.NewValueError("ScoreFilter.Keep", "component index out of range")
	}
	keep := make([]bool, r)
	for i := 0; i < r; i++ {
		keep[i] = scores.At(i, f.Component) >= f.Threshold
	}
	return keep, nil
}
