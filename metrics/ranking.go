package metrics

import (
	"sort"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// AUC computes the area under the ROC curve from binary 0/1 truth values
// and predicted scores, using the rank-sum (Mann-Whitney) formulation with
// midranks for tied scores. When only one class is present the curve is
// undefined and 0.5 is returned, matching the convention of reporting a
// chance-level score for a degenerate fold.
func AUC(yTrue []float64, scores []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty input")
	}
	if len(scores) != n {
		return 0, errors.NewDimensionError("AUC", n, len(scores), 0)
	}

	nPos := 0
	for _, y := range yTrue {
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
		if y == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present"))
		return 0.5, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	// Midranks over tied score groups.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		mid := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = mid
		}
		i = j + 1
	}

	rankSum := 0.0
	for i, y := range yTrue {
		if y == 1 {
			rankSum += ranks[i]
		}
	}
	u := rankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}
