// Package modelselection provides the sample partitioning and
// hyperparameter search machinery: seeded train/test splits, (repeated)
// k-fold cross-validation, and the elastic-net grid search.
package modelselection

import (
	"math/rand/v2"
	"sort"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// TrainTestSplit partitions the sample indices 0..n-1 into a train set of
// exactly ⌊fraction·n⌋ members and a test set of the rest. The draw is a
// seeded shuffle without replacement; no stratification by class is
// enforced, so callers should inspect per-class counts afterwards.
// Identical seed and n reproduce the identical split.
func TrainTestSplit(n int, fraction float64, seed int64) (train, test []int, err error) {
	if n <= 0 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "no samples to split")
	}
	if fraction < 0 || fraction > 1 {
		return nil, nil, errors.NewValidationError("fraction", "must be in [0,1]", fraction)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTrain := int(fraction * float64(n))
	train = append([]int(nil), indices[:nTrain]...)
	test = append([]int(nil), indices[nTrain:]...)
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
