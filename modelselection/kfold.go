package modelselection

import (
	"math/rand/v2"
)

// CVFold is one train/test index pair of a cross-validation round.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold assigns samples to k folds, optionally after a seeded shuffle.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a k-fold splitter with shuffling enabled.
func NewKFold(nSplits int, seed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: true, Seed: seed}
}

// Split generates the train/test indices of each fold over n samples.
// Fold sizes differ by at most one.
func (kf *KFold) Split(n int) []CVFold {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		r.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for f := 0; f < kf.NSplits; f++ {
		testSize := foldSize
		if f < remainder {
			testSize++
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[current:current+testSize])

		trainIndices := make([]int, 0, n-testSize)
		trainIndices = append(trainIndices, indices[:current]...)
		trainIndices = append(trainIndices, indices[current+testSize:]...)

		folds[f] = CVFold{TrainIndices: trainIndices, TestIndices: testIndices}
		current += testSize
	}
	return folds
}

// RepeatedKFold runs k-fold splitting r times with distinct seeded
// shuffles, as used by the hyperparameter sweep.
type RepeatedKFold struct {
	NSplits  int
	NRepeats int
	Seed     int64
}

// NewRepeatedKFold creates a repeated k-fold splitter.
func NewRepeatedKFold(nSplits, nRepeats int, seed int64) *RepeatedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	if nRepeats < 1 {
		nRepeats = 1
	}
	return &RepeatedKFold{NSplits: nSplits, NRepeats: nRepeats, Seed: seed}
}

// Split generates NSplits × NRepeats folds over n samples. Repeat r uses
// seed Seed+r so repeats differ but the whole sequence is reproducible.
func (rkf *RepeatedKFold) Split(n int) []CVFold {
	var folds []CVFold
	for r := 0; r < rkf.NRepeats; r++ {
		kf := &KFold{NSplits: rkf.NSplits, Shuffle: true, Seed: rkf.Seed + int64(r)}
		folds = append(folds, kf.Split(n)...)
	}
	return folds
}
