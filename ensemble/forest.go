package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/core/model"
	"github.com/cytoprofile/cytoprofile/core/parallel"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// OOBPoint is the cumulative out-of-bag error after a given number of
// trees: the overall rate plus one rate per class. Rates are NaN while a
// class has no out-of-bag votes yet.
type OOBPoint struct {
	Trees    int
	Overall  float64
	PerClass []float64
}

// FeatureImportance is one feature's mean decrease in Gini impurity.
type FeatureImportance struct {
	Feature    int
	Importance float64
}

// RandomForest is a bagged ensemble of CART trees. Each tree is grown on a
// bootstrap sample with ⌊√p⌋ features considered per split, and prediction
// is a majority vote. Tree t draws from a PCG seeded with (Seed, t), so
// fitting is reproducible regardless of worker scheduling.
type RandomForest struct {
	model.BaseEstimator

	// NTrees is the ensemble size, 500 by default.
	NTrees int

	// MaxDepth limits tree depth; 0 grows trees to purity.
	MaxDepth int

	// MinSamplesSplit is the smallest node size considered for a split.
	MinSamplesSplit int

	// MTry is the number of features per split; 0 means ⌊√p⌋.
	MTry int

	// Seed drives bootstrap sampling and feature subsetting.
	Seed int64

	trees      []*decisionTree
	inBag      [][]bool
	oobTrend   []OOBPoint
	importance []float64
	nFeatures  int
	nClasses   int
}

// NewRandomForest creates a forest with the reference defaults.
func NewRandomForest(seed int64) *RandomForest {
	return &RandomForest{
		NTrees:          500,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
}

// Fit grows the ensemble on X and the encoded response y (n×1).
func (rf *RandomForest) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	yr, yc := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("RandomForest.Fit", "empty data", errors.ErrEmptyData)
	}
	if yr != n || yc != 1 {
		return errors.NewDimensionError("RandomForest.Fit", n, yr, 0)
	}
	if rf.NTrees < 1 {
		return errors.NewValidationError("n_trees", "must be at least 1", rf.NTrees)
	}

	rows := make([][]float64, n)
	labels := make([]int, n)
	nClasses := 0
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			rows[i][j] = X.At(i, j)
		}
		v := y.At(i, 0)
		c := int(v)
		if float64(c) != v || c < 0 {
			return errors.NewValueError("RandomForest.Fit", "response must be encoded as non-negative integers")
		}
		labels[i] = c
		if c+1 > nClasses {
			nClasses = c + 1
		}
	}
	if nClasses < 2 {
		return errors.NewDegenerateClassError("RandomForest.Fit", "1", "train")
	}

	mtry := rf.MTry
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(p)))
		if mtry < 1 {
			mtry = 1
		}
	}

	rf.nFeatures = p
	rf.nClasses = nClasses
	rf.trees = make([]*decisionTree, rf.NTrees)
	rf.inBag = make([][]bool, rf.NTrees)

	// Trees are independent given their seeds, so worker scheduling does
	// not affect the result.
	parallel.ParallelizeWithThreshold(rf.NTrees, 1, func(start, end int) {
		for t := start; t < end; t++ {
			rng := rand.New(rand.NewPCG(uint64(rf.Seed), uint64(t)))

			bootstrap := make([]int, n)
			inBag := make([]bool, n)
			for i := 0; i < n; i++ {
				idx := rng.IntN(n)
				bootstrap[i] = idx
				inBag[idx] = true
			}

			tree := newDecisionTree(rf.MaxDepth, rf.MinSamplesSplit, mtry, nClasses, p)
			tree.fit(rows, labels, bootstrap, rng)

			rf.trees[t] = tree
			rf.inBag[t] = inBag
		}
	})

	rf.importance = make([]float64, p)
	for _, tree := range rf.trees {
		for j := 0; j < p; j++ {
			rf.importance[j] += tree.importance[j]
		}
	}
	for j := 0; j < p; j++ {
		rf.importance[j] /= float64(rf.NTrees)
	}

	rf.computeOOBTrend(rows, labels)
	rf.SetFitted()
	return nil
}

// computeOOBTrend accumulates out-of-bag votes tree by tree and records
// the cumulative error rates after each tree.
func (rf *RandomForest) computeOOBTrend(rows [][]float64, labels []int) {
	n := len(rows)
	votes := make([][]int, n)
	for i := range votes {
		votes[i] = make([]int, rf.nClasses)
	}

	rf.oobTrend = make([]OOBPoint, rf.NTrees)
	for t, tree := range rf.trees {
		for i := 0; i < n; i++ {
			if rf.inBag[t][i] {
				continue
			}
			votes[i][tree.predict(rows[i])]++
		}

		var wrong, voted int
		wrongByClass := make([]int, rf.nClasses)
		votedByClass := make([]int, rf.nClasses)
		for i := 0; i < n; i++ {
			total := 0
			for _, v := range votes[i] {
				total += v
			}
			if total == 0 {
				continue
			}
			voted++
			votedByClass[labels[i]]++
			if argmaxInts(votes[i]) != labels[i] {
				wrong++
				wrongByClass[labels[i]]++
			}
		}

		point := OOBPoint{Trees: t + 1, Overall: math.NaN(), PerClass: make([]float64, rf.nClasses)}
		if voted > 0 {
			point.Overall = float64(wrong) / float64(voted)
		}
		for c := 0; c < rf.nClasses; c++ {
			if votedByClass[c] > 0 {
				point.PerClass[c] = float64(wrongByClass[c]) / float64(votedByClass[c])
			} else {
				point.PerClass[c] = math.NaN()
			}
		}
		rf.oobTrend[t] = point
	}
}

// argmaxInts breaks ties toward the lower class index, keeping votes
// deterministic.
func argmaxInts(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// Predict returns majority-vote labels (n×1).
func (rf *RandomForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForest", "Predict")
	}
	n, p := X.Dims()
	if p != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForest.Predict", rf.nFeatures, p, 1)
	}

	out := mat.NewDense(n, 1, nil)
	x := make([]float64, p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x[j] = X.At(i, j)
		}
		counts := make([]int, rf.nClasses)
		for _, tree := range rf.trees {
			counts[tree.predict(x)]++
		}
		out.Set(i, 0, float64(argmaxInts(counts)))
	}
	return out, nil
}

// PredictProba returns each sample's vote share for class 1 (n×1). Only
// meaningful for two-class forests.
func (rf *RandomForest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForest", "PredictProba")
	}
	n, p := X.Dims()
	if p != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForest.PredictProba", rf.nFeatures, p, 1)
	}

	out := mat.NewDense(n, 1, nil)
	x := make([]float64, p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x[j] = X.At(i, j)
		}
		votes := 0
		for _, tree := range rf.trees {
			if tree.predict(x) == 1 {
				votes++
			}
		}
		out.Set(i, 0, float64(votes)/float64(len(rf.trees)))
	}
	return out, nil
}

// Classes returns the encoded class values seen during fitting.
func (rf *RandomForest) Classes() []int {
	out := make([]int, rf.nClasses)
	for i := range out {
		out[i] = i
	}
	return out
}

// OOBTrend returns the cumulative out-of-bag error after each tree.
func (rf *RandomForest) OOBTrend() []OOBPoint {
	out := make([]OOBPoint, len(rf.oobTrend))
	copy(out, rf.oobTrend)
	return out
}

// Importance returns features ranked by mean decrease in Gini impurity,
// highest first.
func (rf *RandomForest) Importance() []FeatureImportance {
	out := make([]FeatureImportance, rf.nFeatures)
	for j := 0; j < rf.nFeatures; j++ {
		out[j] = FeatureImportance{Feature: j, Importance: rf.importance[j]}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return out
}
