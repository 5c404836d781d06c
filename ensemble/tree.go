// Package ensemble implements the random-forest classifier: bagged CART
// trees with per-split feature subsampling, majority voting, out-of-bag
// error diagnostics, and Gini-based variable importance.
package ensemble

import (
	"math/rand/v2"
	"sort"
)

// treeNode is one node of a fitted CART tree.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	leaf      bool
	class     int
}

// decisionTree is a single CART classification tree grown on Gini
// impurity. Trees are only built by the forest, which supplies the
// per-tree random source for feature subsampling.
type decisionTree struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	mtry            int // features considered per split
	nClasses        int
	root            *treeNode

	// importance accumulates each feature's total impurity decrease,
	// weighted by the fraction of samples reaching the split.
	importance []float64
}

func newDecisionTree(maxDepth, minSamplesSplit, mtry, nClasses, nFeatures int) *decisionTree {
	return &decisionTree{
		maxDepth:        maxDepth,
		minSamplesSplit: minSamplesSplit,
		mtry:            mtry,
		nClasses:        nClasses,
		importance:      make([]float64, nFeatures),
	}
}

// fit grows the tree on the rows of X indexed by idx.
func (t *decisionTree) fit(X [][]float64, y []int, idx []int, rng *rand.Rand) {
	t.root = t.grow(X, y, idx, 0, len(idx), rng)
}

func (t *decisionTree) grow(X [][]float64, y []int, idx []int, depth, nTotal int, rng *rand.Rand) *treeNode {
	counts := make([]int, t.nClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	majority := argmax(counts)

	if len(idx) < t.minSamplesSplit || isPure(counts) || (t.maxDepth > 0 && depth >= t.maxDepth) {
		return &treeNode{leaf: true, class: majority}
	}

	feature, threshold, decrease, ok := t.bestSplit(X, y, idx, counts, rng)
	if !ok {
		return &treeNode{leaf: true, class: majority}
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return &treeNode{leaf: true, class: majority}
	}

	t.importance[feature] += decrease * float64(len(idx)) / float64(nTotal)

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(X, y, leftIdx, depth+1, nTotal, rng),
		right:     t.grow(X, y, rightIdx, depth+1, nTotal, rng),
	}
}

// bestSplit scans a random subset of mtry features for the split with the
// largest Gini decrease.
func (t *decisionTree) bestSplit(X [][]float64, y []int, idx []int, counts []int, rng *rand.Rand) (feature int, threshold, decrease float64, ok bool) {
	nFeatures := len(t.importance)
	candidates := sampleFeatures(nFeatures, t.mtry, rng)

	parentGini := gini(counts, len(idx))
	bestDecrease := 0.0

	sorted := make([]int, len(idx))
	leftCounts := make([]int, t.nClasses)
	rightCounts := make([]int, t.nClasses)

	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return X[sorted[a]][f] < X[sorted[b]][f]
		})

		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = counts[c]
		}

		n := len(sorted)
		for k := 0; k < n-1; k++ {
			c := y[sorted[k]]
			leftCounts[c]++
			rightCounts[c]--

			// Only cut between distinct values.
			if X[sorted[k]][f] == X[sorted[k+1]][f] {
				continue
			}

			nl, nr := k+1, n-k-1
			childGini := (float64(nl)*gini(leftCounts, nl) + float64(nr)*gini(rightCounts, nr)) / float64(n)
			if d := parentGini - childGini; d > bestDecrease {
				bestDecrease = d
				feature = f
				threshold = (X[sorted[k]][f] + X[sorted[k+1]][f]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, bestDecrease, ok
}

// predict returns the predicted class for one sample.
func (t *decisionTree) predict(x []float64) int {
	node := t.root
	for !node.leaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.class
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func argmax(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// sampleFeatures draws mtry distinct feature indices via a partial
// Fisher-Yates shuffle.
func sampleFeatures(nFeatures, mtry int, rng *rand.Rand) []int {
	if mtry <= 0 || mtry >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := make([]int, nFeatures)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < mtry; i++ {
		j := i + rng.IntN(nFeatures-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:mtry]
}
