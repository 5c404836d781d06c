// Package cluster implements the hierarchical clustering used to explore
// biomarker profile structure: bottom-up agglomerative clustering with
// selectable linkage and a top-down divisive variant.
package cluster

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// Linkage selects the between-cluster distance update rule.
type Linkage int

const (
	// Single links clusters by their closest pair.
	Single Linkage = iota
	// Complete links clusters by their farthest pair.
	Complete
	// Average links clusters by the mean pairwise distance.
	Average
	// Ward merges the pair minimizing the within-cluster variance
	// increase.
	Ward
)

// Merge is one agglomeration step. A and B are node indices: values below
// n refer to leaves (samples), values at or above n refer to the cluster
// formed by merge index-n.
type Merge struct {
	A      int
	B      int
	Height float64
}

// Dendrogram is the full merge history of an agglomerative clustering of n
// samples; it has exactly n-1 merges.
type Dendrogram struct {
	N      int
	Merges []Merge
}

// EuclideanDistances builds the pairwise distance matrix of the rows of X.
func EuclideanDistances(X mat.Matrix) [][]float64 {
	n, p := X.Dims()
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum := 0.0
			for k := 0; k < p; k++ {
				diff := X.At(i, k) - X.At(j, k)
				sum += diff * diff
			}
			dist := math.Sqrt(sum)
			d[i][j] = dist
			d[j][i] = dist
		}
	}
	return d
}

// Agglomerative clusters n samples bottom-up from their distance matrix
// using the Lance-Williams update for the chosen linkage.
func Agglomerative(dist [][]float64, linkage Linkage) (*Dendrogram, error) {
	n := len(dist)
	if n < 2 {
		return nil, errors.NewValueError("Agglomerative", "need at least two samples")
	}
	for i := range dist {
		if len(dist[i]) != n {
			return nil, errors.NewDimensionError("Agglomerative", n, len(dist[i]), 1)
		}
	}

	// Working distances; Ward operates on squared distances and reports
	// heights on the original scale.
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		copy(d[i], dist[i])
		if linkage == Ward {
			for j := range d[i] {
				d[i][j] *= d[i][j]
			}
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	node := make([]int, n) // current dendrogram node id per slot
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		node[i] = i
	}

	dg := &Dendrogram{N: n}
	for step := 0; step < n-1; step++ {
		// Find the closest active pair.
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && d[i][j] < best {
					bi, bj, best = i, j, d[i][j]
				}
			}
		}

		height := best
		if linkage == Ward {
			height = math.Sqrt(best)
		}
		dg.Merges = append(dg.Merges, Merge{A: node[bi], B: node[bj], Height: height})

		// Merge bj into bi and update distances to every other cluster.
		na, nb := float64(size[bi]), float64(size[bj])
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			var updated float64
			switch linkage {
			case Single:
				updated = math.Min(d[bi][k], d[bj][k])
			case Complete:
				updated = math.Max(d[bi][k], d[bj][k])
			case Average:
				updated = (na*d[bi][k] + nb*d[bj][k]) / (na + nb)
			case Ward:
				nk := float64(size[k])
				updated = ((na+nk)*d[bi][k] + (nb+nk)*d[bj][k] - nk*d[bi][bj]) / (na + nb + nk)
			}
			d[bi][k] = updated
			d[k][bi] = updated
		}

		active[bj] = false
		size[bi] += size[bj]
		node[bi] = n + step
	}
	return dg, nil
}

// CutK cuts the dendrogram into k clusters and returns a cluster index in
// [0,k) per sample. Cluster indices are assigned by first appearance, so
// the labeling is deterministic.
func (dg *Dendrogram) CutK(k int) ([]int, error) {
	if k < 1 || k > dg.N {
		return nil, errors.NewValidationError("k", "must be between 1 and the sample count", k)
	}

	parent := make([]int, dg.N+len(dg.Merges))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	// Apply the first n-k merges; the remaining components are the
	// clusters.
	for step := 0; step < dg.N-k; step++ {
		m := dg.Merges[step]
		internal := dg.N + step
		parent[find(m.A)] = internal
		parent[find(m.B)] = internal
	}

	labels := make([]int, dg.N)
	seen := make(map[int]int)
	for i := 0; i < dg.N; i++ {
		root := find(i)
		if _, ok := seen[root]; !ok {
			seen[root] = len(seen)
		}
		labels[i] = seen[root]
	}
	return labels, nil
}
