package cluster

import (
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// Divisive clusters samples top-down into k groups. Starting from one
// all-inclusive cluster, the cluster with the largest diameter is split by
// seeding a splinter group with the most dissimilar member and migrating
// samples closer to the splinter than to the remainder, until k clusters
// exist. The procedure is deterministic.
func Divisive(dist [][]float64, k int) ([]int, error) {
	n := len(dist)
	if n == 0 {
		return nil, errors.NewValueError("Divisive", "empty distance matrix")
	}
	if k < 1 || k > n {
		return nil, errors.NewValidationError("k", "must be between 1 and the sample count", k)
	}

	clusters := [][]int{make([]int, n)}
	for i := range clusters[0] {
		clusters[0][i] = i
	}

	for len(clusters) < k {
		// Pick the cluster with the largest diameter.
		target, targetDiam := -1, -1.0
		for ci, members := range clusters {
			if len(members) < 2 {
				continue
			}
			diam := 0.0
			for a := 0; a < len(members); a++ {
				for b := a + 1; b < len(members); b++ {
					if d := dist[members[a]][members[b]]; d > diam {
						diam = d
					}
				}
			}
			if diam > targetDiam {
				target, targetDiam = ci, diam
			}
		}
		if target < 0 {
			// Only singletons remain.
			break
		}

		splinter, rest := splitCluster(dist, clusters[target])
		clusters[target] = rest
		clusters = append(clusters, splinter)
	}

	labels := make([]int, n)
	for ci, members := range clusters {
		for _, m := range members {
			labels[m] = ci
		}
	}
	return labels, nil
}

// splitCluster seeds the splinter with the member having the largest mean
// dissimilarity, then migrates members whose mean distance to the splinter
// is smaller than to the remainder.
func splitCluster(dist [][]float64, members []int) (splinter, rest []int) {
	seed, seedScore := members[0], -1.0
	for _, a := range members {
		mean := 0.0
		for _, b := range members {
			mean += dist[a][b]
		}
		mean /= float64(len(members) - 1)
		if mean > seedScore {
			seed, seedScore = a, mean
		}
	}

	inSplinter := map[int]bool{seed: true}
	for {
		moved := false
		for _, a := range members {
			if inSplinter[a] {
				continue
			}
			var toSplinter, toRest float64
			nSplinter, nRest := 0, 0
			for _, b := range members {
				if b == a {
					continue
				}
				if inSplinter[b] {
					toSplinter += dist[a][b]
					nSplinter++
				} else {
					toRest += dist[a][b]
					nRest++
				}
			}
			if nSplinter > 0 && nRest > 0 && toSplinter/float64(nSplinter) < toRest/float64(nRest) {
				inSplinter[a] = true
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	for _, m := range members {
		if inSplinter[m] {
			splinter = append(splinter, m)
		} else {
			rest = append(rest, m)
		}
	}
	return splinter, rest
}
