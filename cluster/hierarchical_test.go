package cluster

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// twoBlobs places three tight points near the origin and three near (10,10).
func twoBlobs() *mat.Dense {
	return mat.NewDense(6, 2, []float64{
		0, 0,
		0.5, 0,
		0, 0.5,
		10, 10,
		10.5, 10,
		10, 10.5,
	})
}

func TestEuclideanDistances(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 4,
		0, 1,
	})
	d := EuclideanDistances(X)

	if math.Abs(d[0][1]-5) > 1e-9 {
		t.Errorf("d[0][1] = %v, want 5", d[0][1])
	}
	if math.Abs(d[0][2]-1) > 1e-9 {
		t.Errorf("d[0][2] = %v, want 1", d[0][2])
	}
	for i := 0; i < 3; i++ {
		if d[i][i] != 0 {
			t.Errorf("d[%d][%d] = %v, want 0", i, i, d[i][i])
		}
		for j := 0; j < 3; j++ {
			if d[i][j] != d[j][i] {
				t.Errorf("distance matrix not symmetric at (%d,%d)", i, j)
			}
		}
	}
}

func TestAgglomerativeSeparatesBlobs(t *testing.T) {
	dist := EuclideanDistances(twoBlobs())

	for _, linkage := range []Linkage{Single, Complete, Average, Ward} {
		dg, err := Agglomerative(dist, linkage)
		if err != nil {
			t.Fatalf("Agglomerative(%v) error = %v", linkage, err)
		}
		if len(dg.Merges) != 5 {
			t.Fatalf("merges = %d, want n-1 = 5", len(dg.Merges))
		}

		labels, err := dg.CutK(2)
		if err != nil {
			t.Fatalf("CutK(2) error = %v", err)
		}

		// Samples 0-2 form one cluster, 3-5 the other.
		if labels[0] != labels[1] || labels[1] != labels[2] {
			t.Errorf("linkage %v: first blob split: %v", linkage, labels)
		}
		if labels[3] != labels[4] || labels[4] != labels[5] {
			t.Errorf("linkage %v: second blob split: %v", linkage, labels)
		}
		if labels[0] == labels[3] {
			t.Errorf("linkage %v: blobs merged: %v", linkage, labels)
		}
	}
}

func TestAgglomerativeHeightsNondecreasing(t *testing.T) {
	dist := EuclideanDistances(twoBlobs())

	// Complete, average, and Ward linkage are monotone; single can chain
	// but stays monotone too on metric input.
	for _, linkage := range []Linkage{Complete, Average, Ward} {
		dg, err := Agglomerative(dist, linkage)
		if err != nil {
			t.Fatalf("Agglomerative(%v) error = %v", linkage, err)
		}
		for i := 1; i < len(dg.Merges); i++ {
			if dg.Merges[i].Height < dg.Merges[i-1].Height-1e-9 {
				t.Errorf("linkage %v: height decreases at merge %d: %v -> %v",
					linkage, i, dg.Merges[i-1].Height, dg.Merges[i].Height)
			}
		}
	}
}

func TestCutKExtremes(t *testing.T) {
	dist := EuclideanDistances(twoBlobs())
	dg, err := Agglomerative(dist, Average)
	if err != nil {
		t.Fatalf("Agglomerative() error = %v", err)
	}

	one, err := dg.CutK(1)
	if err != nil {
		t.Fatalf("CutK(1) error = %v", err)
	}
	for _, l := range one {
		if l != 0 {
			t.Fatalf("CutK(1) labels = %v, want all 0", one)
		}
	}

	all, err := dg.CutK(6)
	if err != nil {
		t.Fatalf("CutK(6) error = %v", err)
	}
	seen := make(map[int]bool)
	for _, l := range all {
		seen[l] = true
	}
	if len(seen) != 6 {
		t.Errorf("CutK(n) distinct labels = %d, want 6", len(seen))
	}

	if _, err := dg.CutK(0); err == nil {
		t.Error("CutK(0) should fail")
	}
	if _, err := dg.CutK(7); err == nil {
		t.Error("CutK(n+1) should fail")
	}
}

func TestAgglomerativeValidation(t *testing.T) {
	if _, err := Agglomerative([][]float64{{0}}, Average); err == nil {
		t.Error("Agglomerative() with one sample should fail")
	}
	ragged := [][]float64{{0, 1}, {1}}
	if _, err := Agglomerative(ragged, Average); err == nil {
		t.Error("Agglomerative() with ragged matrix should fail")
	}
}

func TestDivisiveSeparatesBlobs(t *testing.T) {
	dist := EuclideanDistances(twoBlobs())
	labels, err := Divisive(dist, 2)
	if err != nil {
		t.Fatalf("Divisive() error = %v", err)
	}

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first blob split: %v", labels)
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("second blob split: %v", labels)
	}
	if labels[0] == labels[3] {
		t.Errorf("blobs share a cluster: %v", labels)
	}
}

func TestDivisiveDeterministic(t *testing.T) {
	dist := EuclideanDistances(twoBlobs())
	l1, err := Divisive(dist, 3)
	if err != nil {
		t.Fatalf("Divisive() error = %v", err)
	}
	l2, err := Divisive(dist, 3)
	if err != nil {
		t.Fatalf("Divisive() error = %v", err)
	}
	for i := range l1 {
		if l1[i] != l2[i] {
			t.Fatal("Divisive() is not deterministic")
		}
	}
}

func TestDivisiveValidation(t *testing.T) {
	if _, err := Divisive(nil, 1); err == nil {
		t.Error("Divisive() with empty input should fail")
	}
	dist := EuclideanDistances(twoBlobs())
	if _, err := Divisive(dist, 0); err == nil {
		t.Error("Divisive() with k=0 should fail")
	}
	if _, err := Divisive(dist, 7); err == nil {
		t.Error("Divisive() with k>n should fail")
	}
}
