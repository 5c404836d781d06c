package modelselection

import (
	"testing"
)

func TestKFoldCoversEverySample(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		nSplits int
	}{
		{name: "even division", n: 20, nSplits: 5},
		{name: "with remainder", n: 23, nSplits: 5},
		{name: "two folds", n: 7, nSplits: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds := NewKFold(tt.nSplits, 1).Split(tt.n)
			if len(folds) != tt.nSplits {
				t.Fatalf("len(folds) = %d, want %d", len(folds), tt.nSplits)
			}

			testSeen := make(map[int]int, tt.n)
			for _, fold := range folds {
				if len(fold.TrainIndices)+len(fold.TestIndices) != tt.n {
					t.Errorf("fold does not partition n=%d samples", tt.n)
				}
				for _, i := range fold.TestIndices {
					testSeen[i]++
				}
			}
			for i := 0; i < tt.n; i++ {
				if testSeen[i] != 1 {
					t.Errorf("sample %d appears in %d test folds, want exactly 1", i, testSeen[i])
				}
			}
		})
	}
}

func TestKFoldSizesDifferByAtMostOne(t *testing.T) {
	folds := NewKFold(5, 3).Split(23)
	minSize, maxSize := 23, 0
	for _, fold := range folds {
		if len(fold.TestIndices) < minSize {
			minSize = len(fold.TestIndices)
		}
		if len(fold.TestIndices) > maxSize {
			maxSize = len(fold.TestIndices)
		}
	}
	if maxSize-minSize > 1 {
		t.Errorf("fold sizes range %d..%d, want spread of at most 1", minSize, maxSize)
	}
}

func TestKFoldReproducible(t *testing.T) {
	f1 := NewKFold(4, 11).Split(30)
	f2 := NewKFold(4, 11).Split(30)
	for f := range f1 {
		if !equalInts(f1[f].TestIndices, f2[f].TestIndices) {
			t.Fatal("identical seeds should reproduce identical folds")
		}
	}
}

func TestRepeatedKFold(t *testing.T) {
	rkf := NewRepeatedKFold(5, 3, 2)
	folds := rkf.Split(25)
	if len(folds) != 15 {
		t.Fatalf("len(folds) = %d, want 15 (5 folds x 3 repeats)", len(folds))
	}

	// Repeats shuffle differently.
	if equalInts(folds[0].TestIndices, folds[5].TestIndices) {
		t.Error("repeat 0 and repeat 1 produced the same first fold")
	}
}
