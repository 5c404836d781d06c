package modelselection

import (
	"testing"
)

func TestTrainTestSplitSizes(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		fraction  float64
		wantTrain int
	}{
		{name: "hundred at three quarters", n: 100, fraction: 0.75, wantTrain: 75},
		{name: "floor of fractional count", n: 10, fraction: 0.66, wantTrain: 6},
		{name: "everything train", n: 8, fraction: 1.0, wantTrain: 8},
		{name: "everything test", n: 8, fraction: 0.0, wantTrain: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, test, err := TrainTestSplit(tt.n, tt.fraction, 42)
			if err != nil {
				t.Fatalf("TrainTestSplit() error = %v", err)
			}
			if len(train) != tt.wantTrain {
				t.Errorf("len(train) = %d, want %d", len(train), tt.wantTrain)
			}
			if len(train)+len(test) != tt.n {
				t.Errorf("partition sizes %d+%d do not cover n=%d", len(train), len(test), tt.n)
			}
		})
	}
}

func TestTrainTestSplitDisjointExhaustive(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.75, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	seen := make(map[int]int, 100)
	for _, i := range train {
		seen[i]++
	}
	for _, i := range test {
		seen[i]++
	}
	for i := 0; i < 100; i++ {
		if seen[i] != 1 {
			t.Fatalf("index %d appears %d times across partitions, want exactly once", i, seen[i])
		}
	}
}

func TestTrainTestSplitReproducible(t *testing.T) {
	train1, test1, err := TrainTestSplit(50, 0.8, 99)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	train2, test2, err := TrainTestSplit(50, 0.8, 99)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	if !equalInts(train1, train2) || !equalInts(test1, test2) {
		t.Error("identical seeds should reproduce the identical split")
	}

	train3, _, err := TrainTestSplit(50, 0.8, 100)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	if equalInts(train1, train3) {
		t.Error("different seeds should give different splits")
	}
}

func TestTrainTestSplitValidation(t *testing.T) {
	if _, _, err := TrainTestSplit(0, 0.5, 1); err == nil {
		t.Error("TrainTestSplit() with n=0 should fail")
	}
	if _, _, err := TrainTestSplit(10, 1.5, 1); err == nil {
		t.Error("TrainTestSplit() with fraction > 1 should fail")
	}
	if _, _, err := TrainTestSplit(10, -0.1, 1); err == nil {
		t.Error("TrainTestSplit() with negative fraction should fail")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
