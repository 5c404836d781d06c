package decomposition

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPCARecoversDominantDirection(t *testing.T) {
	// Points spread along the x axis with slight y jitter: PC1 must align
	// with x and carry nearly all the variance.
	X := mat.NewDense(6, 2, []float64{
		-5, 0.1,
		-3, -0.1,
		-1, 0.05,
		1, -0.05,
		3, 0.1,
		5, -0.1,
	})

	p := NewPCA(2)
	scores, err := p.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := scores.Dims()
	if r != 6 || c != 2 {
		t.Fatalf("scores dims = %dx%d, want 6x2", r, c)
	}

	ratio := p.ExplainedVarianceRatio()
	if ratio[0] < 0.99 {
		t.Errorf("PC1 variance ratio = %v, want > 0.99", ratio[0])
	}

	// PC1 scores must preserve the x ordering up to a global sign.
	sign := 1.0
	if scores.At(0, 0) > 0 {
		sign = -1.0
	}
	prev := math.Inf(-1)
	for i := 0; i < 6; i++ {
		s := sign * scores.At(i, 0)
		if s < prev {
			t.Fatalf("PC1 scores do not follow the dominant axis at row %d", i)
		}
		prev = s
	}
}

func TestPCATransformCentersOnTrainingMean(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	p := NewPCA(1)
	if err := p.Fit(X); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// The training mean itself projects to the origin.
	meanRow := mat.NewDense(1, 2, []float64{2.5, 25})
	scores, err := p.Transform(meanRow)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if math.Abs(scores.At(0, 0)) > 1e-9 {
		t.Errorf("mean row score = %v, want 0", scores.At(0, 0))
	}
}

func TestPCAValidation(t *testing.T) {
	p := NewPCA(2)
	if err := p.Fit(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("Fit() with a single sample should fail")
	}

	if _, err := NewPCA(1).Transform(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("Transform() before Fit should fail")
	}

	X := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 10,
		2, 1, 0,
	})
	p2 := NewPCA(2)
	if err := p2.Fit(X); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := p2.Transform(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("Transform() with wrong feature count should fail")
	}
}

func TestScoreFilterKeep(t *testing.T) {
	scores := mat.NewDense(4, 2, []float64{
		-12, 1,
		-10, 2,
		-9.9, 3,
		5, 4,
	})

	keep, err := NewScoreFilter(-10).Keep(scores)
	if err != nil {
		t.Fatalf("Keep() error = %v", err)
	}
	want := []bool{false, true, true, true}
	for i := range want {
		if keep[i] != want[i] {
			t.Errorf("keep[%d] = %v, want %v", i, keep[i], want[i])
		}
	}
}

func TestScoreFilterComponentOutOfRange(t *testing.T) {
	f := &ScoreFilter{Component: 5, Threshold: 0}
	if _, err := f.Keep(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("Keep() with out-of-range component should fail")
	}
}
