package dataset

import (
	"math"
	"testing"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

func makeCohort() *Dataset {
	return &Dataset{
		Analytes: []string{"IL6", "TNF"},
		Samples: []Sample{
			{ID: "s1", WeightKG: 60, HeightCM: 170, Measurements: []float64{1.0, 2.0}},
			{ID: "s2", WeightKG: 85, HeightCM: 170, Measurements: []float64{3.0, math.NaN()}},
			{ID: "s3", WeightKG: 95, HeightCM: 170, Measurements: []float64{5.0, 6.0}},
			{ID: "s4", WeightKG: math.NaN(), HeightCM: 170, Measurements: []float64{7.0, 8.0}},
		},
	}
}

func TestDatasetCompleteRows(t *testing.T) {
	ds := makeCohort()
	got := ds.CompleteRows()
	want := []bool{true, false, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CompleteRows()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDatasetFilter(t *testing.T) {
	ds := makeCohort()
	filtered, err := ds.Filter([]bool{true, false, true, false})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if filtered.N() != 2 {
		t.Fatalf("filtered N = %d, want 2", filtered.N())
	}
	if filtered.Samples[0].ID != "s1" || filtered.Samples[1].ID != "s3" {
		t.Errorf("filtered IDs = %v, want [s1 s3]", filtered.IDs())
	}
	if ds.N() != 4 {
		t.Errorf("source dataset mutated: N = %d, want 4", ds.N())
	}
}

func TestDatasetFilterDimensionMismatch(t *testing.T) {
	ds := makeCohort()
	if _, err := ds.Filter([]bool{true}); err == nil {
		t.Error("Filter() with short mask should fail")
	}
}

func TestDeriveBMILabels(t *testing.T) {
	ds := makeCohort()
	excluded := ds.DeriveBMILabels(DefaultBMILower, DefaultBMIUpper)
	if excluded != 1 {
		t.Errorf("excluded = %d, want 1 (missing weight)", excluded)
	}

	want := []BMIClass{BMINormal, BMIOverweight, BMIObese, BMIUnknown}
	for i, w := range want {
		if ds.Samples[i].BMIClass != w {
			t.Errorf("sample %s class = %v, want %v", ds.Samples[i].ID, ds.Samples[i].BMIClass, w)
		}
	}

	counts := ds.ClassCounts()
	if counts["normal"] != 1 || counts["overweight"] != 1 || counts["obese"] != 1 || counts["unknown"] != 1 {
		t.Errorf("ClassCounts() = %v", counts)
	}
}

func TestSubsetOrder(t *testing.T) {
	ds := makeCohort()
	sub, err := ds.Subset([]int{2, 0})
	if err != nil {
		t.Fatalf("Subset() error = %v", err)
	}
	if sub.Samples[0].ID != "s3" || sub.Samples[1].ID != "s1" {
		t.Errorf("Subset IDs = %v, want [s3 s1]", sub.IDs())
	}

	if _, err := ds.Subset([]int{99}); err == nil {
		t.Error("Subset() with out-of-range index should fail")
	}
}

func TestRequireClasses(t *testing.T) {
	labels := []string{"normal", "normal", "obese"}
	if err := RequireClasses("test", "train", labels, []string{"normal", "obese"}); err != nil {
		t.Errorf("RequireClasses() with both classes present: %v", err)
	}

	err := RequireClasses("test", "train", []string{"normal", "normal"}, []string{"normal", "obese"})
	if err == nil {
		t.Fatal("RequireClasses() should fail when a class is absent")
	}
	var dce *errors.DegenerateClassError
	if !errors.As(err, &dce) {
		t.Errorf("error type = %T, want *DegenerateClassError", err)
	}
}
