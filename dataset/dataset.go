package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// Dataset is the joined cohort: ordered samples and the ordered analyte
// panel their measurement vectors index into. Filtering returns a new
// Dataset; the sample set only ever shrinks.
type Dataset struct {
	Samples  []Sample
	Analytes []string
}

// N returns the number of samples.
func (d *Dataset) N() int { return len(d.Samples) }

// P returns the number of analytes.
func (d *Dataset) P() int { return len(d.Analytes) }

// IDs returns the sample identifiers in order.
func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.Samples))
	for i := range d.Samples {
		ids[i] = d.Samples[i].ID
	}
	return ids
}

// Matrix returns the samples × analytes feature matrix. Missing
// measurements stay NaN; variance-based consumers should select complete
// rows first (see CompleteRows).
func (d *Dataset) Matrix() *mat.Dense {
	n, p := d.N(), d.P()
	X := mat.NewDense(n, p, nil)
	for i := range d.Samples {
		X.SetRow(i, d.Samples[i].Measurements)
	}
	return X
}

// CompleteRows flags samples with a value for every analyte.
func (d *Dataset) CompleteRows() []bool {
	keep := make([]bool, len(d.Samples))
	for i := range d.Samples {
		keep[i] = d.Samples[i].HasCompleteMeasurements()
	}
	return keep
}

// Filter returns a new Dataset holding the samples where keep is true.
func (d *Dataset) Filter(keep []bool) (*Dataset, error) {
	if len(keep) != len(d.Samples) {
		return nil, errors.NewDimensionError("Dataset.Filter", len(d.Samples), len(keep), 0)
	}
	out := &Dataset{Analytes: d.Analytes}
	for i, k := range keep {
		if k {
			out.Samples = append(out.Samples, d.Samples[i])
		}
	}
	return out, nil
}

// Subset returns a new Dataset holding the samples at the given indices,
// in index order.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	out := &Dataset{Analytes: d.Analytes}
	for _, idx := range indices {
		if idx < 0 || idx >= len(d.Samples) {
			return nil, errors.NewValueError("Dataset.Subset", "sample index out of range")
		}
		out.Samples = append(out.Samples, d.Samples[idx])
	}
	return out, nil
}

// DeriveBMILabels computes BMI and its class for every sample and returns
// the number of samples whose BMI could not be derived.
func (d *Dataset) DeriveBMILabels(lower, upper float64) int {
	excluded := 0
	for i := range d.Samples {
		s := &d.Samples[i]
		s.BMI = DeriveBMI(s.WeightKG, s.HeightCM)
		s.BMIClass = ClassifyBMI(s.BMI, lower, upper)
		if s.BMIClass == BMIUnknown {
			excluded++
		}
	}
	return excluded
}

// Labels returns each sample's BMI class name in order.
func (d *Dataset) Labels() []string {
	labels := make([]string, len(d.Samples))
	for i := range d.Samples {
		labels[i] = d.Samples[i].BMIClass.String()
	}
	return labels
}

// ClassCounts tallies samples per BMI class name.
func (d *Dataset) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for i := range d.Samples {
		counts[d.Samples[i].BMIClass.String()]++
	}
	return counts
}

// RequireClasses verifies that every named class has at least one member in
// labels. It returns a DegenerateClassError for the first absent class;
// binary classification needs both classes in both partitions.
func RequireClasses(op, partition string, labels []string, classes []string) error {
	present := make(map[string]bool, len(labels))
	for _, l := range labels {
		present[l] = true
	}
	for _, c := range classes {
		if !present[c] {
			return errors.NewDegenerateClassError(op, c, partition)
		}
	}
	return nil
}
