// Package dataset loads and represents the cohort under analysis: one
// Sample per study participant, carrying clinical metadata and a vector of
// log-transformed analyte measurements. Keeping measurements and metadata on
// a single entity means every filtering step applies one boolean mask to one
// slice, instead of re-filtering parallel tables.
package dataset

import (
	"math"
)

// Sample is one study participant with clinical metadata, one measurement
// per analyte (NaN when missing), and the derived BMI trait and class.
type Sample struct {
	ID        string
	Karyotype string
	Sex       string
	Source    string

	// WeightKG and HeightCM are NaN when missing from the metadata table.
	WeightKG float64
	HeightCM float64

	// Measurements is parallel to Dataset.Analytes; NaN marks a missing
	// measurement.
	Measurements []float64

	// BMI is NaN until DeriveBMILabels runs, and stays NaN when weight or
	// height is missing or height is zero.
	BMI      float64
	BMIClass BMIClass
}

// HasCompleteMeasurements reports whether every analyte has a value.
func (s *Sample) HasCompleteMeasurements() bool {
	for _, v := range s.Measurements {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
