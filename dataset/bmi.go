package dataset

import "math"

// BMIClass is the derived categorical label for a sample.
type BMIClass int

const (
	// BMIUnknown marks samples whose BMI could not be derived.
	BMIUnknown BMIClass = iota
	// BMINormal is BMI at or below the lower cutoff.
	BMINormal
	// BMIOverweight is the middle bin, discarded before binary classification.
	BMIOverweight
	// BMIObese is BMI at or above the upper cutoff.
	BMIObese
)

// Default BMI cutoffs (kg/m²).
const (
	DefaultBMILower = 25.0
	DefaultBMIUpper = 30.0
)

// String returns the class name used in labels and reports.
func (c BMIClass) String() string {
	switch c {
	case BMINormal:
		return "normal"
	case BMIOverweight:
		return "overweight"
	case BMIObese:
		return "obese"
	default:
		return "unknown"
	}
}

// DeriveBMI computes weight / (height in meters)². It returns NaN when
// either input is NaN or height is zero; the caller excludes such samples
// from classification rather than failing.
func DeriveBMI(weightKG, heightCM float64) float64 {
	if math.IsNaN(weightKG) || math.IsNaN(heightCM) || heightCM == 0 {
		return math.NaN()
	}
	m := heightCM / 100.0
	return weightKG / (m * m)
}

// ClassifyBMI bins a BMI value with two cutoffs. The obese check runs before
// the normal check; this order decides values landing exactly on a cutoff
// when the cutoffs overlap, so it must not be rearranged.
func ClassifyBMI(bmi, lower, upper float64) BMIClass {
	if math.IsNaN(bmi) {
		return BMIUnknown
	}
	if bmi >= upper {
		return BMIObese
	}
	if bmi <= lower {
		return BMINormal
	}
	return BMIOverweight
}
