package preprocessing

import (
	"sort"

	"github.com/cytoprofile/cytoprofile/core/model"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// LabelEncoder maps string class labels to integer codes and back. Classes
// are assigned codes in sorted order so the encoding is deterministic.
type LabelEncoder struct {
	model.BaseEstimator

	ClassToInt map[string]int
	IntToClass map[int]string
	ClassNames []string
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{
		ClassToInt: make(map[string]int),
		IntToClass: make(map[int]string),
	}
}

// Fit learns the label vocabulary.
func (le *LabelEncoder) Fit(labels []string) {
	unique := make(map[string]bool, len(labels))
	for _, l := range labels {
		unique[l] = true
	}

	le.ClassNames = le.ClassNames[:0]
	for l := range unique {
		le.ClassNames = append(le.ClassNames, l)
	}
	sort.Strings(le.ClassNames)

	le.ClassToInt = make(map[string]int, len(le.ClassNames))
	le.IntToClass = make(map[int]string, len(le.ClassNames))
	for i, l := range le.ClassNames {
		le.ClassToInt[l] = i
		le.IntToClass[i] = l
	}
	le.SetFitted()
}

// Transform encodes labels to integer codes.
func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := le.ClassToInt[l]
		if !ok {
			return nil, errors.Newf("unknown label: %s", l)
		}
		out[i] = code
	}
	return out, nil
}

// FitTransform fits the encoder and encodes labels in one call.
func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	le.Fit(labels)
	return le.Transform(labels)
}

// InverseTransform decodes integer codes back to labels.
func (le *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		l, ok := le.IntToClass[c]
		if !ok {
			return nil, errors.Newf("unknown label code: %d", c)
		}
		out[i] = l
	}
	return out, nil
}
