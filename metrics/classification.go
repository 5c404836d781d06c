// Package metrics implements the classification evaluation used across the
// pipeline: confusion counts against a designated positive class, the
// derived accuracy/precision/recall triple, and rank-based AUC.
//
// Undefined ratios are reported as NaN, never coerced to zero: precision is
// undefined when the positive class is never predicted, recall when it is
// never observed. Each undefined value raises an UndefinedMetricWarning
// through the pkg/errors warning handler so a report reader can tell "no
// data" apart from a true zero.
package metrics

import (
	"math"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// Confusion holds the confusion counts for one model on one dataset, with
// respect to a designated positive class.
type Confusion struct {
	Positive string
	TP       int
	FP       int
	TN       int
	FN       int
}

// NewConfusion counts categorical matches between parallel predicted and
// true label sequences.
func NewConfusion(yTrue, yPred []string, positive string) (*Confusion, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewValueError("NewConfusion", "empty label sequence")
	}
	if len(yTrue) != len(yPred) {
		return nil, errors.NewDimensionError("NewConfusion", len(yTrue), len(yPred), 0)
	}

	cm := &Confusion{Positive: positive}
	for i := range yTrue {
		predPos := yPred[i] == positive
		truePos := yTrue[i] == positive
		switch {
		case predPos && truePos:
			cm.TP++
		case predPos && !truePos:
			cm.FP++
		case !predPos && truePos:
			cm.FN++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// N returns the total number of scored samples.
func (c *Confusion) N() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy returns (tp+tn)/n.
func (c *Confusion) Accuracy() float64 {
	n := c.N()
	if n == 0 {
		return math.NaN()
	}
	return float64(c.TP+c.TN) / float64(n)
}

// Precision returns tp/(tp+fp), or NaN when the positive class was never
// predicted.
func (c *Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "positive class never predicted"))
		return math.NaN()
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns tp/(tp+fn), or NaN when the positive class was never
// observed.
func (c *Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "positive class never observed"))
		return math.NaN()
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// Accuracy computes the fraction of exact label matches.
func Accuracy(yTrue, yPred []string) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("Accuracy", "empty label sequence")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("Accuracy", len(yTrue), len(yPred), 0)
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// AccuracyInt computes the fraction of exact matches over encoded labels.
func AccuracyInt(yTrue, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("AccuracyInt", "empty label sequence")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("AccuracyInt", len(yTrue), len(yPred), 0)
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}
