package linear

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/core/model"
	"github.com/cytoprofile/cytoprofile/metrics"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// CVMetric names the score used to select the penalty strength.
type CVMetric string

const (
	// CVAUC selects the penalty maximizing mean held-out AUC.
	CVAUC CVMetric = "auc"
	// CVAccuracy selects the penalty maximizing mean held-out accuracy.
	CVAccuracy CVMetric = "accuracy"
)

// ElasticNetCV selects the penalty strength of an ElasticNet by K-fold
// cross-validation over a shared penalty path, then refits on the full
// training data. Identical seed and input order reproduce the identical
// selection.
type ElasticNetCV struct {
	model.BaseEstimator

	// Alpha is the mixing parameter of the underlying models.
	Alpha float64

	// NFolds is the number of cross-validation folds.
	NFolds int

	// Metric is the selection score, CVAUC by default.
	Metric CVMetric

	// Seed drives the fold assignment.
	Seed int64

	// Opts are passed through to every underlying ElasticNet.
	Opts []Option

	// LambdaBest is the penalty with the highest mean score. On ties the
	// largest (most regularized) penalty wins, as the path is fitted in
	// decreasing order.
	LambdaBest float64

	// Lambda1SE is the largest penalty whose mean score is within one
	// standard error of the best.
	Lambda1SE float64

	// LambdaPath and MeanScores describe the cross-validated path.
	LambdaPath []float64
	MeanScores []float64

	final *ElasticNet
}

// NewElasticNetCV creates a cross-validated trainer with 10 folds and AUC
// selection.
func NewElasticNetCV(alpha float64, seed int64, opts ...Option) *ElasticNetCV {
	return &ElasticNetCV{
		Alpha:  alpha,
		NFolds: 10,
		Metric: CVAUC,
		Seed:   seed,
		Opts:   opts,
	}
}

// Fit cross-validates the penalty path and refits at the selection.
func (cv *ElasticNetCV) Fit(X, y mat.Matrix) error {
	n, _ := X.Dims()
	if cv.NFolds < 2 {
		return errors.NewValidationError("n_folds", "must be at least 2", cv.NFolds)
	}
	if n < cv.NFolds {
		return errors.NewValueError("ElasticNetCV.Fit", "fewer samples than folds")
	}

	// The path is fixed on the full data so every fold scores the same
	// penalty sequence.
	pathModel := NewElasticNet(append(cv.opts(), WithAlpha(cv.Alpha))...)
	if err := pathModel.Fit(X, y); err != nil {
		return err
	}
	path := pathModel.Lambdas()

	folds := cv.assignFolds(n)
	scores := make([][]float64, len(path)) // per lambda, per fold

	for f := 0; f < cv.NFolds; f++ {
		trainIdx, testIdx := splitByFold(folds, f)
		if len(trainIdx) == 0 || len(testIdx) == 0 {
			continue
		}

		Xtr, ytr := subsetRows(X, y, trainIdx)
		Xte, yte := subsetRows(X, y, testIdx)

		fold := NewElasticNet(append(cv.opts(), WithAlpha(cv.Alpha), WithLambdaPath(path))...)
		if err := fold.Fit(Xtr, ytr); err != nil {
			// A degenerate fold is skipped, not fatal; the remaining
			// folds still score the path.
			errors.Warn(errors.NewConvergenceWarning("ElasticNetCV", f, err.Error()))
			continue
		}

		yTrue := make([]float64, len(testIdx))
		for i := range testIdx {
			yTrue[i] = yte.At(i, 0)
		}

		for li, lambda := range path {
			s, err := cv.scoreFold(fold, Xte, yTrue, lambda)
			if err != nil {
				continue
			}
			scores[li] = append(scores[li], s)
		}
	}

	best, bestScore := -1, math.Inf(-1)
	cv.LambdaPath = path
	cv.MeanScores = make([]float64, len(path))
	ses := make([]float64, len(path))
	for li := range path {
		if len(scores[li]) == 0 {
			cv.MeanScores[li] = math.NaN()
			continue
		}
		mean := 0.0
		for _, s := range scores[li] {
			mean += s
		}
		mean /= float64(len(scores[li]))
		cv.MeanScores[li] = mean

		variance := 0.0
		for _, s := range scores[li] {
			variance += (s - mean) * (s - mean)
		}
		if k := len(scores[li]); k > 1 {
			ses[li] = math.Sqrt(variance/float64(k-1)) / math.Sqrt(float64(k))
		}

		if mean > bestScore {
			best, bestScore = li, mean
		}
	}
	if best < 0 {
		return errors.NewModelError("ElasticNetCV.Fit", "no fold produced a valid score", nil)
	}

	cv.LambdaBest = path[best]
	cv.Lambda1SE = cv.LambdaBest
	for li := range path {
		if !math.IsNaN(cv.MeanScores[li]) && cv.MeanScores[li] >= bestScore-ses[best] {
			// Path is decreasing, so the first qualifying entry is the
			// largest penalty.
			cv.Lambda1SE = path[li]
			break
		}
	}

	cv.final = pathModel
	if err := cv.final.SetLambda(cv.LambdaBest); err != nil {
		return err
	}
	cv.SetFitted()
	return nil
}

func (cv *ElasticNetCV) opts() []Option {
	out := make([]Option, len(cv.Opts))
	copy(out, cv.Opts)
	return out
}

func (cv *ElasticNetCV) scoreFold(fold *ElasticNet, Xte mat.Matrix, yTrue []float64, lambda float64) (float64, error) {
	switch cv.Metric {
	case CVAccuracy:
		pred, err := fold.PredictAt(Xte, lambda)
		if err != nil {
			return 0, err
		}
		correct := 0
		for i := range yTrue {
			if pred.At(i, 0) == yTrue[i] {
				correct++
			}
		}
		return float64(correct) / float64(len(yTrue)), nil
	default:
		proba, err := fold.PredictProbaAt(Xte, lambda)
		if err != nil {
			return 0, err
		}
		s := make([]float64, len(yTrue))
		for i := range yTrue {
			s[i] = proba.At(i, 0)
		}
		return metrics.AUC(yTrue, s)
	}
}

// assignFolds deals samples into folds after a seeded shuffle.
func (cv *ElasticNetCV) assignFolds(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(cv.Seed), uint64(cv.Seed)))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([]int, n)
	for pos, idx := range indices {
		folds[idx] = pos % cv.NFolds
	}
	return folds
}

func splitByFold(folds []int, f int) (train, test []int) {
	for i, fi := range folds {
		if fi == f {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

func subsetRows(X, y mat.Matrix, idx []int) (mat.Matrix, *mat.Dense) {
	_, p := X.Dims()
	Xs := mat.NewDense(len(idx), p, nil)
	ys := mat.NewDense(len(idx), 1, nil)
	for i, row := range idx {
		for j := 0; j < p; j++ {
			Xs.Set(i, j, X.At(row, j))
		}
		ys.Set(i, 0, y.At(row, 0))
	}
	return Xs, ys
}

// Model returns the final model refitted at LambdaBest.
func (cv *ElasticNetCV) Model() *ElasticNet {
	return cv.final
}

// Predict issues hard labels with the final model at LambdaBest.
func (cv *ElasticNetCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !cv.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNetCV", "Predict")
	}
	return cv.final.Predict(X)
}

// PredictProba returns positive-class probabilities at LambdaBest.
func (cv *ElasticNetCV) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !cv.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNetCV", "PredictProba")
	}
	return cv.final.PredictProba(X)
}

// Classes returns the encoded class values.
func (cv *ElasticNetCV) Classes() []int { return []int{0, 1} }
