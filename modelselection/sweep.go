package modelselection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/core/parallel"
	"github.com/cytoprofile/cytoprofile/linear"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
	"github.com/cytoprofile/cytoprofile/pkg/log"
)

// GridCell is one (alpha, lambda) combination with its mean
// cross-validated accuracy. MeanAccuracy is NaN when every fold failed for
// the cell; NScores counts the folds that contributed.
type GridCell struct {
	Alpha        float64
	Lambda       float64
	MeanAccuracy float64
	NScores      int
}

// GridSearch sweeps the elastic-net hyperparameters over a Cartesian
// (alpha, lambda) grid with repeated k-fold cross-validation. Fit failures
// are isolated per cell; a failed cell is reported as NaN and never aborts
// the sweep. Cells are independent and scored in parallel.
type GridSearch struct {
	// Alphas and Lambdas define the grid, alpha rows × lambda columns.
	Alphas  []float64
	Lambdas []float64

	// NFolds and NRepeats configure the repeated cross-validation.
	NFolds   int
	NRepeats int

	// Seed drives the fold assignment shared by every cell.
	Seed int64

	// Opts are passed through to every fitted ElasticNet.
	Opts []linear.Option

	// Cells holds the scored grid in row-major order after Fit.
	Cells []GridCell

	// Best is the selected cell: maximal mean accuracy, ties broken by
	// smaller lambda, then smaller alpha.
	Best GridCell

	logger log.Logger
}

// NewGridSearch creates a sweep over the given grid with 10-fold,
// 3-repeat cross-validation.
func NewGridSearch(alphas, lambdas []float64, seed int64, opts ...linear.Option) *GridSearch {
	return &GridSearch{
		Alphas:   alphas,
		Lambdas:  lambdas,
		NFolds:   10,
		NRepeats: 3,
		Seed:     seed,
		Opts:     opts,
		logger:   log.GetLoggerWithName("modelselection.GridSearch"),
	}
}

// DefaultAlphaGrid is the conventional 0 to 1 mixing grid in steps of 0.1.
func DefaultAlphaGrid() []float64 {
	grid := make([]float64, 11)
	for i := range grid {
		grid[i] = float64(i) / 10
	}
	return grid
}

// DefaultLambdaGrid is a log-spaced penalty grid from 10^-4 to 1.
func DefaultLambdaGrid() []float64 {
	grid := make([]float64, 9)
	for i := range grid {
		grid[i] = math.Pow(10, -4+float64(i)*0.5)
	}
	return grid
}

// Fit scores every grid cell on X and the 0/1 response y.
func (g *GridSearch) Fit(X, y mat.Matrix) error {
	n, _ := X.Dims()
	if len(g.Alphas) == 0 || len(g.Lambdas) == 0 {
		return errors.NewValueError("GridSearch.Fit", "empty hyperparameter grid")
	}
	if n < g.NFolds {
		return errors.NewValueError("GridSearch.Fit", "fewer samples than folds")
	}

	// All cells share the same fold sequence so their scores are
	// comparable.
	folds := NewRepeatedKFold(g.NFolds, g.NRepeats, g.Seed).Split(n)

	nCells := len(g.Alphas) * len(g.Lambdas)
	g.Cells = make([]GridCell, nCells)

	parallel.Parallelize(nCells, func(start, end int) {
		for c := start; c < end; c++ {
			ai := c / len(g.Lambdas)
			li := c % len(g.Lambdas)
			g.Cells[c] = g.scoreCell(X, y, g.Alphas[ai], g.Lambdas[li], folds)
		}
	})

	best := -1
	for c := range g.Cells {
		if math.IsNaN(g.Cells[c].MeanAccuracy) {
			continue
		}
		if best < 0 || g.better(g.Cells[c], g.Cells[best]) {
			best = c
		}
	}
	if best < 0 {
		return errors.NewModelError("GridSearch.Fit", "every grid cell failed", nil)
	}
	g.Best = g.Cells[best]

	g.logger.Info("sweep finished",
		"cells", nCells,
		"best_alpha", g.Best.Alpha,
		"best_lambda", g.Best.Lambda,
		"best_accuracy", g.Best.MeanAccuracy,
	)
	return nil
}

// better reports whether a beats b under the selection rule: higher mean
// accuracy, then smaller lambda, then smaller alpha.
func (g *GridSearch) better(a, b GridCell) bool {
	if a.MeanAccuracy != b.MeanAccuracy {
		return a.MeanAccuracy > b.MeanAccuracy
	}
	if a.Lambda != b.Lambda {
		return a.Lambda < b.Lambda
	}
	return a.Alpha < b.Alpha
}

func (g *GridSearch) scoreCell(X, y mat.Matrix, alpha, lambda float64, folds []CVFold) GridCell {
	cell := GridCell{Alpha: alpha, Lambda: lambda, MeanAccuracy: math.NaN()}

	sum := 0.0
	count := 0
	for _, fold := range folds {
		Xtr, ytr := subsetRows(X, y, fold.TrainIndices)
		Xte, yte := subsetRows(X, y, fold.TestIndices)

		m := linear.NewElasticNet(append(g.opts(), linear.WithAlpha(alpha), linear.WithLambda(lambda))...)
		if err := m.Fit(Xtr, ytr); err != nil {
			// Per-cell isolation: a degenerate or unstable fold is
			// dropped from this cell's mean.
			continue
		}
		pred, err := m.Predict(Xte)
		if err != nil {
			continue
		}

		correct := 0
		for i := range fold.TestIndices {
			if pred.At(i, 0) == yte.At(i, 0) {
				correct++
			}
		}
		sum += float64(correct) / float64(len(fold.TestIndices))
		count++
	}

	if count > 0 {
		cell.MeanAccuracy = sum / float64(count)
		cell.NScores = count
	} else {
		errors.Warn(errors.NewConvergenceWarning("GridSearch", 0,
			"all folds failed for a grid cell; reported as NaN"))
	}
	return cell
}

func (g *GridSearch) opts() []linear.Option {
	out := make([]linear.Option, len(g.Opts))
	copy(out, g.Opts)
	return out
}

// CellAt returns the scored cell for the given grid coordinates.
func (g *GridSearch) CellAt(ai, li int) GridCell {
	return g.Cells[ai*len(g.Lambdas)+li]
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
