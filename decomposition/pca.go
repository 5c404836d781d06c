// Package decomposition provides principal component analysis and the
// PC-score outlier filter used to screen the cohort before modeling.
package decomposition

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cytoprofile/cytoprofile/core/model"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

// PCA projects samples onto the principal components of the feature matrix.
// Rows with missing values must be excluded before fitting; use
// Dataset.CompleteRows.
type PCA struct {
	model.BaseEstimator

	// NComponents is the number of components kept. Zero keeps all.
	NComponents int

	mean       []float64
	components *mat.Dense // p × k, columns are unit component vectors
	variances  []float64
	nFeatures  int
}

// NewPCA creates a PCA keeping nComponents components (0 for all).
func NewPCA(nComponents int) *PCA {
	return &PCA{NComponents: nComponents}
}

// Fit computes the principal components of X.
func (p *PCA) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if r < 2 {
		return errors.NewValueError("PCA.Fit", "need at least two samples")
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return errors.NewModelError("PCA.Fit", "decomposition failed", errors.ErrSingularMatrix)
	}

	k := min(r, c)
	if p.NComponents > 0 && p.NComponents < k {
		k = p.NComponents
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	p.components = mat.NewDense(c, k, nil)
	p.components.Copy(vecs.Slice(0, c, 0, k))

	vars := pc.VarsTo(nil)
	p.variances = vars[:k]

	p.mean = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		p.mean[j] = sum / float64(r)
	}
	p.nFeatures = c

	p.SetFitted()
	return nil
}

// Transform returns the PC scores of X (rows × kept components).
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "Transform")
	}
	r, c := X.Dims()
	if c != p.nFeatures {
		return nil, errors.NewDimensionError("PCA.Transform", p.nFeatures, c, 1)
	}

	centered := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-p.mean[j])
		}
	}

	_, k := p.components.Dims()
	scores := mat.NewDense(r, k, nil)
	scores.Mul(centered, p.components)
	return scores, nil
}

// FitTransform fits the PCA and returns the scores of X.
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// ExplainedVariance returns the variance captured by each kept component.
func (p *PCA) ExplainedVariance() []float64 {
	out := make([]float64, len(p.variances))
	copy(out, p.variances)
	return out
}

// ExplainedVarianceRatio returns each kept component's share of the total
// variance across all components.
func (p *PCA) ExplainedVarianceRatio() []float64 {
	total := 0.0
	for _, v := range p.variances {
		total += v
	}
	out := make([]float64, len(p.variances))
	if total == 0 {
		return out
	}
	for i, v := range p.variances {
		out[i] = v / total
	}
	return out
}
