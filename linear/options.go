package linear

// Option configures an ElasticNet.
type Option func(*ElasticNet)

// WithAlpha sets the elastic-net mixing parameter in [0,1]: 0 is a pure
// ridge (L2) penalty, 1 a pure lasso (L1) penalty.
func WithAlpha(alpha float64) Option {
	return func(m *ElasticNet) {
		m.alpha = alpha
	}
}

// WithLambda fixes the penalty strength. The model is still fitted down a
// warm-start path ending at this value.
func WithLambda(lambda float64) Option {
	return func(m *ElasticNet) {
		m.lambda = lambda
	}
}

// WithLambdaPath fixes the full penalty path. Values must be in decreasing
// order. Overrides WithLambda and the automatic path.
func WithLambdaPath(path []float64) Option {
	return func(m *ElasticNet) {
		m.lambdaPath = path
	}
}

// WithNLambda sets the length of the automatic penalty path.
func WithNLambda(n int) Option {
	return func(m *ElasticNet) {
		m.nLambda = n
	}
}

// WithLambdaMinRatio sets the ratio of the smallest to the largest penalty
// on the automatic path.
func WithLambdaMinRatio(ratio float64) Option {
	return func(m *ElasticNet) {
		m.lambdaMinRatio = ratio
	}
}

// WithMaxIter sets the iteration limit of the coordinate-descent loop.
func WithMaxIter(n int) Option {
	return func(m *ElasticNet) {
		m.maxIter = n
	}
}

// WithTol sets the convergence tolerance on coefficient updates.
func WithTol(tol float64) Option {
	return func(m *ElasticNet) {
		m.tol = tol
	}
}

// WithStandardize controls internal feature standardization. Coefficients
// are always reported on the original scale.
func WithStandardize(standardize bool) Option {
	return func(m *ElasticNet) {
		m.standardize = standardize
	}
}
