package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that learns from a feature matrix and a response.
// The response is an n×1 matrix of encoded class values.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces predictions for a feature matrix.
type Predictor interface {
	// Predict returns an n×1 matrix of predicted class values.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the shared capability of the penalized-regression and
// random-forest models: fit on encoded labels, hard class prediction,
// class-probability estimates for the positive class.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns an n×1 matrix of positive-class probabilities.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the encoded class values seen during fitting.
	Classes() []int
}

// Transformer maps a feature matrix to a transformed feature matrix.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}
