package store

import (
	"math"
	"testing"

	"github.com/cytoprofile/cytoprofile/metrics"
	"github.com/cytoprofile/cytoprofile/modelselection"
	"github.com/cytoprofile/cytoprofile/report"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreEvaluationRoundTrip(t *testing.T) {
	s := openTestStore(t)

	runID := "run-eval"
	if err := s.CreateRun(runID, 42, 120, 54); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	ev := &report.ModelEvaluation{
		Name:      "ridge",
		Confusion: &metrics.Confusion{Positive: "obese", TP: 8, FP: 2, TN: 10, FN: 3},
		Accuracy:  18.0 / 23.0,
		Precision: 0.8,
		Recall:    8.0 / 11.0,
	}
	if err := s.SaveEvaluation(runID, ev); err != nil {
		t.Fatalf("SaveEvaluation() error = %v", err)
	}

	n, err := s.EvaluationCount(runID)
	if err != nil {
		t.Fatalf("EvaluationCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("EvaluationCount() = %d, want 1", n)
	}
}

func TestStoreNaNMetricsAsNull(t *testing.T) {
	s := openTestStore(t)

	runID := "run-nan"
	if err := s.CreateRun(runID, 1, 10, 5); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	// Precision undefined: positive class never predicted.
	ev := &report.ModelEvaluation{
		Name:      "lasso",
		Confusion: &metrics.Confusion{Positive: "obese", TP: 0, FP: 0, TN: 7, FN: 3},
		Accuracy:  0.7,
		Precision: math.NaN(),
		Recall:    0,
	}
	if err := s.SaveEvaluation(runID, ev); err != nil {
		t.Fatalf("SaveEvaluation() with NaN metric error = %v", err)
	}

	var precision any
	err := s.db.QueryRow(`SELECT precision FROM evaluations WHERE run_id = ?`, runID).Scan(&precision)
	if err != nil {
		t.Fatalf("querying precision: %v", err)
	}
	if precision != nil {
		t.Errorf("stored precision = %v, want NULL for NaN", precision)
	}
}

func TestStoreSweepRoundTrip(t *testing.T) {
	s := openTestStore(t)

	runID := "run-sweep"
	if err := s.CreateRun(runID, 2, 80, 10); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	g := &modelselection.GridSearch{
		Alphas:  []float64{0, 1},
		Lambdas: []float64{0.01, 0.1},
		Cells: []modelselection.GridCell{
			{Alpha: 0, Lambda: 0.01, MeanAccuracy: 0.8, NScores: 30},
			{Alpha: 0, Lambda: 0.1, MeanAccuracy: 0.75, NScores: 30},
			{Alpha: 1, Lambda: 0.01, MeanAccuracy: 0.85, NScores: 30},
			{Alpha: 1, Lambda: 0.1, MeanAccuracy: math.NaN(), NScores: 0},
		},
	}
	g.Best = g.Cells[2]

	if err := s.SaveSweep(runID, g); err != nil {
		t.Fatalf("SaveSweep() error = %v", err)
	}

	alpha, lambda, err := s.SelectedSweepCell(runID)
	if err != nil {
		t.Fatalf("SelectedSweepCell() error = %v", err)
	}
	if alpha != 1 || lambda != 0.01 {
		t.Errorf("selected cell = (%v, %v), want (1, 0.01)", alpha, lambda)
	}
}

func TestStoreKeepsCallerRunID(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateRun("run-a", 1, 10, 5); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := s.CreateRun("run-b", 1, 10, 5); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	ids, err := s.RunIDs()
	if err != nil {
		t.Fatalf("RunIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "run-a" || ids[1] != "run-b" {
		t.Errorf("RunIDs() = %v, want [run-a run-b]", ids)
	}
}

func TestStoreRejectsDuplicateRunID(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateRun("run-a", 1, 10, 5); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := s.CreateRun("run-a", 2, 20, 8); err == nil {
		t.Error("reusing a run identifier should fail")
	}
	if err := s.CreateRun("", 1, 10, 5); err == nil {
		t.Error("empty run identifier should fail")
	}
}
