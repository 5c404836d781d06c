// Package store persists analysis run results to SQLite so evaluations
// and sweep grids can be compared across runs. The driver is pure Go
// (modernc.org/sqlite); exporting is optional and the pipeline runs fine
// without a store.
package store

import (
	"database/sql"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cytoprofile/cytoprofile/modelselection"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
	"github.com/cytoprofile/cytoprofile/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    created_at  TEXT NOT NULL,
    seed        INTEGER NOT NULL,
    n_samples   INTEGER NOT NULL,
    n_analytes  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL REFERENCES runs(id),
    model      TEXT NOT NULL,
    positive   TEXT NOT NULL,
    tp         INTEGER NOT NULL,
    fp         INTEGER NOT NULL,
    tn         INTEGER NOT NULL,
    fn         INTEGER NOT NULL,
    accuracy   REAL,
    precision  REAL,
    recall     REAL
);

CREATE TABLE IF NOT EXISTS sweep_cells (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id    TEXT NOT NULL REFERENCES runs(id),
    alpha     REAL NOT NULL,
    lambda    REAL NOT NULL,
    accuracy  REAL,
    n_scores  INTEGER NOT NULL,
    selected  INTEGER NOT NULL DEFAULT 0
);
`

// RunStore writes run results to a SQLite database.
type RunStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing result schema")
	}
	return &RunStore{db: db}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// CreateRun records a new run under the caller's identifier, so stored
// rows stay correlatable with the run's report and logs.
func (s *RunStore) CreateRun(id string, seed int64, nSamples, nAnalytes int) error {
	if id == "" {
		return errors.NewValueError("RunStore.CreateRun", "run identifier must not be empty")
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, created_at, seed, n_samples, n_analytes)
		VALUES (?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(time.RFC3339),
		seed,
		nSamples,
		nAnalytes,
	)
	return errors.WithStack(err)
}

// SaveEvaluation persists one model evaluation. Undefined (NaN) metrics
// are stored as NULL so they stay distinguishable from zero.
func (s *RunStore) SaveEvaluation(runID string, e *report.ModelEvaluation) error {
	cm := e.Confusion
	_, err := s.db.Exec(`
		INSERT INTO evaluations
		(run_id, model, positive, tp, fp, tn, fn, accuracy, precision, recall)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		e.Name,
		cm.Positive,
		cm.TP, cm.FP, cm.TN, cm.FN,
		nullableMetric(e.Accuracy),
		nullableMetric(e.Precision),
		nullableMetric(e.Recall),
	)
	return errors.WithStack(err)
}

// SaveSweep persists every cell of a scored sweep, flagging the selected
// cell.
func (s *RunStore) SaveSweep(runID string, g *modelselection.GridSearch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}
	for _, cell := range g.Cells {
		selected := 0
		if cell.Alpha == g.Best.Alpha && cell.Lambda == g.Best.Lambda {
			selected = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO sweep_cells (run_id, alpha, lambda, accuracy, n_scores, selected)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, cell.Alpha, cell.Lambda, nullableMetric(cell.MeanAccuracy), cell.NScores, selected,
		); err != nil {
			tx.Rollback()
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(tx.Commit())
}

// RunIDs lists stored run identifiers, oldest first.
func (s *RunStore) RunIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WithStack(err)
		}
		ids = append(ids, id)
	}
	return ids, errors.WithStack(rows.Err())
}

// EvaluationCount returns the number of stored evaluations for a run.
func (s *RunStore) EvaluationCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE run_id = ?`, runID).Scan(&n)
	return n, errors.WithStack(err)
}

// SelectedSweepCell returns the (alpha, lambda) flagged as selected for a
// run.
func (s *RunStore) SelectedSweepCell(runID string) (alpha, lambda float64, err error) {
	err = s.db.QueryRow(`
		SELECT alpha, lambda FROM sweep_cells
		WHERE run_id = ? AND selected = 1`, runID).Scan(&alpha, &lambda)
	return alpha, lambda, errors.WithStack(err)
}

func nullableMetric(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
