package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
	"github.com/cytoprofile/cytoprofile/store"
)

// writeCohort generates a synthetic cohort: 28 normal and 28 obese samples
// whose first analyte separates the classes, 2 overweight samples, and one
// sample without a derivable BMI.
func writeCohort(t *testing.T, dir string) (metaPath, measPath string) {
	t.Helper()
	r := rand.New(rand.NewPCG(99, 99))

	var meta, meas strings.Builder
	meta.WriteString("sample_id\tkaryotype\tsex\tsource\tweight_kg\theight_cm\n")
	meas.WriteString("sample_id\tanalyte\tvalue\n")

	addSample := func(id, weight string, signal float64) {
		fmt.Fprintf(&meta, "%s\t46,XX\tF\tclinicA\t%s\t170\n", id, weight)
		fmt.Fprintf(&meas, "%s\tIL6\t%f\n", id, math.Exp(signal+r.NormFloat64()*0.3))
		fmt.Fprintf(&meas, "%s\tTNF\t%f\n", id, math.Exp(r.NormFloat64()*0.3))
		fmt.Fprintf(&meas, "%s\tIFNG\t%f\n", id, math.Exp(r.NormFloat64()*0.3))
	}

	for i := 0; i < 28; i++ {
		addSample(fmt.Sprintf("norm%02d", i), "60", 0)
	}
	for i := 0; i < 28; i++ {
		addSample(fmt.Sprintf("obes%02d", i), "95", 3)
	}
	addSample("over00", "78", 1.5)
	addSample("over01", "80", 1.5)
	addSample("miss00", "NA", 0)

	metaPath = filepath.Join(dir, "meta.tsv")
	measPath = filepath.Join(dir, "meas.tsv")
	if err := os.WriteFile(metaPath, []byte(meta.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(measPath, []byte(meas.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return metaPath, measPath
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.MetadataPath, cfg.MeasurementsPath = writeCohort(t, dir)
	cfg.CVFolds = 4
	cfg.SweepAlphas = []float64{0, 1}
	cfg.SweepLambdas = []float64{0.01, 0.1}
	cfg.SweepFolds = 4
	cfg.SweepRepeats = 1
	cfg.ForestTrees = 25
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)

	cfg := testConfig(t)
	rep, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rep.RunID == "" {
		t.Error("RunID is empty")
	}
	if rep.NLoaded != 59 {
		t.Errorf("NLoaded = %d, want 59", rep.NLoaded)
	}
	if rep.NMissingBMI != 1 {
		t.Errorf("NMissingBMI = %d, want 1", rep.NMissingBMI)
	}
	// Two overweight samples and the underivable one leave the binary set.
	if rep.NModeled != 56 {
		t.Errorf("NModeled = %d, want 56", rep.NModeled)
	}
	if rep.NTrain != 42 || rep.NTest != 14 {
		t.Errorf("split = %d/%d, want 42/14", rep.NTrain, rep.NTest)
	}
	if rep.TrainCounts["normal"]+rep.TestCounts["normal"] != 28 {
		t.Errorf("normal counts = %d train + %d test, want 28 total",
			rep.TrainCounts["normal"], rep.TestCounts["normal"])
	}

	// Ridge, lasso, elastic-net CV, and the forest each get evaluated.
	if len(rep.Evaluations) != 4 {
		t.Fatalf("len(Evaluations) = %d, want 4", len(rep.Evaluations))
	}
	for _, ev := range rep.Evaluations {
		if n := ev.Confusion.N(); n != 14 {
			t.Errorf("%s scored %d samples, want 14", ev.Name, n)
		}
		// The signal is strong, so every model should beat chance clearly.
		if !math.IsNaN(ev.Accuracy) && ev.Accuracy < 0.7 {
			t.Errorf("%s accuracy = %v, want > 0.7", ev.Name, ev.Accuracy)
		}
	}

	if rep.CVLambdaBest <= 0 {
		t.Errorf("CVLambdaBest = %v, want positive", rep.CVLambdaBest)
	}
	if rep.Sweep == nil || len(rep.Sweep.Cells) != 4 {
		t.Fatalf("sweep cells = %v, want 4", rep.Sweep)
	}
	if len(rep.Importance) != 3 {
		t.Fatalf("len(Importance) = %d, want 3 analytes", len(rep.Importance))
	}
	// IL6 carries the class signal and must rank first.
	if rep.Analytes[rep.Importance[0].Feature] != "IL6" {
		t.Errorf("top analyte = %s, want IL6", rep.Analytes[rep.Importance[0].Feature])
	}

	if len(rep.ClusterCounts) == 0 {
		t.Error("ClusterCounts is empty")
	}

	summary := rep.Summary()
	for _, want := range []string{"ridge", "lasso", "random forest", "IL6", "train classes"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q", want)
		}
	}
}

func TestRunReproducible(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)

	cfg := testConfig(t)
	rep1, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	rep2, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rep1.NTrain != rep2.NTrain || rep1.NTest != rep2.NTest {
		t.Error("identical seeds should reproduce the identical split")
	}
	if rep1.CVLambdaBest != rep2.CVLambdaBest {
		t.Errorf("CVLambdaBest differs: %v vs %v", rep1.CVLambdaBest, rep2.CVLambdaBest)
	}
	for i := range rep1.Evaluations {
		c1, c2 := rep1.Evaluations[i].Confusion, rep2.Evaluations[i].Confusion
		if *c1 != *c2 {
			t.Errorf("%s confusion differs across runs", rep1.Evaluations[i].Name)
		}
	}
}

func TestRunWritesPlotsAndStore(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)

	cfg := testConfig(t)
	cfg.PlotDir = t.TempDir()
	cfg.StorePath = filepath.Join(t.TempDir(), "runs.db")

	rep, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"pca_scores.png", "sweep_heatmap.png", "forest_oob.png"} {
		if _, err := os.Stat(filepath.Join(cfg.PlotDir, name)); err != nil {
			t.Errorf("plot %s not written: %v", name, err)
		}
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		t.Fatalf("opening result store: %v", err)
	}
	defer st.Close()

	ids, err := st.RunIDs()
	if err != nil {
		t.Fatalf("RunIDs() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("stored runs = %d, want 1", len(ids))
	}
	if ids[0] != rep.RunID {
		t.Errorf("stored run id = %s, want the report's %s", ids[0], rep.RunID)
	}
	n, err := st.EvaluationCount(ids[0])
	if err != nil {
		t.Fatalf("EvaluationCount() error = %v", err)
	}
	if n != len(rep.Evaluations) {
		t.Errorf("stored evaluations = %d, want %d", n, len(rep.Evaluations))
	}
}

func TestRunFailsOnMissingInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetadataPath = "does-not-exist.tsv"
	cfg.MeasurementsPath = "does-not-exist.tsv"
	if _, err := Run(cfg); err == nil {
		t.Error("Run() with missing inputs should fail")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TrainFraction != 0.75 {
		t.Errorf("TrainFraction = %v, want 0.75", cfg.TrainFraction)
	}
	if cfg.OutlierThreshold != -10 {
		t.Errorf("OutlierThreshold = %v, want -10", cfg.OutlierThreshold)
	}
	if cfg.BMILower != 25 || cfg.BMIUpper != 30 {
		t.Errorf("BMI cutoffs = %v/%v, want 25/30", cfg.BMILower, cfg.BMIUpper)
	}
	if cfg.ForestTrees != 500 {
		t.Errorf("ForestTrees = %d, want 500", cfg.ForestTrees)
	}
}
