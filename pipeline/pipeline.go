// Package pipeline wires the analysis stages end to end: load, screen
// outliers, derive labels, split, fit the penalized models, evaluate,
// sweep the hyperparameter grid, and fit the random forest. Stages run
// sequentially; a stage-local validation failure aborts the run with a
// diagnostic, while per-cell failures inside the sweep are isolated.
package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprofile/cytoprofile/cluster"
	"github.com/cytoprofile/cytoprofile/core/model"
	"github.com/cytoprofile/cytoprofile/dataset"
	"github.com/cytoprofile/cytoprofile/decomposition"
	"github.com/cytoprofile/cytoprofile/ensemble"
	"github.com/cytoprofile/cytoprofile/linear"
	"github.com/cytoprofile/cytoprofile/modelselection"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
	"github.com/cytoprofile/cytoprofile/pkg/log"
	"github.com/cytoprofile/cytoprofile/preprocessing"
	"github.com/cytoprofile/cytoprofile/report"
	"github.com/cytoprofile/cytoprofile/store"
)

// Config names every input and tunable of a pipeline run explicitly;
// there is no working-directory or environment state.
type Config struct {
	MetadataPath     string
	MeasurementsPath string

	// Seed drives the train/test split, cross-validation folds, and the
	// forest. Identical seed and inputs reproduce the identical run.
	Seed int64

	// TrainFraction is the train partition share, 0.75 by default.
	TrainFraction float64

	// OutlierThreshold drops samples with a PC1 score below it.
	OutlierThreshold float64

	// BMILower and BMIUpper are the label cutoffs.
	BMILower float64
	BMIUpper float64

	// PositiveClass designates the class evaluated as positive.
	PositiveClass string

	// CVFolds configures the elastic-net penalty selection.
	CVFolds int

	// Sweep grid and its repeated cross-validation.
	SweepAlphas  []float64
	SweepLambdas []float64
	SweepFolds   int
	SweepRepeats int

	// ForestTrees is the ensemble size.
	ForestTrees int

	// ClusterK cuts the dendrogram into this many groups.
	ClusterK int

	// PlotDir, when set, receives the PNG plots.
	PlotDir string

	// StorePath, when set, receives the SQLite result export.
	StorePath string
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Seed:             1,
		TrainFraction:    0.75,
		OutlierThreshold: -10,
		BMILower:         dataset.DefaultBMILower,
		BMIUpper:         dataset.DefaultBMIUpper,
		PositiveClass:    dataset.BMIObese.String(),
		CVFolds:          10,
		SweepAlphas:      modelselection.DefaultAlphaGrid(),
		SweepLambdas:     modelselection.DefaultLambdaGrid(),
		SweepFolds:       10,
		SweepRepeats:     3,
		ForestTrees:      500,
		ClusterK:         2,
	}
}

// Report collects everything a run produced.
type Report struct {
	RunID string

	NLoaded     int
	NOutliers   int
	NMissingBMI int
	NModeled    int
	NTrain      int
	NTest       int

	TrainCounts map[string]int
	TestCounts  map[string]int

	Analytes []string

	Evaluations []*report.ModelEvaluation

	CVLambdaBest float64
	CVLambda1SE  float64

	Sweep *modelselection.GridSearch

	Importance []ensemble.FeatureImportance

	// ClusterCounts cross-tabulates hierarchical cluster membership
	// against the derived class.
	ClusterCounts map[string]map[int]int
}

// Summary renders the printed report.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s\n", r.RunID)
	fmt.Fprintf(&sb, "samples: loaded=%d outliers=%d missing_bmi=%d modeled=%d train=%d test=%d\n",
		r.NLoaded, r.NOutliers, r.NMissingBMI, r.NModeled, r.NTrain, r.NTest)
	sb.WriteString(report.FormatClassCounts("train classes", r.TrainCounts))
	sb.WriteString(report.FormatClassCounts("test classes", r.TestCounts))
	for _, e := range r.Evaluations {
		sb.WriteString(e.String())
	}
	fmt.Fprintf(&sb, "elastic-net CV: lambda_best=%.4g lambda_1se=%.4g\n", r.CVLambdaBest, r.CVLambda1SE)
	if r.Sweep != nil {
		sb.WriteString(report.FormatSweep(r.Sweep))
	}
	sb.WriteString(report.FormatImportance(r.Analytes, r.Importance, 10))
	if len(r.ClusterCounts) > 0 {
		nClusters := 0
		for _, byCluster := range r.ClusterCounts {
			for c := range byCluster {
				if c+1 > nClusters {
					nClusters = c + 1
				}
			}
		}
		sb.WriteString("hierarchical clusters by class\n")
		for _, class := range sortedKeys(r.ClusterCounts) {
			fmt.Fprintf(&sb, "  %-12s", class)
			for c := 0; c < nClusters; c++ {
				fmt.Fprintf(&sb, " cluster%d=%d", c, r.ClusterCounts[class][c])
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Run executes the full analysis.
func Run(cfg Config) (*Report, error) {
	logger := log.GetLoggerWithName("pipeline").With(log.SeedKey, cfg.Seed)
	rep := &Report{RunID: uuid.NewString()}
	logger = logger.With(log.RunIDKey, rep.RunID)

	// Stage 1: load and join the cohort tables.
	ds, err := dataset.NewLoader(cfg.MetadataPath, cfg.MeasurementsPath).Load()
	if err != nil {
		return nil, err
	}
	rep.NLoaded = ds.N()
	rep.Analytes = ds.Analytes

	// Stage 2: PCA outlier screen over the complete rows, then refit.
	ds, scores, labels, err := screenOutliers(ds, cfg, rep, logger)
	if err != nil {
		return nil, err
	}

	// Stage 3-4: derive the BMI label, drop underivable samples and the
	// middle class, and keep complete measurement rows for modeling.
	modelDS, err := deriveBinaryLabels(ds, cfg, rep, logger)
	if err != nil {
		return nil, err
	}
	rep.NModeled = modelDS.N()

	// Stage 5: train/test split, then per-class count inspection.
	trainDS, testDS, err := split(modelDS, cfg, rep, logger)
	if err != nil {
		return nil, err
	}

	// Encode the two classes for the numeric trainers.
	encoder := preprocessing.NewLabelEncoder()
	yTrainCodes, err := encoder.FitTransform(trainDS.Labels())
	if err != nil {
		return nil, err
	}
	yTestLabels := testDS.Labels()

	Xtrain := trainDS.Matrix()
	Xtest := testDS.Matrix()
	yTrain := codesToVector(yTrainCodes)

	// Stage 6-7: penalized models and their held-out evaluations.
	if err := fitPenalized(cfg, rep, encoder, Xtrain, yTrain, Xtest, yTestLabels, logger); err != nil {
		return nil, err
	}

	// Stage 8: hyperparameter sweep on the training partition.
	sweep := modelselection.NewGridSearch(cfg.SweepAlphas, cfg.SweepLambdas, cfg.Seed)
	sweep.NFolds = cfg.SweepFolds
	sweep.NRepeats = cfg.SweepRepeats
	if err := sweep.Fit(Xtrain, yTrain); err != nil {
		return nil, err
	}
	rep.Sweep = sweep

	// Stage 9: random forest on the same split.
	forest := ensemble.NewRandomForest(cfg.Seed)
	forest.NTrees = cfg.ForestTrees
	if err := forest.Fit(Xtrain, yTrain); err != nil {
		return nil, err
	}
	if err := evaluateModel(rep, encoder, "random forest", forest, Xtest, yTestLabels, cfg.PositiveClass); err != nil {
		return nil, err
	}
	rep.Importance = forest.Importance()

	// Supplementary structure exploration: hierarchical clustering of
	// the modeled samples.
	if cfg.ClusterK > 1 {
		if err := clusterModeled(modelDS, cfg, rep); err != nil {
			return nil, err
		}
	}

	if cfg.PlotDir != "" {
		if err := writePlots(cfg, rep, scores, labels, forest, encoder); err != nil {
			return nil, err
		}
	}
	if cfg.StorePath != "" {
		if err := exportResults(cfg, rep); err != nil {
			return nil, err
		}
	}

	logger.Info("pipeline finished", log.SamplesKey, rep.NModeled)
	return rep, nil
}

// screenOutliers fits PCA on the complete rows, drops samples below the
// PC1 threshold, and refits on the survivors. Incomplete rows are kept;
// they only sit out the variance-based screen.
func screenOutliers(ds *dataset.Dataset, cfg Config, rep *Report, logger log.Logger) (*dataset.Dataset, mat.Matrix, []string, error) {
	complete := ds.CompleteRows()
	completeDS, err := ds.Filter(complete)
	if err != nil {
		return nil, nil, nil, err
	}
	if completeDS.N() < 2 {
		return nil, nil, nil, errors.NewValueError("pipeline", "fewer than two complete measurement rows")
	}

	pca := decomposition.NewPCA(2)
	scores, err := pca.FitTransform(completeDS.Matrix())
	if err != nil {
		return nil, nil, nil, err
	}

	keepComplete, err := decomposition.NewScoreFilter(cfg.OutlierThreshold).Keep(scores)
	if err != nil {
		return nil, nil, nil, err
	}

	// Expand the complete-row mask back over the full cohort.
	keep := make([]bool, ds.N())
	ci := 0
	outliers := 0
	for i := range keep {
		if complete[i] {
			keep[i] = keepComplete[ci]
			if !keepComplete[ci] {
				outliers++
			}
			ci++
		} else {
			keep[i] = true
		}
	}
	rep.NOutliers = outliers
	logger.Info("outlier screen", "removed", outliers, "threshold", cfg.OutlierThreshold)

	filtered, err := ds.Filter(keep)
	if err != nil {
		return nil, nil, nil, err
	}

	// Refit on the surviving complete rows for the score plot.
	survivors, err := filtered.Filter(filtered.CompleteRows())
	if err != nil {
		return nil, nil, nil, err
	}
	refit := decomposition.NewPCA(2)
	refitScores, err := refit.FitTransform(survivors.Matrix())
	if err != nil {
		return nil, nil, nil, err
	}

	karyotypes := make([]string, survivors.N())
	for i := range survivors.Samples {
		karyotypes[i] = survivors.Samples[i].Karyotype
	}
	return filtered, refitScores, karyotypes, nil
}

// deriveBinaryLabels computes BMI classes, reports underivable samples,
// discards the middle class, and keeps complete rows for modeling.
func deriveBinaryLabels(ds *dataset.Dataset, cfg Config, rep *Report, logger log.Logger) (*dataset.Dataset, error) {
	rep.NMissingBMI = ds.DeriveBMILabels(cfg.BMILower, cfg.BMIUpper)
	if rep.NMissingBMI > 0 {
		logger.Warn("samples without derivable BMI excluded", "excluded", rep.NMissingBMI)
	}

	keep := make([]bool, ds.N())
	for i := range ds.Samples {
		class := ds.Samples[i].BMIClass
		keep[i] = (class == dataset.BMINormal || class == dataset.BMIObese) &&
			ds.Samples[i].HasCompleteMeasurements()
	}
	binary, err := ds.Filter(keep)
	if err != nil {
		return nil, err
	}
	if binary.N() == 0 {
		return nil, errors.NewValueError("pipeline", "no samples left after label derivation")
	}

	classes := []string{dataset.BMINormal.String(), dataset.BMIObese.String()}
	if err := dataset.RequireClasses("pipeline", "full", binary.Labels(), classes); err != nil {
		return nil, err
	}
	return binary, nil
}

// split partitions the modeled samples and verifies both classes survive
// in both partitions.
func split(ds *dataset.Dataset, cfg Config, rep *Report, logger log.Logger) (train, test *dataset.Dataset, err error) {
	trainIdx, testIdx, err := modelselection.TrainTestSplit(ds.N(), cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	train, err = ds.Subset(trainIdx)
	if err != nil {
		return nil, nil, err
	}
	test, err = ds.Subset(testIdx)
	if err != nil {
		return nil, nil, err
	}

	rep.NTrain = train.N()
	rep.NTest = test.N()
	rep.TrainCounts = train.ClassCounts()
	rep.TestCounts = test.ClassCounts()
	logger.Info("split", "train", rep.NTrain, "test", rep.NTest)

	classes := []string{dataset.BMINormal.String(), dataset.BMIObese.String()}
	if err := dataset.RequireClasses("pipeline", "train", train.Labels(), classes); err != nil {
		return nil, nil, err
	}
	if err := dataset.RequireClasses("pipeline", "test", test.Labels(), classes); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func fitPenalized(cfg Config, rep *Report, encoder *preprocessing.LabelEncoder, Xtrain, yTrain, Xtest mat.Matrix, yTestLabels []string, logger log.Logger) error {
	ridge := linear.NewRidge()
	if err := ridge.Fit(Xtrain, yTrain); err != nil {
		return err
	}
	if err := evaluateModel(rep, encoder, "ridge", ridge, Xtest, yTestLabels, cfg.PositiveClass); err != nil {
		return err
	}

	lasso := linear.NewLasso()
	if err := lasso.Fit(Xtrain, yTrain); err != nil {
		return err
	}
	if err := evaluateModel(rep, encoder, "lasso", lasso, Xtest, yTestLabels, cfg.PositiveClass); err != nil {
		return err
	}

	cv := linear.NewElasticNetCV(0.5, cfg.Seed)
	cv.NFolds = cfg.CVFolds
	if err := cv.Fit(Xtrain, yTrain); err != nil {
		return err
	}
	rep.CVLambdaBest = cv.LambdaBest
	rep.CVLambda1SE = cv.Lambda1SE
	logger.Info("elastic-net CV", "lambda_best", cv.LambdaBest, "lambda_1se", cv.Lambda1SE)
	return evaluateModel(rep, encoder, "elastic net (CV)", cv, Xtest, yTestLabels, cfg.PositiveClass)
}

// evaluateModel predicts on the test partition and appends the evaluation.
func evaluateModel(rep *Report, encoder *preprocessing.LabelEncoder, name string, m model.Predictor, Xtest mat.Matrix, yTestLabels []string, positive string) error {
	pred, err := m.Predict(Xtest)
	if err != nil {
		return err
	}
	n, _ := pred.Dims()
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		codes[i] = int(pred.At(i, 0))
	}
	predLabels, err := encoder.InverseTransform(codes)
	if err != nil {
		return err
	}
	ev, err := report.Evaluate(name, yTestLabels, predLabels, positive)
	if err != nil {
		return err
	}
	rep.Evaluations = append(rep.Evaluations, ev)
	return nil
}

// clusterModeled cuts a Ward dendrogram of the modeled samples and
// cross-tabulates membership against the derived class.
func clusterModeled(ds *dataset.Dataset, cfg Config, rep *Report) error {
	dist := cluster.EuclideanDistances(ds.Matrix())
	dg, err := cluster.Agglomerative(dist, cluster.Ward)
	if err != nil {
		return err
	}
	assign, err := dg.CutK(cfg.ClusterK)
	if err != nil {
		return err
	}

	rep.ClusterCounts = make(map[string]map[int]int)
	labels := ds.Labels()
	for i, c := range assign {
		if rep.ClusterCounts[labels[i]] == nil {
			rep.ClusterCounts[labels[i]] = make(map[int]int)
		}
		rep.ClusterCounts[labels[i]][c]++
	}
	return nil
}

func writePlots(cfg Config, rep *Report, scores mat.Matrix, scoreLabels []string, forest *ensemble.RandomForest, encoder *preprocessing.LabelEncoder) error {
	if err := report.ScoreScatterPlot(scores, scoreLabels, filepath.Join(cfg.PlotDir, "pca_scores.png")); err != nil {
		return err
	}
	if err := report.SweepHeatmapPlot(rep.Sweep, filepath.Join(cfg.PlotDir, "sweep_heatmap.png")); err != nil {
		return err
	}
	return report.OOBTrendPlot(forest.OOBTrend(), encoder.ClassNames, filepath.Join(cfg.PlotDir, "forest_oob.png"))
}

func exportResults(cfg Config, rep *Report) error {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.CreateRun(rep.RunID, cfg.Seed, rep.NModeled, len(rep.Analytes)); err != nil {
		return err
	}
	for _, e := range rep.Evaluations {
		if err := st.SaveEvaluation(rep.RunID, e); err != nil {
			return err
		}
	}
	return st.SaveSweep(rep.RunID, rep.Sweep)
}

func codesToVector(codes []int) *mat.Dense {
	y := mat.NewDense(len(codes), 1, nil)
	for i, c := range codes {
		y.Set(i, 0, float64(c))
	}
	return y
}

func sortedKeys(m map[string]map[int]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
