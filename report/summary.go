// Package report renders the analysis outputs: printed tabular summaries
// (contingency tables, metric triples, sweep grids, importance rankings)
// and PNG plots of the PC scores, sweep accuracies, and forest error trend.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cytoprofile/cytoprofile/ensemble"
	"github.com/cytoprofile/cytoprofile/metrics"
	"github.com/cytoprofile/cytoprofile/modelselection"
)

// ModelEvaluation is one fitted model's held-out performance.
type ModelEvaluation struct {
	Name      string
	Confusion *metrics.Confusion
	Accuracy  float64
	Precision float64
	Recall    float64
}

// Evaluate scores predicted against true labels for the designated
// positive class.
func Evaluate(name string, yTrue, yPred []string, positive string) (*ModelEvaluation, error) {
	cm, err := metrics.NewConfusion(yTrue, yPred, positive)
	if err != nil {
		return nil, err
	}
	return &ModelEvaluation{
		Name:      name,
		Confusion: cm,
		Accuracy:  cm.Accuracy(),
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
	}, nil
}

// String renders the evaluation as a confusion table plus the metric
// triple. Undefined metrics print as NaN.
func (e *ModelEvaluation) String() string {
	var sb strings.Builder
	cm := e.Confusion
	fmt.Fprintf(&sb, "%s (positive class: %s)\n", e.Name, cm.Positive)
	fmt.Fprintf(&sb, "              predicted+  predicted-\n")
	fmt.Fprintf(&sb, "  actual+     %10d  %10d\n", cm.TP, cm.FN)
	fmt.Fprintf(&sb, "  actual-     %10d  %10d\n", cm.FP, cm.TN)
	fmt.Fprintf(&sb, "  accuracy=%s precision=%s recall=%s\n",
		formatMetric(e.Accuracy), formatMetric(e.Precision), formatMetric(e.Recall))
	return sb.String()
}

// FormatClassCounts renders per-class sample counts in sorted class order.
func FormatClassCounts(title string, counts map[string]int) string {
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", title)
	for _, c := range classes {
		fmt.Fprintf(&sb, "  %-12s %d\n", c, counts[c])
	}
	return sb.String()
}

// FormatSweep renders the sweep grid as alpha rows × lambda columns of
// mean accuracies, marking the selected cell.
func FormatSweep(g *modelselection.GridSearch) string {
	var sb strings.Builder
	sb.WriteString("mean CV accuracy (alpha rows x lambda columns)\n")
	sb.WriteString("  alpha\\lambda")
	for _, l := range g.Lambdas {
		fmt.Fprintf(&sb, " %8.2g", l)
	}
	sb.WriteString("\n")
	for ai, a := range g.Alphas {
		fmt.Fprintf(&sb, "  %11.1f ", a)
		for li := range g.Lambdas {
			cell := g.CellAt(ai, li)
			mark := " "
			if cell.Alpha == g.Best.Alpha && cell.Lambda == g.Best.Lambda {
				mark = "*"
			}
			fmt.Fprintf(&sb, "%7s%s", formatMetric(cell.MeanAccuracy), mark)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  selected: alpha=%.2f lambda=%.4g accuracy=%s\n",
		g.Best.Alpha, g.Best.Lambda, formatMetric(g.Best.MeanAccuracy))
	return sb.String()
}

// FormatImportance renders the top-ranked analytes of a forest importance
// ranking.
func FormatImportance(analytes []string, ranking []ensemble.FeatureImportance, top int) string {
	if top > len(ranking) {
		top = len(ranking)
	}
	var sb strings.Builder
	sb.WriteString("variable importance (mean decrease in Gini)\n")
	for i := 0; i < top; i++ {
		fi := ranking[i]
		name := fmt.Sprintf("feature %d", fi.Feature)
		if fi.Feature < len(analytes) {
			name = analytes[fi.Feature]
		}
		fmt.Fprintf(&sb, "  %2d. %-24s %.4f\n", i+1, name, fi.Importance)
	}
	return sb.String()
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.3f", v)
}
