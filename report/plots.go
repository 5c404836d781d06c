package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cytoprofile/cytoprofile/ensemble"
	"github.com/cytoprofile/cytoprofile/modelselection"
	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

var classColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
}

// ScoreScatterPlot saves a PC1/PC2 scatter of the score matrix, one series
// per class label.
func ScoreScatterPlot(scores mat.Matrix, labels []string, path string) error {
	n, c := scores.Dims()
	if c < 2 {
		return errors.NewValueError("ScoreScatterPlot", "need at least two components")
	}
	if len(labels) != n {
		return errors.NewDimensionError("ScoreScatterPlot", n, len(labels), 0)
	}

	p := plot.New()
	p.Title.Text = "PCA of cytokine profiles"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	byClass := make(map[string]plotter.XYs)
	var order []string
	for i := 0; i < n; i++ {
		if _, ok := byClass[labels[i]]; !ok {
			order = append(order, labels[i])
		}
		byClass[labels[i]] = append(byClass[labels[i]], plotter.XY{
			X: scores.At(i, 0),
			Y: scores.At(i, 1),
		})
	}

	for ci, class := range order {
		s, err := plotter.NewScatter(byClass[class])
		if err != nil {
			return errors.WithStack(err)
		}
		s.GlyphStyle.Color = classColors[ci%len(classColors)]
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
		p.Legend.Add(class, s)
	}

	return errors.WithStack(p.Save(6*vg.Inch, 4*vg.Inch, path))
}

// sweepGrid adapts a scored sweep to the plotter heat-map interface.
type sweepGrid struct {
	g *modelselection.GridSearch
}

func (s sweepGrid) Dims() (int, int) { return len(s.g.Lambdas), len(s.g.Alphas) }
func (s sweepGrid) X(c int) float64  { return math.Log10(s.g.Lambdas[c]) }
func (s sweepGrid) Y(r int) float64  { return s.g.Alphas[r] }
func (s sweepGrid) Z(c, r int) float64 {
	v := s.g.CellAt(r, c).MeanAccuracy
	if math.IsNaN(v) {
		// Failed cells render at the bottom of the scale.
		return 0
	}
	return v
}

// SweepHeatmapPlot saves the sweep accuracies as an alpha × log-lambda
// heat map.
func SweepHeatmapPlot(g *modelselection.GridSearch, path string) error {
	if len(g.Cells) == 0 {
		return errors.NewValueError("SweepHeatmapPlot", "sweep has not been fitted")
	}

	p := plot.New()
	p.Title.Text = "Elastic-net sweep: mean CV accuracy"
	p.X.Label.Text = "log10(lambda)"
	p.Y.Label.Text = "alpha"

	pal := moreland.SmoothBlueRed().Palette(255)
	p.Add(plotter.NewHeatMap(sweepGrid{g: g}, pal))

	return errors.WithStack(p.Save(6*vg.Inch, 4*vg.Inch, path))
}

// OOBTrendPlot saves the forest's cumulative out-of-bag error against the
// number of trees, one line overall plus one per class.
func OOBTrendPlot(trend []ensemble.OOBPoint, classNames []string, path string) error {
	if len(trend) == 0 {
		return errors.NewValueError("OOBTrendPlot", "empty error trend")
	}

	p := plot.New()
	p.Title.Text = "Random forest OOB error"
	p.X.Label.Text = "trees"
	p.Y.Label.Text = "error rate"

	addLine := func(name string, ci int, pick func(ensemble.OOBPoint) float64) error {
		var pts plotter.XYs
		for _, pt := range trend {
			v := pick(pt)
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(pt.Trees), Y: v})
		}
		if len(pts) == 0 {
			return nil
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return errors.WithStack(err)
		}
		l.LineStyle.Color = classColors[ci%len(classColors)]
		p.Add(l)
		p.Legend.Add(name, l)
		return nil
	}

	if err := addLine("OOB", 0, func(pt ensemble.OOBPoint) float64 { return pt.Overall }); err != nil {
		return err
	}
	nClasses := len(trend[0].PerClass)
	for c := 0; c < nClasses; c++ {
		name := fmt.Sprintf("class %d", c)
		if c < len(classNames) {
			name = classNames[c]
		}
		c := c
		if err := addLine(name, c+1, func(pt ensemble.OOBPoint) float64 { return pt.PerClass[c] }); err != nil {
			return err
		}
	}

	return errors.WithStack(p.Save(6*vg.Inch, 4*vg.Inch, path))
}
