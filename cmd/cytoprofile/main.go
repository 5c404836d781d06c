// Command cytoprofile runs the cytokine cohort analysis end to end and
// prints the evaluation report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cytoprofile/cytoprofile/pipeline"
	"github.com/cytoprofile/cytoprofile/pkg/log"
)

func main() {
	cfg := pipeline.DefaultConfig()

	flag.StringVar(&cfg.MetadataPath, "metadata", "", "path to the tab-separated clinical metadata table (required)")
	flag.StringVar(&cfg.MeasurementsPath, "measurements", "", "path to the tab-separated long-format measurement table (required)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the split, cross-validation, and forest")
	flag.Float64Var(&cfg.TrainFraction, "train-fraction", cfg.TrainFraction, "fraction of samples assigned to the training partition")
	flag.Float64Var(&cfg.OutlierThreshold, "outlier-threshold", cfg.OutlierThreshold, "PC1 score below which a sample is dropped")
	flag.Float64Var(&cfg.BMILower, "bmi-lower", cfg.BMILower, "BMI at or below this value is labeled normal")
	flag.Float64Var(&cfg.BMIUpper, "bmi-upper", cfg.BMIUpper, "BMI at or above this value is labeled obese")
	flag.IntVar(&cfg.ForestTrees, "trees", cfg.ForestTrees, "number of trees in the random forest")
	flag.StringVar(&cfg.PlotDir, "plot-dir", "", "directory for PNG plots (omit to skip plotting)")
	flag.StringVar(&cfg.StorePath, "store", "", "SQLite database for result export (omit to skip)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if cfg.MetadataPath == "" || cfg.MeasurementsPath == "" {
		fmt.Fprintln(os.Stderr, "both -metadata and -measurements are required")
		flag.Usage()
		os.Exit(2)
	}

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	log.SetupConsole(level)

	if cfg.PlotDir != "" {
		if err := os.MkdirAll(cfg.PlotDir, 0o755); err != nil {
			log.GetLogger().Error("creating plot directory", "error", err)
			os.Exit(1)
		}
	}

	rep, err := pipeline.Run(cfg)
	if err != nil {
		log.GetLogger().Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	fmt.Print(rep.Summary())
}
