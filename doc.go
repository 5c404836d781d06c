// Package cytoprofile is an analysis toolkit for exploring associations
// between cytokine abundance profiles and clinical traits in a cohort study.
//
// The toolkit ingests tab-separated clinical metadata and long-format
// analyte measurements, joins them into a samples-by-analytes matrix of
// log-transformed concentrations, and runs a fixed sequence of standard
// statistical procedures: PCA-based outlier screening, hierarchical
// clustering, penalized (ridge/lasso/elastic-net) binomial regression with
// cross-validated model selection, a repeated-cross-validation grid search
// over the elastic-net hyperparameters, and a random-forest classifier with
// out-of-bag diagnostics and variable importance.
//
// # Quick Start
//
//	cfg := pipeline.DefaultConfig()
//	cfg.MetadataPath = "meta.tsv"
//	cfg.MeasurementsPath = "cytokines.tsv"
//	cfg.Seed = 42
//
//	rep, err := pipeline.Run(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Summary())
//
// # Packages
//
// The module is organized into several packages:
//
//   - dataset: cohort loading, sample entities, BMI label derivation
//   - preprocessing: standardization and label encoding
//   - decomposition: PCA and score-based outlier filtering
//   - cluster: agglomerative and divisive hierarchical clustering
//   - linear: elastic-net binomial regression with cross-validation
//   - ensemble: random-forest classification
//   - metrics: confusion counts, accuracy/precision/recall, AUC
//   - modelselection: train/test splitting, k-fold CV, grid search
//   - report: text summaries and PNG plots of the results
//   - store: optional SQLite export of run results
//   - pipeline: end-to-end orchestration of the analysis stages
package cytoprofile
