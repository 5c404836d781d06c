package dataset

import (
	"encoding/csv"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
	"github.com/cytoprofile/cytoprofile/pkg/log"
)

// Loader reads the two cohort input tables and joins them into a Dataset.
// Paths are explicit; there is no working-directory state.
type Loader struct {
	// MetadataPath is the tab-separated clinical metadata table with
	// columns sample_id, karyotype, sex, source, weight_kg, height_cm.
	MetadataPath string

	// MeasurementsPath is the tab-separated long-format measurement table
	// with columns sample_id, analyte, value.
	MeasurementsPath string

	// LogTransform applies the natural log to positive measurement values.
	// Non-positive values become NaN. Defaults to true via NewLoader.
	LogTransform bool

	logger log.Logger
}

// NewLoader creates a Loader for the given input files with log
// transformation enabled.
func NewLoader(metadataPath, measurementsPath string) *Loader {
	return &Loader{
		MetadataPath:     metadataPath,
		MeasurementsPath: measurementsPath,
		LogTransform:     true,
		logger:           log.GetLoggerWithName("dataset.Loader"),
	}
}

// Load reads both tables, joins them on the sample identifier, and pivots
// the long-format measurements into the samples × analytes matrix.
// Unjoinable rows are counted and surfaced as a JoinMismatchWarning, never
// silently dropped. Duplicate (sample, analyte) rows are averaged.
func (l *Loader) Load() (*Dataset, error) {
	meta, err := readTable(l.MetadataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading metadata table %s", l.MetadataPath)
	}
	meas, err := readTable(l.MeasurementsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading measurement table %s", l.MeasurementsPath)
	}

	samples, order, err := parseMetadata(meta)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.NewValueError("Loader.Load", "metadata table has no samples")
	}

	idCol, err := meas.column("sample_id")
	if err != nil {
		return nil, err
	}
	analyteCol, err := meas.column("analyte")
	if err != nil {
		return nil, err
	}
	valueCol, err := meas.column("value")
	if err != nil {
		return nil, err
	}

	// First pass: collect the analyte panel and the per-cell value sums.
	type cell struct {
		sum   float64
		count int
	}
	analyteSet := make(map[string]bool)
	cells := make(map[string]map[string]*cell) // sample -> analyte -> cell
	unmatched := 0
	for _, row := range meas.rows {
		id := row[idCol]
		analyte := row[analyteCol]
		if _, ok := samples[id]; !ok {
			unmatched++
			continue
		}
		analyteSet[analyte] = true
		v, ok := parseValue(row[valueCol])
		if !ok {
			continue
		}
		byAnalyte := cells[id]
		if byAnalyte == nil {
			byAnalyte = make(map[string]*cell)
			cells[id] = byAnalyte
		}
		c := byAnalyte[analyte]
		if c == nil {
			c = &cell{}
			byAnalyte[analyte] = c
		}
		c.sum += v
		c.count++
	}

	if unmatched > 0 {
		w := errors.NewJoinMismatchWarning("measurements", unmatched, len(meas.rows))
		errors.Warn(w)
		l.logger.Warn("measurement rows without matching metadata", "unmatched", unmatched, "total", len(meas.rows))
	}

	analytes := make([]string, 0, len(analyteSet))
	for a := range analyteSet {
		analytes = append(analytes, a)
	}
	sort.Strings(analytes)
	if len(analytes) == 0 {
		return nil, errors.NewValueError("Loader.Load", "no joinable measurement rows; feature matrix is empty")
	}

	// Second pass: pivot into per-sample measurement vectors.
	withoutMeasurements := 0
	ds := &Dataset{Analytes: analytes}
	for _, id := range order {
		s := samples[id]
		s.Measurements = make([]float64, len(analytes))
		byAnalyte := cells[id]
		if byAnalyte == nil {
			withoutMeasurements++
		}
		for j, a := range analytes {
			v := math.NaN()
			if c, ok := byAnalyte[a]; ok && c.count > 0 {
				v = c.sum / float64(c.count)
				if l.LogTransform {
					if v > 0 {
						v = math.Log(v)
					} else {
						v = math.NaN()
					}
				}
			}
			s.Measurements[j] = v
		}
		ds.Samples = append(ds.Samples, *s)
	}

	if withoutMeasurements > 0 {
		w := errors.NewJoinMismatchWarning("metadata", withoutMeasurements, len(order))
		errors.Warn(w)
		l.logger.Warn("metadata samples without measurements", "unmatched", withoutMeasurements, "total", len(order))
	}

	l.logger.Info("cohort loaded",
		log.SamplesKey, ds.N(),
		log.FeaturesKey, ds.P(),
	)
	return ds, nil
}

// table is a parsed delimited file with a header index.
type table struct {
	header map[string]int
	rows   [][]string
	path   string
}

func (t *table) column(name string) (int, error) {
	if idx, ok := t.header[name]; ok {
		return idx, nil
	}
	return 0, errors.Newf("table %s is missing required column %q", t.path, name)
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'

	// The header fixes the field count; a ragged row fails here with the
	// offending line number rather than corrupting the join downstream.
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("readTable", "file has no header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &table{header: header, rows: records[1:], path: path}, nil
}

func parseMetadata(t *table) (map[string]*Sample, []string, error) {
	idCol, err := t.column("sample_id")
	if err != nil {
		return nil, nil, err
	}
	karyCol, err := t.column("karyotype")
	if err != nil {
		return nil, nil, err
	}
	sexCol, err := t.column("sex")
	if err != nil {
		return nil, nil, err
	}
	sourceCol, err := t.column("source")
	if err != nil {
		return nil, nil, err
	}
	weightCol, err := t.column("weight_kg")
	if err != nil {
		return nil, nil, err
	}
	heightCol, err := t.column("height_cm")
	if err != nil {
		return nil, nil, err
	}

	samples := make(map[string]*Sample)
	var order []string
	for _, row := range t.rows {
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		if _, dup := samples[id]; dup {
			return nil, nil, errors.Newf("duplicate sample identifier %q in metadata", id)
		}
		weight := math.NaN()
		if v, ok := parseValue(row[weightCol]); ok {
			weight = v
		}
		height := math.NaN()
		if v, ok := parseValue(row[heightCol]); ok {
			height = v
		}
		samples[id] = &Sample{
			ID:        id,
			Karyotype: row[karyCol],
			Sex:       row[sexCol],
			Source:    row[sourceCol],
			WeightKG:  weight,
			HeightCM:  height,
			BMI:       math.NaN(),
		}
		order = append(order, id)
	}
	return samples, order, nil
}

// parseValue parses a numeric field. Empty strings and the common NA
// spellings are treated as missing.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "na", "NaN", "nan", "NULL", "null":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
