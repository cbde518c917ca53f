// Package report builds and renders detection run artifacts: terminal
// tables, JSON and YAML documents, HTML plots and archived result files.
package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/spikefang/pkg/anomaly"
)

// Anomaly is one flagged observation.
type Anomaly struct {
	Index    int      `json:"index" yaml:"index"`
	Value    float64  `json:"value" yaml:"value"`
	Expected *float64 `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// Report is the serializable outcome of one detection run.
type Report struct {
	Series      string    `json:"series" yaml:"series"`
	Period      int       `json:"period" yaml:"period"`
	Points      int       `json:"points" yaml:"points"`
	Windows     int       `json:"windows" yaml:"windows"`
	Anomalies   []Anomaly `json:"anomalies" yaml:"anomalies"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Build assembles a report from a detection result over the given values.
func Build(series string, values []float64, period int, result *anomaly.Result) *Report {
	r := &Report{
		Series:      series,
		Period:      period,
		Points:      len(values),
		Windows:     result.Windows,
		Anomalies:   make([]Anomaly, 0, len(result.Indices)),
		GeneratedAt: time.Now().UTC(),
	}

	for i, idx := range result.Indices {
		a := Anomaly{Index: idx, Value: values[idx]}
		if result.Expected != nil {
			expected := result.Expected[i]
			a.Expected = &expected
		}

		r.Anomalies = append(r.Anomalies, a)
	}

	return r
}

// Indices returns the flagged positions in ascending order.
func (r *Report) Indices() []int {
	indices := make([]int, len(r.Anomalies))
	for i, a := range r.Anomalies {
		indices[i] = a.Index
	}

	return indices
}

// Comparison separates the anomalies of two runs into shared and exclusive
// positions.
type Comparison struct {
	Added   []int `json:"added"`
	Removed []int `json:"removed"`
	Common  []int `json:"common"`
}

// Compare diffs the anomaly positions of two reports. Added lists
// positions only in the newer report, Removed positions only in the older
// one.
func Compare(older, newer *Report) *Comparison {
	was := make(map[int]struct{}, len(older.Anomalies))
	for _, a := range older.Anomalies {
		was[a.Index] = struct{}{}
	}

	is := make(map[int]struct{}, len(newer.Anomalies))
	for _, a := range newer.Anomalies {
		is[a.Index] = struct{}{}
	}

	cmp := &Comparison{Added: []int{}, Removed: []int{}, Common: []int{}}

	for idx := range is {
		if _, ok := was[idx]; ok {
			cmp.Common = append(cmp.Common, idx)
		} else {
			cmp.Added = append(cmp.Added, idx)
		}
	}

	for idx := range was {
		if _, ok := is[idx]; !ok {
			cmp.Removed = append(cmp.Removed, idx)
		}
	}

	slices.Sort(cmp.Added)
	slices.Sort(cmp.Removed)
	slices.Sort(cmp.Common)

	return cmp
}

// DiffText renders a character-level diff between the YAML forms of two
// reports, with terminal colors marking insertions and deletions.
func DiffText(older, newer *Report) (string, error) {
	was, err := marshalYAML(older)
	if err != nil {
		return "", fmt.Errorf("render old report: %w", err)
	}

	is, err := marshalYAML(newer)
	if err != nil {
		return "", fmt.Errorf("render new report: %w", err)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(was, is, true)

	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs)), nil
}
