// Package summary computes per-column descriptive statistics of an
// output collection.
package summary

import (
	"math"

	"fermload/domain/experiment"
	"fermload/domain/table"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats describes one data column of one resource
type ColumnStats struct {
	Resource string  `json:"resource" db:"resource"`
	Column   string  `json:"column" db:"column_name"`
	Unit     string  `json:"unit,omitempty" db:"unit"`
	Count    int     `json:"count" db:"count"`
	Missing  int     `json:"missing" db:"missing"`
	Mean     float64 `json:"mean" db:"mean"`
	StdDev   float64 `json:"std_dev" db:"std_dev"`
	Min      float64 `json:"min" db:"min_value"`
	Q25      float64 `json:"q25" db:"q25"`
	Median   float64 `json:"median" db:"median"`
	Q75      float64 `json:"q75" db:"q75"`
	Max      float64 `json:"max" db:"max_value"`
	// Slope is the least-squares trend per index unit (hour); NaN without
	// an index column or with fewer than two points
	Slope float64 `json:"slope" db:"slope"`
}

// Collection computes statistics for every data column of every resource,
// ordered by resource then column
func Collection(coll *experiment.Collection) []ColumnStats {
	var out []ColumnStats
	for _, r := range coll.Resources() {
		out = append(out, Resource(r)...)
	}
	return out
}

// Resource computes statistics for the data columns of r
func Resource(r *experiment.Resource) []ColumnStats {
	var index []float64
	if name, ok := r.IndexColumn(); ok {
		if col, ok := r.Table.Column(name); ok && col.Kind == table.KindNumeric {
			index = col.Numeric
		}
	}

	var out []ColumnStats
	for _, name := range r.DataColumns() {
		col, ok := r.Table.Column(name)
		if !ok || col.Kind != table.KindNumeric {
			continue
		}
		cs := Describe(col.Numeric, index)
		cs.Resource = r.Name
		cs.Column = r.Columns[name].ColumnName
		cs.Unit = r.Columns[name].Unit
		out = append(out, cs)
	}
	return out
}

// Describe summarizes values, skipping NaN. index, when non-nil, is the
// x axis used for the trend.
func Describe(values, index []float64) ColumnStats {
	present := make([]float64, 0, len(values))
	var xs, ys []float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		present = append(present, v)
		if index != nil && i < len(index) && !math.IsNaN(index[i]) {
			xs = append(xs, index[i])
			ys = append(ys, v)
		}
	}

	nan := math.NaN()
	cs := ColumnStats{
		Count:   len(present),
		Missing: len(values) - len(present),
		Mean:    nan, StdDev: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan, Slope: nan,
	}
	if len(present) == 0 {
		return cs
	}

	cs.Min = floats.Min(present)
	cs.Max = floats.Max(present)
	if len(present) > 1 {
		cs.Mean, cs.StdDev = stat.MeanStdDev(present, nil)
	} else {
		cs.Mean, cs.StdDev = present[0], 0
	}

	data := stats.Float64Data(present)
	if m, err := data.Median(); err == nil {
		cs.Median = m
	}
	if q, err := data.Percentile(25); err == nil {
		cs.Q25 = q
	}
	if q, err := data.Percentile(75); err == nil {
		cs.Q75 = q
	}

	if len(xs) >= 2 && floats.Max(xs) > floats.Min(xs) {
		_, beta := stat.LinearRegression(xs, ys, nil, false)
		cs.Slope = beta
	}
	return cs
}

// Frame lays the statistics out as a table for export
func Frame(rows []ColumnStats) (*table.Frame, error) {
	n := len(rows)
	resource := make([]string, n)
	column := make([]string, n)
	unit := make([]string, n)
	numeric := map[string][]float64{}
	order := []string{"count", "missing", "mean", "std_dev", "min", "q25", "median", "q75", "max", "slope"}
	for _, name := range order {
		numeric[name] = make([]float64, n)
	}

	for i, r := range rows {
		resource[i], column[i], unit[i] = r.Resource, r.Column, r.Unit
		numeric["count"][i] = float64(r.Count)
		numeric["missing"][i] = float64(r.Missing)
		numeric["mean"][i] = r.Mean
		numeric["std_dev"][i] = r.StdDev
		numeric["min"][i] = r.Min
		numeric["q25"][i] = r.Q25
		numeric["median"][i] = r.Median
		numeric["q75"][i] = r.Q75
		numeric["max"][i] = r.Max
		numeric["slope"][i] = r.Slope
	}

	f := table.NewFrame()
	if err := f.AddText("resource", resource); err != nil {
		return nil, err
	}
	if err := f.AddText("column", column); err != nil {
		return nil, err
	}
	if err := f.AddText("unit", unit); err != nil {
		return nil, err
	}
	for _, name := range order {
		if err := f.AddNumeric(name, numeric[name]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
