package summary

import (
	"math"
	"testing"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/classify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	nan := math.NaN()
	cs := Describe([]float64{1, nan, 3, 5}, []float64{0, 1, 2, 4})

	assert.Equal(t, 3, cs.Count)
	assert.Equal(t, 1, cs.Missing)
	assert.InDelta(t, 3.0, cs.Mean, 1e-9)
	assert.InDelta(t, 2.0, cs.StdDev, 1e-9)
	assert.Equal(t, 1.0, cs.Min)
	assert.Equal(t, 5.0, cs.Max)
	assert.Equal(t, 3.0, cs.Median)
	assert.InDelta(t, 1.0, cs.Slope, 1e-9)
}

func TestDescribeDegenerate(t *testing.T) {
	empty := Describe([]float64{math.NaN()}, nil)
	assert.Zero(t, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
	assert.True(t, math.IsNaN(empty.Slope))

	single := Describe([]float64{4}, []float64{0})
	assert.Equal(t, 4.0, single.Mean)
	assert.Equal(t, 0.0, single.StdDev)
	assert.True(t, math.IsNaN(single.Slope))
}

func TestCollectionSkipsIndexAndMetadata(t *testing.T) {
	f := table.NewFrame()
	require.NoError(t, f.AddNumeric("Temps_en_h", []float64{0, 1, 2}))
	require.NoError(t, f.AddText("MILIEU", []string{"M1", "M1", "M1"}))
	require.NoError(t, f.AddNumeric("Biomass (a.u.)", []float64{1, 2, 3}))

	coll := experiment.NewCollection("run")
	require.NoError(t, coll.Add(&experiment.Resource{Name: "A1", Table: f, Columns: classify.TagColumns(f)}))

	rows := Collection(coll)
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].Resource)
	assert.Equal(t, "Biomass", rows[0].Column)
	assert.Equal(t, "a.u.", rows[0].Unit)
	assert.InDelta(t, 1.0, rows[0].Slope, 1e-9)

	frame, err := Frame(rows)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.NumRows())
	assert.Equal(t, 13, frame.NumColumns())
}
