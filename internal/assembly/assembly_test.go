package assembly

import (
	"errors"
	"math"
	"testing"

	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/pivot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameWith(t *testing.T, values ...float64) *table.Frame {
	t.Helper()
	f := table.NewFrame()
	hours := make([]float64, len(values))
	for i := range hours {
		hours[i] = float64(i)
	}
	require.NoError(t, f.AddNumeric(pivot.IndexColumn, hours))
	require.NoError(t, f.AddNumeric("Biomass (a.u.)", values))
	return f
}

func TestAssembleTagsColumnsAndResources(t *testing.T) {
	a := New(Options{CollectionName: "plate", Names: NameByWell})
	medium := &experiment.MediumTag{Name: "M1", Composition: map[string]float64{"Glucose": 20}}

	coll, err := a.Assemble([]Input{{
		Key:    experiment.Key{Batch: "plate_0", Sample: "A01"},
		Table:  frameWith(t, 1, 2, 3),
		Medium: medium,
	}})
	require.NoError(t, err)
	require.Equal(t, 1, coll.Len())

	res, ok := coll.Get("A1")
	require.True(t, ok)
	assert.Nil(t, res.Missing)
	assert.Equal(t, "M1", res.Tags()[experiment.TagMedium])

	idx, ok := res.IndexColumn()
	require.True(t, ok)
	assert.Equal(t, pivot.IndexColumn, idx)
	assert.Equal(t, []string{"Biomass (a.u.)"}, res.DataColumns())
	assert.Equal(t, "a.u.", res.Columns["Biomass (a.u.)"].Unit)
	assert.Equal(t, "Biomass", res.Columns["Biomass (a.u.)"].ColumnName)
}

func TestAssemblePlaceholderForExpectedWell(t *testing.T) {
	a := New(Options{Names: NameByWell})
	nan := math.NaN()

	coll, err := a.Assemble([]Input{
		{Key: experiment.Key{Batch: "p", Sample: "B02"}, Table: frameWith(t, nan, nan), Expected: true},
		{Key: experiment.Key{Batch: "p", Sample: "B03"}, Expected: true,
			Missing: &experiment.MissingValueTag{Labels: []experiment.MissingKind{experiment.MissingInfo, experiment.MissingMedium}}},
		{Key: experiment.Key{Batch: "p", Sample: "B04"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B3"}, coll.Names())

	b2, _ := coll.Get("B2")
	assert.True(t, b2.Table.Empty())
	assert.Equal(t, "raw_data", b2.Missing.String())

	b3, _ := coll.Get("B3")
	assert.Equal(t, "info, raw_data, medium", b3.Missing.String())
}

func TestBuildDropsEmptyColumns(t *testing.T) {
	nan := math.NaN()
	f := frameWith(t, 1, 2)
	require.NoError(t, f.AddNumeric("pH", []float64{nan, nan}))
	require.NoError(t, f.AddText("Comment", []string{"", ""}))

	res, ok := New(Options{Names: NameByWell}).Build(Input{Key: experiment.Key{Batch: "p", Sample: "B01"}, Table: f})
	require.True(t, ok)
	assert.Equal(t, []string{pivot.IndexColumn, "Biomass (a.u.)"}, res.Table.Names())
	assert.NotContains(t, res.Columns, "pH")
	assert.Len(t, res.Columns, 2)
	// the input is left alone
	assert.Equal(t, 4, f.NumColumns())

	idxOnly := table.NewFrame()
	require.NoError(t, idxOnly.AddNumeric(pivot.IndexColumn, []float64{nan}))
	require.NoError(t, idxOnly.AddNumeric("OD", []float64{3}))
	res, ok = New(Options{}).Build(Input{Key: experiment.Key{Batch: "E1"}, Table: idxOnly})
	require.True(t, ok)
	assert.Equal(t, []string{pivot.IndexColumn, "OD"}, res.Table.Names())
}

func TestAssemblePlatePrefixAndUniqueness(t *testing.T) {
	a := New(Options{Names: NameByWell, PrefixPlate: true})
	coll, err := a.Assemble([]Input{
		{Key: experiment.Key{Batch: "P1", Sample: "A01"}, Plate: "P1", Table: frameWith(t, 1)},
		{Key: experiment.Key{Batch: "P2", Sample: "A01"}, Plate: "P2", Table: frameWith(t, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1_A1", "P2_A1"}, coll.Names())

	unprefixed := New(Options{Names: NameByWell})
	_, err = unprefixed.Assemble([]Input{
		{Key: experiment.Key{Batch: "P1", Sample: "A01"}, Table: frameWith(t, 1)},
		{Key: experiment.Key{Batch: "P2", Sample: "A1"}, Table: frameWith(t, 2)},
	})
	assert.True(t, errors.Is(err, core.ErrDuplicateResource))
}

func TestNameByKey(t *testing.T) {
	a := New(Options{})
	assert.Equal(t, "E12_F3", a.Name(Input{Key: experiment.Key{Batch: "E12", Sample: "F3"}}))
	assert.Equal(t, "Essai_2_F1", a.Name(Input{Key: experiment.Key{Batch: "Essai  2", Sample: "F1"}}))
	assert.Equal(t, "E7", a.Name(Input{Key: experiment.Key{Batch: "E7"}}))
}

func TestWithLabelKeepsOrder(t *testing.T) {
	tag := &experiment.MissingValueTag{Labels: []experiment.MissingKind{experiment.MissingInfo, experiment.MissingFollowUp}}
	out := WithLabel(tag, experiment.MissingRawData)
	assert.Equal(t, "info, raw_data, follow_up", out.String())
	assert.Equal(t, "info, follow_up", tag.String())

	assert.Same(t, tag, WithLabel(tag, experiment.MissingInfo))
	assert.Equal(t, "raw_data", WithLabel(nil, experiment.MissingRawData).String())
}

func TestFrameFromRecords(t *testing.T) {
	rec := table.NewRecords(
		[]string{"ESSAI", "Temps (h)", "pH", "OD (a.u.)"},
		[][]string{
			{"E1", "0", "7,1", "x"},
			{"E1", "1,5", "", "0,4"},
			{"E1", "n/a", "6.9", "0.8"},
		},
	)
	f, err := FrameFromRecords(rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"ESSAI", "Temps (h)", "pH", "OD (a.u.)"}, f.Names())

	essai, _ := f.Column("ESSAI")
	assert.Equal(t, table.KindText, essai.Kind)

	temps, _ := f.Column("Temps (h)")
	assert.Equal(t, 1.5, temps.Numeric[1])
	assert.True(t, math.IsNaN(temps.Numeric[2]))

	ph, _ := f.Column("pH")
	assert.Equal(t, []float64{7.1, 0, 6.9}, ph.Numeric)

	od, _ := f.Column("OD (a.u.)")
	assert.Equal(t, []float64{0, 0.4, 0.8}, od.Numeric)

	dropped, err := FrameFromRecords(rec, "ESSAI")
	require.NoError(t, err)
	assert.Equal(t, 3, dropped.NumColumns())
}

func TestMediumTagFrom(t *testing.T) {
	rec := table.NewRecords([]string{"MILIEU", "Glucose", "NaNO3"}, [][]string{{"M1", "20,5", ""}})
	tag := MediumTagFrom("M1", rec, "MILIEU")
	assert.Equal(t, "M1", tag.Name)
	assert.Equal(t, map[string]float64{"Glucose": 20.5, "NaNO3": 0}, tag.Composition)

	assert.Nil(t, MediumTagFrom("", rec, "MILIEU"))
	assert.Empty(t, MediumTagFrom("M2", nil, "MILIEU").Composition)
}
