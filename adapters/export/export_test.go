package export

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/classify"
	apperrors "fermload/internal/errors"
	"fermload/internal/venn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleCollection(t *testing.T) *experiment.Collection {
	t.Helper()
	f := table.NewFrame()
	require.NoError(t, f.AddNumeric("Temps_en_h", []float64{0, 0.5}))
	require.NoError(t, f.AddNumeric("Biomass (a.u.)", []float64{1.25, math.NaN()}))

	coll := experiment.NewCollection("plate")
	require.NoError(t, coll.Add(&experiment.Resource{
		Name:    "A1",
		Key:     experiment.Key{Batch: "plate_0", Sample: "A01"},
		Table:   f,
		Columns: classify.TagColumns(f),
		Medium:  &experiment.MediumTag{Name: "M1", Composition: map[string]float64{"Glucose": 20}},
	}))
	require.NoError(t, coll.Add(&experiment.Resource{
		Name:    "B2",
		Key:     experiment.Key{Batch: "plate_0", Sample: "B02"},
		Table:   table.NewFrame(),
		Missing: &experiment.MissingValueTag{Labels: []experiment.MissingKind{experiment.MissingRawData}},
	}))
	return coll
}

func TestWriteFrameCSV(t *testing.T) {
	coll := sampleCollection(t)
	r, _ := coll.Get("A1")

	var buf bytes.Buffer
	require.NoError(t, WriteFrameCSV(&buf, r.Table))
	assert.Equal(t, "Temps_en_h,Biomass (a.u.)\n0,1.25\n0.5,\n", buf.String())
}

func TestWriteDirectoryAndManifest(t *testing.T) {
	dir := t.TempDir()
	coll := sampleCollection(t)

	m, err := WriteDirectory(coll, dir)
	require.NoError(t, err)
	require.Len(t, m.Resources, 2)

	assert.FileExists(t, filepath.Join(dir, "A1.csv"))
	assert.FileExists(t, filepath.Join(dir, "B2.csv"))

	back, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "plate", back.Collection)
	assert.Equal(t, "M1", back.Resources[0].Medium.Name)
	assert.Equal(t, "true", back.Resources[0].Columns["Temps_en_h"][experiment.TagIsIndexColumn])
	assert.Equal(t, "a.u.", back.Resources[0].Columns["Biomass (a.u.)"][experiment.TagUnit])
	assert.Equal(t, "raw_data", back.Resources[1].Tags[experiment.TagMissingValue])
	assert.NotContains(t, back.Resources[0].Tags, experiment.TagMissingValue)

	_, err = ReadManifest(t.TempDir())
	assert.Error(t, err)
}

func TestWriteDirectoryRejectsFileCollision(t *testing.T) {
	coll := experiment.NewCollection("c")
	for _, name := range []string{"E1/F1", "E1_F1"} {
		require.NoError(t, coll.Add(&experiment.Resource{Name: name, Table: table.NewFrame()}))
	}
	dir := filepath.Join(t.TempDir(), "out")
	_, err := WriteDirectory(coll, dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateResource))
	assert.Equal(t, apperrors.CodeValidationError, apperrors.GetCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "E1_F1.csv"))

	folded := experiment.NewCollection("c")
	require.NoError(t, folded.Add(&experiment.Resource{Name: "a1", Table: table.NewFrame()}))
	require.NoError(t, folded.Add(&experiment.Resource{Name: "A1", Table: table.NewFrame()}))
	_, err = WriteDirectory(folded, t.TempDir())
	assert.True(t, errors.Is(err, core.ErrDuplicateResource))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "P1_A1.csv", FileName("P1_A1"))
	assert.Equal(t, "E1_F_2.csv", FileName("E1/F:2"))
}

func TestSheetNames(t *testing.T) {
	long := strings.Repeat("x", 40)
	got := SheetNames([]string{"A1", "a1", long, long + "y", "tags", "summary"}, "summary")
	assert.Equal(t, "A1", got["A1"])
	assert.Equal(t, "a1~2", got["a1"])
	assert.Len(t, got[long], 31)
	assert.Equal(t, strings.Repeat("x", 29)+"~2", got[long+"y"])
	assert.Equal(t, "tags~2", got["tags"])
	assert.Equal(t, "summary~2", got["summary"])
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xlsx")
	coll := sampleCollection(t)

	stats := table.NewFrame()
	require.NoError(t, stats.AddText("resource", []string{"A1"}))
	require.NoError(t, WriteWorkbook(path, coll, map[string]*table.Frame{"summary": stats}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"A1", "B2", "tags", "summary"}, f.GetSheetList())

	rows, err := f.GetRows("A1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Temps_en_h", "Biomass (a.u.)"}, rows[0])
	assert.Equal(t, "1.25", rows[1][1])

	tags, err := f.GetRows("tags")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "M1", tags[1][5])
	assert.Equal(t, "raw_data", tags[2][6])
}

func TestMediumTable(t *testing.T) {
	rec := table.NewRecords(
		[]string{"MILIEU", "Glucose (g/L)", "NaNO3 (g/L)"},
		[][]string{{"M1", "20,5", ""}, {"M2", "n/a", "1.2"}},
	)
	f, err := MediumTable(rec, "MILIEU")
	require.NoError(t, err)
	assert.Equal(t, []string{MediumColumn, "Glucose (g/L)", "NaNO3 (g/L)"}, f.Names())

	name, _ := f.Column(MediumColumn)
	assert.Equal(t, []string{"M1", "M2"}, name.Text)
	glc, _ := f.Column("Glucose (g/L)")
	assert.Equal(t, []float64{20.5, 0}, glc.Numeric)
	no3, _ := f.Column("NaNO3 (g/L)")
	assert.Equal(t, []float64{0, 1.2}, no3.Numeric)

	empty, err := MediumTable(nil, "MILIEU")
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestWriteVenn(t *testing.T) {
	r, err := venn.ComputeRegions([]venn.NamedSet{venn.NewSet("metadata", "A01"), venn.NewSet("raw_data", "A01", "B01")})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "venn.png")
	require.NoError(t, WriteVenn(path, r, venn.DefaultRenderOptions()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestTagCollectionFromManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteDirectory(sampleCollection(t), dir)
	require.NoError(t, err)
	m, err := ReadManifest(dir)
	require.NoError(t, err)

	coll, err := TagCollection(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, coll.Names())

	b2, _ := coll.Get("B2")
	assert.Equal(t, "B02", b2.Key.Sample)
	assert.True(t, b2.Missing.Has(experiment.MissingRawData))

	sets := venn.SetsFromCollection(coll, []experiment.SourceKind{experiment.SourceInfo, experiment.SourceRawData})
	regions, err := venn.ComputeRegions(sets)
	require.NoError(t, err)
	assert.Equal(t, 1, regions.AB)
	assert.Equal(t, 1, regions.OnlyA)
}
