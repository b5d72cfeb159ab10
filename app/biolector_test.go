package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fermload/adapters/export"
	"fermload/adapters/store"
	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/run"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiolectorSinglePlate(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	svc := newTestService(t, WithOutputDir(out))

	rep, err := NewBiolectorPipeline(svc).Run(context.Background(), BiolectorRequest{
		Name:   "screen",
		Plates: []PlateInput{writePlate(t, dir, "P1")},
		Venn:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, run.StatusSucceeded, rep.Run.Status)

	// A3 is an expected cultivation well without data, B1 has data but no
	// description, F8 is a reservoir
	assert.Equal(t, []string{"A1", "A2", "A3", "B1"}, rep.Collection.Names())

	a1, _ := rep.Collection.Get("A1")
	assert.Nil(t, a1.Missing)
	assert.Equal(t, "strain X", a1.Description)
	assert.Equal(t, 2, a1.Table.NumRows())
	assert.Equal(t, []string{"Temps_en_h", "Biomass", "pH"}, a1.Table.Names())

	a3, _ := rep.Collection.Get("A3")
	assert.True(t, a3.Table.Empty())
	assert.True(t, a3.Missing.Has(experiment.MissingRawData))

	b1, _ := rep.Collection.Get("B1")
	assert.True(t, b1.Missing.Has(experiment.MissingInfo))
	assert.False(t, b1.Missing.Has(experiment.MissingRawData))
	// B1 was never measured for pH
	assert.Equal(t, []string{"Temps_en_h", "Biomass"}, b1.Table.Names())
	assert.NotContains(t, b1.Columns, "pH")
	assert.Empty(t, rep.Warnings)

	require.NotNil(t, rep.Regions)
	assert.Equal(t, []string{"metadata", "raw_data"}, rep.Regions.Names)
	assert.Equal(t, 1, rep.Regions.OnlyA)
	assert.Equal(t, 1, rep.Regions.OnlyB)
	assert.Equal(t, 2, rep.Regions.AB)

	manifest, err := export.ReadManifest(rep.OutputDir)
	require.NoError(t, err)
	assert.Len(t, manifest.Resources, 4)
	for _, f := range []string{"venn.png", "report.md", "report.html", "summary.csv"} {
		_, err := os.Stat(filepath.Join(rep.OutputDir, f))
		assert.NoError(t, err, f)
	}
}

func TestBiolectorWarnsOnUndeclaredChannel(t *testing.T) {
	dir := t.TempDir()
	plate := writePlate(t, dir, "P1")
	meta := strings.Replace(plateJSON, `{"Name": "pH"}`, `{"Name": "DO"}`, 1)
	writeFile(t, filepath.Join(plate.MetadataDir, "protocol_BXT.json"), meta)

	rep, err := NewBiolectorPipeline(newTestService(t)).Run(context.Background(), BiolectorRequest{
		Name:   "screen",
		Plates: []PlateInput{plate},
	})
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "plate P1")
	assert.Contains(t, rep.Warnings[0], "pH")

	a1, _ := rep.Collection.Get("A1")
	assert.Contains(t, a1.Table.Names(), "pH")
}

func TestBiolectorMultiPlatePrefixesNames(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewBiolectorPipeline(newTestService(t)).Run(context.Background(), BiolectorRequest{
		Name:       "screen",
		Plates:     []PlateInput{writePlate(t, dir, "P1"), writePlate(t, dir, "P2")},
		PlateNames: []string{"left", "right"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, rep.Collection.Len())

	r, ok := rep.Collection.Get("right_B1")
	require.True(t, ok)
	assert.Equal(t, "right", r.Plate)
	_, ok = rep.Collection.Get("left_A1")
	assert.True(t, ok)
	assert.Empty(t, rep.OutputDir)
}

func TestBiolectorPlateNameMismatch(t *testing.T) {
	dir := t.TempDir()
	rep, err := NewBiolectorPipeline(newTestService(t)).Run(context.Background(), BiolectorRequest{
		Name:       "screen",
		Plates:     []PlateInput{writePlate(t, dir, "P1")},
		PlateNames: []string{"a", "b"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPlateNameMismatch))
	assert.True(t, core.IsFatal(err))
	assert.Equal(t, run.StatusFailed, rep.Run.Status)
}

func TestBiolectorMissingMetadataFile(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, filepath.Join(dir, "raw.csv"), plateRaw)

	_, err := NewBiolectorPipeline(newTestService(t)).Run(context.Background(), BiolectorRequest{
		Name:   "screen",
		Plates: []PlateInput{{MetadataDir: dir, RawData: raw}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMetadataFileNotFound))
}

func TestBiolectorPersistsRun(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := store.NewRunRepository(db)

	svc := newTestService(t, WithRepository(repo))
	rep, err := NewBiolectorPipeline(svc).Run(ctx, BiolectorRequest{
		Name:   "screen",
		Plates: []PlateInput{writePlate(t, t.TempDir(), "P1")},
		Venn:   true,
	})
	require.NoError(t, err)

	stored, err := repo.GetRun(ctx, rep.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusSucceeded, stored.Status)
	assert.Equal(t, 4, stored.Resources)

	records, err := repo.ListResources(ctx, rep.Run.ID)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	png, err := repo.GetArtifact(ctx, rep.Run.ID, run.ArtifactVennPNG)
	require.NoError(t, err)
	assert.NotEmpty(t, png.Content)
}
