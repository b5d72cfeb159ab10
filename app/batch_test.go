package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"fermload/domain/run"
	"fermload/internal"
	"fermload/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunnerCollectsResults(t *testing.T) {
	var calls atomic.Int32
	ok := func(ctx context.Context) (*RunReport, error) {
		calls.Add(1)
		return &RunReport{}, nil
	}
	jobs := []Job{
		{Name: "a", Run: ok},
		{Name: "b", Run: func(ctx context.Context) (*RunReport, error) { return nil, errors.New("bad input") }},
		{Name: "c", Run: func(ctx context.Context) (*RunReport, error) { panic("boom") }},
		{Name: "d", Run: ok},
	}

	results, err := NewBatchRunner(2, false, internal.NewNopLogger()).Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, int32(2), calls.Load())

	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "bad input")
	assert.ErrorContains(t, results[2].Err, "panic")
	assert.Equal(t, "d", results[3].Name)
	assert.NotNil(t, results[3].Report)
}

func TestBatchRunnerFailFast(t *testing.T) {
	jobs := []Job{
		{Name: "broken", Run: func(ctx context.Context) (*RunReport, error) { return nil, errors.New("bad input") }},
	}
	_, err := NewBatchRunner(1, true, nil).Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job broken")
}

func TestJobFromPipelineFile(t *testing.T) {
	dir := t.TempDir()
	plate := writePlate(t, dir, "P1")
	fx := writeTabular(t)

	files := []*config.PipelineFile{
		{
			Kind:   config.KindBiolector,
			Name:   "plates",
			Plates: []config.PlateSpec{{MetadataDir: plate.MetadataDir, RawData: plate.RawData}},
		},
		{
			Kind:    config.KindFermentalg,
			Sources: config.SourceFiles{Info: fx.Info, RawData: fx.RawData, Medium: fx.Medium, FollowUp: fx.FollowUp},
			Venn:    true,
		},
		{
			Kind:    config.KindGreencell,
			Name:    "gc",
			Sources: config.SourceFiles{Info: fx.Info, Medium: fx.Medium, FollowUp: fx.FollowUp},
		},
	}

	svc := newTestService(t, WithOutputDir(filepath.Join(dir, "out")))
	var jobs []Job
	for _, pf := range files {
		job, err := JobFromPipelineFile(svc, pf)
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	assert.Equal(t, "fermentalg", jobs[1].Name)

	results, err := NewBatchRunner(0, true, internal.NewNopLogger()).Run(context.Background(), jobs)
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Err, r.Name)
		assert.Equal(t, run.StatusSucceeded, r.Report.Run.Status)
	}
	assert.Equal(t, 4, results[0].Report.Collection.Len())
	assert.Equal(t, PipelineGreencell, results[2].Report.Run.Pipeline)
}

func TestJobFromPipelineFileRejectsInvalid(t *testing.T) {
	_, err := JobFromPipelineFile(newTestService(t), &config.PipelineFile{Kind: "other"})
	assert.Error(t, err)
}
