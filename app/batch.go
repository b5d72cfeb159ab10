package app

import (
	"context"
	"fmt"

	"fermload/internal"
	"fermload/internal/config"
	"fermload/internal/errors"

	"golang.org/x/sync/errgroup"
)

// Job is one independent load run
type Job struct {
	Name string
	Run  func(ctx context.Context) (*RunReport, error)
}

// JobResult is the outcome of a job; Report may be set even on error
type JobResult struct {
	Name   string
	Report *RunReport
	Err    error
}

// BatchRunner executes independent load runs concurrently. Runs share no
// state: each builds its own tables and collection.
type BatchRunner struct {
	limit    int
	failFast bool
	log      *internal.Logger
}

// NewBatchRunner runs at most limit jobs at a time (unbounded when <= 0).
// With failFast, the first failing job cancels the ones not yet finished.
func NewBatchRunner(limit int, failFast bool, log *internal.Logger) *BatchRunner {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &BatchRunner{limit: limit, failFast: failFast, log: log}
}

// Run executes every job and returns their results in job order. The
// error is the first job failure when failFast is set, nil otherwise.
func (b *BatchRunner) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}

	for i, job := range jobs {
		i, job := i, job
		results[i].Name = job.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			rep, err := guardRun(gctx, job)
			results[i].Report, results[i].Err = rep, err
			if err != nil {
				b.log.Error("job %s failed: %v", job.Name, err)
				if b.failFast {
					return fmt.Errorf("job %s: %w", job.Name, err)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	b.log.Info("batch finished: %d jobs, %d failed", len(jobs), failed)
	return results, err
}

func guardRun(ctx context.Context, job Job) (rep *RunReport, err error) {
	err = guard(func() error {
		var runErr error
		rep, runErr = job.Run(ctx)
		return runErr
	})
	return rep, err
}

// JobFromPipelineFile maps a YAML run description onto its pipeline
func JobFromPipelineFile(svc *Service, pf *config.PipelineFile) (Job, error) {
	if err := pf.Validate(); err != nil {
		return Job{}, err
	}
	name := pf.Name
	if name == "" {
		name = pf.Kind
	}

	switch pf.Kind {
	case config.KindBiolector:
		req := BiolectorRequest{Name: name, PlateNames: pf.PlateNames, Venn: pf.Venn}
		for _, p := range pf.Plates {
			req.Plates = append(req.Plates, PlateInput{MetadataDir: p.MetadataDir, RawData: p.RawData})
		}
		p := NewBiolectorPipeline(svc)
		return Job{Name: name, Run: func(ctx context.Context) (*RunReport, error) { return p.Run(ctx, req) }}, nil

	case config.KindFermentalg, config.KindGreencell:
		req := TabularRequest{
			Name:     name,
			Info:     pf.Sources.Info,
			RawData:  pf.Sources.RawData,
			Medium:   pf.Sources.Medium,
			FollowUp: pf.Sources.FollowUp,
			Columns:  Columns(pf.Columns),
			Venn:     pf.Venn,
		}
		if pf.Kind == config.KindFermentalg {
			p := NewFermentalgPipeline(svc)
			return Job{Name: name, Run: func(ctx context.Context) (*RunReport, error) { return p.Run(ctx, req) }}, nil
		}
		p := NewGreencellPipeline(svc)
		return Job{Name: name, Run: func(ctx context.Context) (*RunReport, error) { return p.Run(ctx, req) }}, nil
	}
	return Job{}, errors.ConfigInvalid(fmt.Sprintf("unknown pipeline kind %q", pf.Kind))
}
