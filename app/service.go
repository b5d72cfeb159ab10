package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fermload/adapters/export"
	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/run"
	"fermload/domain/table"
	"fermload/internal"
	"fermload/internal/metrics"
	"fermload/internal/report"
	"fermload/internal/summary"
	"fermload/internal/venn"
	"fermload/ports"
)

// Pipeline names
const (
	PipelineBiolector  = "biolector"
	PipelineFermentalg = "fermentalg"
	PipelineGreencell  = "greencell"
)

// RunReport is the outcome of one load run
type RunReport struct {
	Run        *run.Run
	Collection *experiment.Collection
	Sets       []venn.NamedSet
	Regions    *venn.Regions
	Medium     *table.Frame
	Stats      []summary.ColumnStats
	Skipped    []report.Skip
	Warnings   []string
	// OutputDir is where files were written; empty when outputs are disabled
	OutputDir string
}

// Service carries the infrastructure shared by every pipeline
type Service struct {
	log       *internal.Logger
	metrics   *metrics.Metrics
	repo      ports.RunRepository
	outputDir string
	vennOpts  venn.RenderOptions
	workbook  bool
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(l *internal.Logger) ServiceOption { return func(s *Service) { s.log = l } }

// WithMetrics enables run metrics
func WithMetrics(m *metrics.Metrics) ServiceOption { return func(s *Service) { s.metrics = m } }

// WithRepository persists runs
func WithRepository(r ports.RunRepository) ServiceOption { return func(s *Service) { s.repo = r } }

// WithOutputDir writes each run under dir/<run id>
func WithOutputDir(dir string) ServiceOption { return func(s *Service) { s.outputDir = dir } }

// WithWorkbook also writes an XLSX workbook per run
func WithWorkbook(enabled bool) ServiceOption { return func(s *Service) { s.workbook = enabled } }

// WithVennOptions sets the figure options
func WithVennOptions(o venn.RenderOptions) ServiceOption { return func(s *Service) { s.vennOpts = o } }

// NewService creates a service; without options it only logs
func NewService(opts ...ServiceOption) *Service {
	s := &Service{log: internal.DefaultLogger, vennOpts: venn.DefaultRenderOptions()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// begin opens the run record
func (s *Service) begin(ctx context.Context, name, pipeline string, inputs []string) (*RunReport, *internal.Logger, error) {
	fp, err := fingerprint(inputs)
	if err != nil {
		s.log.Warn("fingerprint of %s inputs failed: %v", name, err)
	}
	rn := run.NewRun(name, pipeline, fp)
	log := s.log.With("run", rn.ID.String(), "pipeline", pipeline)
	log.Info("load run %q started", name)

	if s.repo != nil {
		if err := s.repo.CreateRun(ctx, rn); err != nil {
			return nil, log, err
		}
	}
	return &RunReport{Run: rn}, log, nil
}

// finish closes the run: outputs, persistence, metrics. runErr is the
// fatal error of the run, if any; it is returned unchanged.
func (s *Service) finish(ctx context.Context, rep *RunReport, log *internal.Logger, runErr error) (*RunReport, error) {
	resources := 0
	if rep.Collection != nil {
		resources = rep.Collection.Len()
		rep.Stats = summary.Collection(rep.Collection)
	}
	rep.Run.Finish(resources, len(rep.Skipped), runErr)

	var artifacts []*run.Artifact
	if runErr == nil {
		var err error
		artifacts, err = s.artifacts(rep)
		if err != nil {
			log.Error("render run artifacts: %v", err)
		}
		if s.outputDir != "" {
			if err := s.writeOutputs(rep, artifacts); err != nil {
				log.Error("write outputs: %v", err)
				rep.Run.Finish(resources, len(rep.Skipped), err)
				runErr = err
			}
		}
	}

	if s.repo != nil {
		if err := s.persist(ctx, rep, artifacts); err != nil {
			log.Error("persist run: %v", err)
		}
	}

	s.metrics.ObserveRun(rep.Run.Pipeline, runErr, rep.Run.Duration(), resources, len(rep.Skipped))
	if rep.Collection != nil {
		for _, r := range rep.Collection.Resources() {
			if r.Missing == nil {
				continue
			}
			for _, l := range r.Missing.Labels {
				s.metrics.ObserveMissing(rep.Run.Pipeline, string(l))
			}
		}
	}

	if runErr != nil {
		log.Error("load run failed after %s: %v", rep.Run.Duration().Round(time.Millisecond), runErr)
		return rep, runErr
	}
	for _, w := range rep.Warnings {
		log.Warn("%s", w)
	}
	log.Info("load run finished: %d resources, %d skipped in %s",
		resources, len(rep.Skipped), rep.Run.Duration().Round(time.Millisecond))
	return rep, nil
}

// skip records a per-key failure
func (rep *RunReport) skip(log *internal.Logger, key experiment.Key, err error) {
	log.Warn("key %s skipped: %v", key, err)
	rep.Skipped = append(rep.Skipped, report.Skip{Key: key.String(), Reason: err.Error()})
}

// guard runs fn for one key, turning a panic into an error
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *Service) reportInput(rep *RunReport) report.Input {
	return report.Input{
		RunID:      rep.Run.ID.String(),
		Name:       rep.Run.Name,
		Pipeline:   rep.Run.Pipeline,
		StartedAt:  rep.Run.StartedAt,
		Duration:   rep.Run.Duration(),
		Collection: rep.Collection,
		Skipped:    rep.Skipped,
		Warnings:   rep.Warnings,
		Regions:    rep.Regions,
		Stats:      rep.Stats,
	}
}

// artifacts renders the run-level blobs
func (s *Service) artifacts(rep *RunReport) ([]*run.Artifact, error) {
	id := rep.Run.ID
	md := report.Markdown(s.reportInput(rep))
	out := []*run.Artifact{
		{RunID: id, Kind: run.ArtifactReportMD, Content: md},
		{RunID: id, Kind: run.ArtifactReportHTML, Content: report.HTML(md)},
	}

	if len(rep.Stats) > 0 {
		frame, err := summary.Frame(rep.Stats)
		if err != nil {
			return out, err
		}
		var buf bytes.Buffer
		if err := export.WriteFrameCSV(&buf, frame); err != nil {
			return out, err
		}
		out = append(out, &run.Artifact{RunID: id, Kind: run.ArtifactSummaryCSV, Content: buf.Bytes()})
	}

	if rep.Medium != nil && !rep.Medium.Empty() {
		var buf bytes.Buffer
		if err := export.WriteFrameCSV(&buf, rep.Medium); err != nil {
			return out, err
		}
		out = append(out, &run.Artifact{RunID: id, Kind: run.ArtifactMediumCSV, Content: buf.Bytes()})
	}

	if rep.Regions != nil {
		opts := s.vennOpts
		opts.Title = rep.Run.Name
		var buf bytes.Buffer
		if err := venn.Render(&buf, *rep.Regions, opts); err != nil {
			return out, err
		}
		out = append(out, &run.Artifact{RunID: id, Kind: run.ArtifactVennPNG, Content: buf.Bytes()})
	}
	return out, nil
}

var artifactFiles = map[run.ArtifactKind]string{
	run.ArtifactReportMD:   "report.md",
	run.ArtifactReportHTML: "report.html",
	run.ArtifactSummaryCSV: "summary.csv",
	run.ArtifactMediumCSV:  "medium.csv",
	run.ArtifactVennPNG:    "venn.png",
}

func (s *Service) writeOutputs(rep *RunReport, artifacts []*run.Artifact) error {
	dir := filepath.Join(s.outputDir, rep.Run.ID.String())
	coll := rep.Collection
	if coll == nil {
		coll = experiment.NewCollection(rep.Run.Name)
	}
	if _, err := export.WriteDirectory(coll, dir); err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, artifactFiles[a.Kind]), a.Content, 0o644); err != nil {
			return err
		}
	}
	if s.workbook {
		extra := map[string]*table.Frame{}
		if len(rep.Stats) > 0 {
			if f, err := summary.Frame(rep.Stats); err == nil {
				extra["summary"] = f
			}
		}
		if rep.Medium != nil && !rep.Medium.Empty() {
			extra["medium"] = rep.Medium
		}
		if err := export.WriteWorkbook(filepath.Join(dir, "workbook.xlsx"), coll, extra); err != nil {
			return err
		}
	}
	rep.OutputDir = dir
	return nil
}

func (s *Service) persist(ctx context.Context, rep *RunReport, artifacts []*run.Artifact) error {
	if rep.Collection != nil {
		records, err := ResourceRecords(rep.Run, rep.Collection)
		if err != nil {
			return err
		}
		if err := s.repo.SaveResources(ctx, rep.Run.ID, records); err != nil {
			return err
		}
	}
	for _, a := range artifacts {
		if err := s.repo.SaveArtifact(ctx, a); err != nil {
			return err
		}
	}
	return s.repo.FinishRun(ctx, rep.Run)
}

// ResourceRecords converts a collection to stored records
func ResourceRecords(rn *run.Run, coll *experiment.Collection) ([]run.ResourceRecord, error) {
	manifest := export.BuildManifest(coll)
	out := make([]run.ResourceRecord, 0, len(manifest.Resources))
	for _, mr := range manifest.Resources {
		r, _ := coll.Get(mr.Name)
		tags, err := json.Marshal(mr)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := export.WriteFrameCSV(&buf, r.Table); err != nil {
			return nil, err
		}
		medium := ""
		if r.Medium != nil {
			medium = r.Medium.Name
		}
		out = append(out, run.ResourceRecord{
			RunID:   rn.ID,
			Name:    r.Name,
			Batch:   r.Key.Batch,
			Sample:  r.Key.Sample,
			Plate:   r.Plate,
			Medium:  medium,
			Missing: r.Missing.String(),
			Rows:    r.Table.NumRows(),
			Tags:    string(tags),
			CSV:     buf.Bytes(),
		})
	}
	return out, nil
}

func fingerprint(paths []string) (core.Hash, error) {
	return core.InputFingerprint(paths)
}
