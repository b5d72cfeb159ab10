package app

import (
	"context"
	"fmt"

	"fermload/adapters/export"
	"fermload/adapters/readers"
	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal"
	"fermload/internal/assembly"
	"fermload/internal/classify"
	"fermload/internal/errors"
	"fermload/internal/missing"
	"fermload/internal/reconcile"
	"fermload/internal/venn"
)

// Default header aliases of the info, raw data and medium sheets
var (
	BatchAliases  = []string{"ESSAI", "Experiment", "Essai", "batch"}
	SampleAliases = []string{"FERMENTEUR", "Fermenter", "Fermenteur", "sample"}
	MediumAliases = []string{"MILIEU", "Medium", "Milieu"}
)

// Columns overrides the header aliases; empty fields keep the defaults
type Columns struct {
	Batch  string
	Sample string
	Medium string
}

// TabularRequest describes a spreadsheet-based load run. Empty paths mark
// absent sources.
type TabularRequest struct {
	Name     string
	Info     string
	RawData  string
	Medium   string
	FollowUp string
	Columns  Columns
	Venn     bool
}

// tabularProfile is what distinguishes the Fermentalg and Greencell pipelines
type tabularProfile struct {
	pipeline   string
	hasRawData bool
	vennKinds  []experiment.SourceKind
	// table picks the output table of a key
	table func(e *reconcile.Entry, idColumns []string) (*table.Frame, error)
}

// FermentalgPipeline joins info, raw data, medium and follow-up per
// experiment and fermenter; the output table is the raw data series with
// the follow-up series joined in on the hour index
type FermentalgPipeline struct {
	svc     *Service
	profile tabularProfile
}

// NewFermentalgPipeline creates the pipeline
func NewFermentalgPipeline(svc *Service) *FermentalgPipeline {
	return &FermentalgPipeline{svc: svc, profile: tabularProfile{
		pipeline:   PipelineFermentalg,
		hasRawData: true,
		vennKinds:  []experiment.SourceKind{experiment.SourceInfo, experiment.SourceRawData, experiment.SourceFollowUp},
		table: func(e *reconcile.Entry, idColumns []string) (*table.Frame, error) {
			f, err := assembly.FrameFromRecords(e.RawData, idColumns...)
			if err != nil {
				return nil, err
			}
			if f, err = withFollowUp(f, e.FollowUpTable); err != nil {
				return nil, err
			}
			return sortByIndex(f)
		},
	}}
}

// Run executes the pipeline
func (p *FermentalgPipeline) Run(ctx context.Context, req TabularRequest) (*RunReport, error) {
	if req.RawData == "" {
		return nil, errors.Fatal(core.NewMissingInputError("raw data file", req.Name))
	}
	return p.svc.runTabular(ctx, p.profile, req)
}

// GreencellPipeline has no raw data export: the follow-up series is the
// output table
type GreencellPipeline struct {
	svc     *Service
	profile tabularProfile
}

// NewGreencellPipeline creates the pipeline
func NewGreencellPipeline(svc *Service) *GreencellPipeline {
	return &GreencellPipeline{svc: svc, profile: tabularProfile{
		pipeline:  PipelineGreencell,
		vennKinds: []experiment.SourceKind{experiment.SourceInfo, experiment.SourceMedium, experiment.SourceFollowUp},
		table: func(e *reconcile.Entry, _ []string) (*table.Frame, error) {
			if e.FollowUpTable == nil {
				return nil, nil
			}
			return sortByIndex(e.FollowUpTable)
		},
	}}
}

// Run executes the pipeline; a raw data path in req is ignored
func (p *GreencellPipeline) Run(ctx context.Context, req TabularRequest) (*RunReport, error) {
	req.RawData = ""
	return p.svc.runTabular(ctx, p.profile, req)
}

// tabularSources holds what was read for one run
type tabularSources struct {
	sources   reconcile.Sources
	medium    *table.Records
	mediumCol string
	idColumns []string
	archive   *readers.FollowUpArchive
}

func (s *Service) runTabular(ctx context.Context, profile tabularProfile, req TabularRequest) (*RunReport, error) {
	rep, log, err := s.begin(ctx, req.Name, profile.pipeline, []string{req.Info, req.RawData, req.Medium, req.FollowUp})
	if err != nil {
		return nil, err
	}

	src, err := s.readTabular(req, log)
	if err != nil {
		return s.finish(ctx, rep, log, err)
	}
	if src.archive != nil {
		defer src.archive.Close()
	}

	rec := reconcile.New(src.sources)
	asm := assembly.New(assembly.Options{CollectionName: req.Name, Names: assembly.NameByKey})
	coll := experiment.NewCollection(req.Name)
	opts := missing.Options{HasRawDataSource: profile.hasRawData}
	var entries []*reconcile.Entry

	for _, key := range rec.Keys() {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, rep, log, err)
		}
		err := guard(func() error {
			e := rec.Entry(key)
			entries = append(entries, e)
			for _, w := range e.Warnings {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %s", key, w))
			}
			if err := attachFollowUp(e, src.archive); err != nil {
				return errors.Wrap(err, "follow-up")
			}

			frame, err := profile.table(e, src.idColumns)
			if err != nil {
				return err
			}
			res, ok := asm.Build(assembly.Input{
				Key:      e.Key,
				Table:    frame,
				Medium:   assembly.MediumTagFrom(e.MediumName, e.Medium, src.mediumCol),
				Missing:  missing.Build(e, opts),
				Expected: profile.hasRawData,
			})
			if !ok {
				return fmt.Errorf("%w: no data for key", core.ErrEmptyTable)
			}
			return coll.Add(res)
		})
		if err != nil {
			rep.skip(log, key, err)
		}
	}
	rep.Collection = coll

	if src.medium != nil {
		if rep.Medium, err = export.MediumTable(src.medium, src.mediumCol); err != nil {
			log.Warn("medium table: %v", err)
		}
	}

	if req.Venn {
		sets := SetsFromEntries(entries, profile.vennKinds)
		regions, err := venn.ComputeRegions(sets)
		if err != nil {
			return s.finish(ctx, rep, log, err)
		}
		rep.Sets, rep.Regions = sets, &regions
	}
	return s.finish(ctx, rep, log, nil)
}

func (s *Service) readTabular(req TabularRequest, log *internal.Logger) (*tabularSources, error) {
	out := &tabularSources{}

	if req.Info == "" {
		return nil, errors.Fatal(core.NewMissingInputError("info file", req.Name))
	}
	info, err := readers.NewTabularReader(req.Info).WithLogger(log).Read()
	if err != nil {
		return nil, err
	}
	infoSrc, err := keyedSource(info, "info", req.Columns)
	if err != nil {
		return nil, err
	}
	out.sources.Info = infoSrc
	out.idColumns = []string{infoSrc.BatchColumn, infoSrc.SampleColumn}
	if col, ok := info.FindColumn(withOverride(req.Columns.Medium, MediumAliases)...); ok {
		out.sources.MediumColumn = col
	}

	if req.RawData != "" {
		raw, err := readers.NewTabularReader(req.RawData).WithLogger(log).Read()
		if err != nil {
			return nil, err
		}
		rawSrc, err := keyedSource(raw, "raw data", req.Columns)
		if err != nil {
			return nil, err
		}
		out.sources.RawData = rawSrc
		out.idColumns = append(out.idColumns, rawSrc.BatchColumn, rawSrc.SampleColumn)
	}

	if req.Medium != "" {
		med, err := readers.NewTabularReader(req.Medium).WithLogger(log).Read()
		if err != nil {
			return nil, err
		}
		col, ok := med.FindColumn(withOverride(req.Columns.Medium, MediumAliases)...)
		if !ok {
			return nil, errors.Fatal(core.NewMissingColumnError("medium", MediumAliases))
		}
		out.medium, out.mediumCol = med, col
		out.sources.Medium = &reconcile.MediumSource{Records: med, NameColumn: col}
	}

	if req.FollowUp != "" {
		archive, err := readers.OpenFollowUpArchive(req.FollowUp, nil)
		if err != nil {
			return nil, err
		}
		out.archive = archive
		out.sources.FollowUp = &reconcile.KeyedSource{
			Records:      archive.Index(),
			BatchColumn:  readers.FollowUpBatchColumn,
			SampleColumn: readers.FollowUpSampleColumn,
		}
		log.Debug("follow-up archive: %d files", len(archive.Files()))
	}
	return out, nil
}

func keyedSource(rec *table.Records, what string, cols Columns) (*reconcile.KeyedSource, error) {
	batchAliases := withOverride(cols.Batch, BatchAliases)
	batch, ok := rec.FindColumn(batchAliases...)
	if !ok {
		return nil, errors.Fatal(core.NewMissingColumnError(what, batchAliases))
	}
	sample, _ := rec.FindColumn(withOverride(cols.Sample, SampleAliases)...)
	return &reconcile.KeyedSource{Records: rec, BatchColumn: batch, SampleColumn: sample}, nil
}

func withOverride(override string, aliases []string) []string {
	if override == "" {
		return aliases
	}
	return append([]string{override}, aliases...)
}

// attachFollowUp parses the follow-up file of e, preferring a
// sample-specific file over a batch-wide one
func attachFollowUp(e *reconcile.Entry, archive *readers.FollowUpArchive) error {
	if archive == nil || e.FollowUp.Empty() {
		return nil
	}
	file := e.FollowUp.Rows[0][readers.FollowUpFileColumn]
	for _, row := range e.FollowUp.Rows {
		if row[readers.FollowUpSampleColumn] != "" {
			file = row[readers.FollowUpFileColumn]
			break
		}
	}
	frame, err := archive.Table(file)
	if err != nil {
		return err
	}
	e.FollowUpTable = frame
	return nil
}

// withFollowUp outer-joins the follow-up series of a key onto its raw data
// on the hour index. Raw data values win on shared columns; a key without
// raw data gets the follow-up series alone.
func withFollowUp(raw, followUp *table.Frame) (*table.Frame, error) {
	if followUp.Empty() {
		return raw, nil
	}
	if raw.Empty() {
		return followUp.Clone(), nil
	}
	idx, ok := classify.IndexColumn(raw)
	if !ok {
		return raw, nil
	}
	if col, _ := raw.Column(idx); col.Kind != table.KindNumeric {
		return raw, nil
	}
	return raw.JoinOn(idx, followUp, readers.FollowUpTimeColumn)
}

func sortByIndex(f *table.Frame) (*table.Frame, error) {
	name, ok := classify.IndexColumn(f)
	if !ok {
		return f, nil
	}
	if col, _ := f.Column(name); col.Kind != table.KindNumeric {
		return f, nil
	}
	return f.SortBy(name)
}

// SetsFromEntries builds one set per source kind from reconciled entries:
// a key belongs to kind K when its slice of K is non-empty; an empty
// follow-up table counts as absent
func SetsFromEntries(entries []*reconcile.Entry, kinds []experiment.SourceKind) []venn.NamedSet {
	sets := make([]venn.NamedSet, len(kinds))
	for i, k := range kinds {
		sets[i] = venn.NewSet(string(k))
	}
	for _, e := range entries {
		for i, k := range kinds {
			present := e.Has(k)
			if k == experiment.SourceFollowUp && present {
				present = e.FollowUpTable != nil && !e.FollowUpTable.Empty()
			}
			if present {
				sets[i].Add(e.Key.String())
			}
		}
	}
	return sets
}
