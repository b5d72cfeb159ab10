package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"fermload/adapters/readers"
	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal"
	"fermload/internal/assembly"
	"fermload/internal/errors"
	"fermload/internal/missing"
	"fermload/internal/pivot"
	"fermload/internal/venn"

	"golang.org/x/sync/errgroup"
)

// PlateInput locates one plate: a directory holding the *BXT.json
// protocol and the long-format raw export
type PlateInput struct {
	MetadataDir string
	RawData     string
}

// BiolectorRequest describes a Biolector load run
type BiolectorRequest struct {
	Name   string
	Plates []PlateInput
	// PlateNames overrides the inferred plate names; when set its length
	// must match Plates
	PlateNames []string
	Venn       bool
}

// BiolectorPipeline pivots microplate reader exports into one table per well
type BiolectorPipeline struct {
	svc *Service
}

// NewBiolectorPipeline creates the pipeline
func NewBiolectorPipeline(svc *Service) *BiolectorPipeline {
	return &BiolectorPipeline{svc: svc}
}

// loadedPlate is the private state of one plate
type loadedPlate struct {
	name     string
	meta     *readers.PlateMetadata
	wells    map[string]*table.Frame
	expected []string
	order    []string
	warnings []string
}

// Run executes the pipeline
func (p *BiolectorPipeline) Run(ctx context.Context, req BiolectorRequest) (*RunReport, error) {
	var inputs []string
	for _, pl := range req.Plates {
		inputs = append(inputs, pl.RawData)
	}
	rep, log, err := p.svc.begin(ctx, req.Name, PipelineBiolector, inputs)
	if err != nil {
		return nil, err
	}

	plates, err := p.load(ctx, req, log)
	if err != nil {
		return p.svc.finish(ctx, rep, log, err)
	}

	for _, pl := range plates {
		for _, w := range pl.warnings {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("plate %s: %s", pl.name, w))
		}
	}

	multi := len(plates) > 1
	asm := assembly.New(assembly.Options{
		CollectionName: req.Name,
		Names:          assembly.NameByWell,
		PrefixPlate:    multi,
	})
	coll := experiment.NewCollection(req.Name)

	for _, pl := range plates {
		for _, well := range pl.order {
			key := experiment.Key{Batch: pl.name, Sample: well}
			err := guard(func() error {
				in := p.input(pl, well, multi)
				res, ok := asm.Build(in)
				if !ok {
					return nil
				}
				return coll.Add(res)
			})
			if err != nil {
				rep.skip(log, key, err)
			}
		}
	}
	rep.Collection = coll

	if req.Venn {
		sets := venn.SetsFromCollection(coll, []experiment.SourceKind{experiment.SourceInfo, experiment.SourceRawData})
		sets[0].Name = "metadata"
		regions, err := venn.ComputeRegions(sets)
		if err != nil {
			return p.svc.finish(ctx, rep, log, err)
		}
		rep.Sets, rep.Regions = sets, &regions
	}
	return p.svc.finish(ctx, rep, log, nil)
}

// load reads every plate concurrently; plates share nothing
func (p *BiolectorPipeline) load(ctx context.Context, req BiolectorRequest, log *internal.Logger) ([]*loadedPlate, error) {
	if len(req.Plates) == 0 {
		return nil, errors.Fatal(core.NewMissingInputError("plate", "request"))
	}
	if len(req.PlateNames) > 0 && len(req.PlateNames) != len(req.Plates) {
		return nil, errors.Fatal(core.NewPlateNameMismatchError(len(req.PlateNames), len(req.Plates)))
	}

	plates := make([]*loadedPlate, len(req.Plates))
	g, _ := errgroup.WithContext(ctx)
	for i, in := range req.Plates {
		i, in := i, in
		g.Go(func() error {
			pl, err := loadPlate(in, log)
			if err != nil {
				return errors.Wrapf(err, "plate %d", i)
			}
			plates[i] = pl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for i, pl := range plates {
		switch {
		case len(req.PlateNames) > 0:
			pl.name = req.PlateNames[i]
		case pl.meta.Name != "" && !seen[pl.meta.Name]:
			pl.name = pl.meta.Name
		default:
			pl.name = fmt.Sprintf("plate_%d", i)
		}
		if seen[pl.name] {
			return nil, errors.ValidationError(fmt.Sprintf("duplicate plate name %q", pl.name))
		}
		seen[pl.name] = true
	}
	return plates, nil
}

func loadPlate(in PlateInput, log *internal.Logger) (*loadedPlate, error) {
	metaPath, err := readers.FindMetadataFile(in.MetadataDir)
	if err != nil {
		return nil, err
	}
	meta, err := readers.LoadPlateMetadata(metaPath)
	if err != nil {
		return nil, err
	}
	rec, err := readers.NewTabularReader(in.RawData).WithLogger(log).Read()
	if err != nil {
		return nil, err
	}
	long, err := pivot.FromRecords(rec)
	if err != nil {
		return nil, errors.Fatal(err)
	}

	var warnings []string
	if unknown := meta.UnknownChannels(long.Channels()); len(unknown) > 0 {
		log.Warn("plate %s: channels %v are not declared by the protocol", meta.Name, unknown)
		warnings = append(warnings, fmt.Sprintf("channels not in protocol: %s", strings.Join(unknown, ", ")))
	}

	geometry := pivot.DetectGeometry(long.Wells())
	var wellRange []string
	for _, w := range geometry.Wells() {
		if !meta.IsReservoir(w) {
			wellRange = append(wellRange, w)
		}
	}
	wells, err := pivot.Pivot(long, wellRange)
	if err != nil {
		return nil, errors.Wrap(err, "pivot raw data")
	}

	expected := meta.CultivationWells
	if len(expected) == 0 {
		expected = wellRange
	}

	// every cultivation well plus every well with data, in plate order
	listed := map[string]bool{}
	var order []string
	for _, w := range append(append([]string(nil), wellRange...), expected...) {
		if listed[w] || meta.IsReservoir(w) {
			continue
		}
		if _, has := wells[w]; has || slices.Contains(expected, w) {
			listed[w] = true
			order = append(order, w)
		}
	}
	log.Debug("plate %s: %s geometry, %d wells with data, %d expected", meta.Name, geometry, len(wells), len(expected))

	return &loadedPlate{meta: meta, wells: wells, expected: expected, order: order, warnings: warnings}, nil
}

func (p *BiolectorPipeline) input(pl *loadedPlate, well string, multi bool) assembly.Input {
	described := slices.Contains(pl.meta.CultivationWells, well)
	var labels []experiment.MissingKind
	if !described {
		labels = append(labels, experiment.MissingInfo)
	}
	frame := pl.wells[well]
	if frame == nil {
		labels = append(labels, experiment.MissingRawData)
	}

	in := assembly.Input{
		Key:         experiment.Key{Batch: pl.name, Sample: well},
		Description: pl.meta.Descriptions[well],
		Table:       frame,
		Missing:     missing.Tag(labels),
		Expected:    slices.Contains(pl.expected, well),
	}
	if multi {
		in.Plate = pl.name
	}
	return in
}
