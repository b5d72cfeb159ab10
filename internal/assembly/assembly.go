// Package assembly turns reconciled per-key tables into the tagged
// resources of an output collection.
package assembly

import (
	"fmt"
	"strings"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/classify"
	"fermload/internal/normalize"
)

// NameStyle selects how resource names are derived from keys
type NameStyle int

const (
	// NameByKey joins the normalized batch and sample ("E12_F3")
	NameByKey NameStyle = iota
	// NameByWell uses the short well form of the sample ("A1")
	NameByWell
)

// Input is one candidate resource
type Input struct {
	Key         experiment.Key
	Plate       string
	Description string
	Table       *table.Frame
	Medium      *experiment.MediumTag
	Missing     *experiment.MissingValueTag
	// Expected marks keys that must appear even without data; they get
	// an empty placeholder table tagged raw_data.
	Expected bool
}

// Options configure an Assembler
type Options struct {
	CollectionName string
	Names          NameStyle
	// PrefixPlate prepends "<plate>_" to every name; set when one
	// collection combines several plates.
	PrefixPlate bool
}

// Assembler builds collections
type Assembler struct {
	opts Options
}

// New returns an Assembler
func New(opts Options) *Assembler {
	if opts.CollectionName == "" {
		opts.CollectionName = "output"
	}
	return &Assembler{opts: opts}
}

// Assemble emits one resource per input whose table carries data, plus a
// placeholder per expected input without data. Inputs with neither are
// dropped. A name collision aborts the assembly.
func (a *Assembler) Assemble(inputs []Input) (*experiment.Collection, error) {
	coll := experiment.NewCollection(a.opts.CollectionName)
	for _, in := range inputs {
		res, ok := a.Build(in)
		if !ok {
			continue
		}
		if err := coll.Add(res); err != nil {
			return nil, fmt.Errorf("assemble %s: %w", in.Key, err)
		}
	}
	return coll, nil
}

// Build assembles a single resource; ok is false when the input yields none.
// Columns without any value are dropped from the emitted table.
func (a *Assembler) Build(in Input) (*experiment.Resource, bool) {
	frame := in.Table
	missingTag := in.Missing

	if frame == nil || !hasData(frame) {
		if !in.Expected {
			return nil, false
		}
		frame = table.NewFrame()
		missingTag = WithLabel(missingTag, experiment.MissingRawData)
	} else {
		frame = dropEmptyColumns(frame)
	}

	return &experiment.Resource{
		Name:        a.Name(in),
		Key:         in.Key,
		Plate:       in.Plate,
		Description: in.Description,
		Table:       frame,
		Medium:      in.Medium,
		Missing:     missingTag,
		Columns:     classify.TagColumns(frame),
	}, true
}

// Name derives the resource name of an input
func (a *Assembler) Name(in Input) string {
	var name string
	switch a.opts.Names {
	case NameByWell:
		name = normalize.ShortenWell(in.Key.Sample)
	default:
		name = normalize.NormalizeExperimentKey(in.Key.Batch)
		if in.Key.Sample != "" {
			name += "_" + normalize.NormalizeExperimentKey(in.Key.Sample)
		}
		name = strings.ReplaceAll(name, " ", "_")
	}
	if a.opts.PrefixPlate && in.Plate != "" {
		name = in.Plate + "_" + name
	}
	return name
}

// dropEmptyColumns copies f without its all-missing columns; the index
// column stays
func dropEmptyColumns(f *table.Frame) *table.Frame {
	if idx, ok := classify.IndexColumn(f); ok {
		return f.DropEmptyColumns(idx)
	}
	return f.DropEmptyColumns()
}

// hasData reports whether any data-role column carries a value
func hasData(f *table.Frame) bool {
	if f.Empty() {
		return false
	}
	for _, c := range f.Columns() {
		if classify.ClassifyColumn(c.Name).Role != experiment.RoleData {
			continue
		}
		if !c.AllMissing() {
			return true
		}
	}
	return false
}

var labelOrder = []experiment.MissingKind{
	experiment.MissingInfo,
	experiment.MissingRawData,
	experiment.MissingMedium,
	experiment.MissingFollowUp,
	experiment.MissingFollowUpEmpty,
}

// WithLabel returns tag with label added, keeping the canonical order.
// tag itself is not modified.
func WithLabel(tag *experiment.MissingValueTag, label experiment.MissingKind) *experiment.MissingValueTag {
	if tag.Has(label) {
		return tag
	}
	have := map[experiment.MissingKind]bool{label: true}
	if tag != nil {
		for _, l := range tag.Labels {
			have[l] = true
		}
	}
	out := &experiment.MissingValueTag{}
	for _, l := range labelOrder {
		if have[l] {
			out.Labels = append(out.Labels, l)
		}
	}
	return out
}
