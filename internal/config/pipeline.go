package config

import (
	"fmt"
	"os"
	"path/filepath"

	"fermload/internal/errors"

	"gopkg.in/yaml.v3"
)

// Pipeline kinds
const (
	KindBiolector  = "biolector"
	KindFermentalg = "fermentalg"
	KindGreencell  = "greencell"
)

// PipelineFile describes one load run
//
//	kind: biolector
//	name: screening-42
//	plate_names: [P1, P2]
//	plates:
//	  - metadata_dir: plates/p1
//	    raw_data: plates/p1/raw.csv
type PipelineFile struct {
	Kind       string      `yaml:"kind"`
	Name       string      `yaml:"name"`
	Plates     []PlateSpec `yaml:"plates,omitempty"`
	PlateNames []string    `yaml:"plate_names,omitempty"`
	Sources    SourceFiles `yaml:"sources,omitempty"`
	Columns    ColumnNames `yaml:"columns,omitempty"`
	Venn       bool        `yaml:"venn"`
}

// PlateSpec locates one Biolector plate
type PlateSpec struct {
	MetadataDir string `yaml:"metadata_dir"`
	RawData     string `yaml:"raw_data"`
}

// SourceFiles locates the tabular sources of the Fermentalg and
// Greencell pipelines
type SourceFiles struct {
	Info     string `yaml:"info"`
	RawData  string `yaml:"raw_data,omitempty"`
	Medium   string `yaml:"medium"`
	FollowUp string `yaml:"follow_up"`
}

// ColumnNames overrides the key columns of the info sheet
type ColumnNames struct {
	Batch  string `yaml:"batch,omitempty"`
	Sample string `yaml:"sample,omitempty"`
	Medium string `yaml:"medium,omitempty"`
}

// LoadPipelineFile parses and validates a YAML run description. Relative
// paths resolve against the file's directory.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "read pipeline file %s", path)
	}
	pf := &PipelineFile{}
	if err := yaml.Unmarshal(raw, pf); err != nil {
		return nil, errors.ParseError(path, err)
	}
	pf.resolve(filepath.Dir(path))
	if err := pf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "pipeline file %s", path)
	}
	return pf, nil
}

// Validate checks the kind-specific required fields
func (p *PipelineFile) Validate() error {
	switch p.Kind {
	case KindBiolector:
		if len(p.Plates) == 0 {
			return errors.ConfigInvalid("biolector pipeline needs at least one plate")
		}
		for i, pl := range p.Plates {
			if pl.MetadataDir == "" || pl.RawData == "" {
				return errors.ConfigInvalid(fmt.Sprintf("plate %d needs metadata_dir and raw_data", i))
			}
		}
	case KindFermentalg:
		if p.Sources.Info == "" || p.Sources.RawData == "" {
			return errors.ConfigInvalid("fermentalg pipeline needs info and raw_data sources")
		}
	case KindGreencell:
		if p.Sources.Info == "" {
			return errors.ConfigInvalid("greencell pipeline needs an info source")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown pipeline kind %q", p.Kind))
	}
	return nil
}

func (p *PipelineFile) resolve(base string) {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(base, s)
	}
	for i := range p.Plates {
		p.Plates[i].MetadataDir = abs(p.Plates[i].MetadataDir)
		p.Plates[i].RawData = abs(p.Plates[i].RawData)
	}
	p.Sources.Info = abs(p.Sources.Info)
	p.Sources.RawData = abs(p.Sources.RawData)
	p.Sources.Medium = abs(p.Sources.Medium)
	p.Sources.FollowUp = abs(p.Sources.FollowUp)
}
