package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fermload/domain/core"
	"fermload/internal/errors"
	"fermload/internal/normalize"

	"github.com/tidwall/gjson"
)

// MetadataFileSuffix matches Biolector protocol exports
const MetadataFileSuffix = "BXT.json"

// PlateMetadata is the subset of a Biolector protocol file the pipeline uses
type PlateMetadata struct {
	Name           string
	Comment        string
	UserName       string
	LastModifiedAt string

	Channels         []string
	CultivationWells []string
	ReservoirWells   []string

	// Descriptions maps normalized cultivation wells to their user label
	Descriptions map[string]string
}

// IsReservoir reports whether well is a reservoir well of the plate
func (m *PlateMetadata) IsReservoir(well string) bool {
	well = normalize.NormalizeWell(well)
	for _, w := range m.ReservoirWells {
		if w == well {
			return true
		}
	}
	return false
}

// UnknownChannels returns the observed channels the protocol does not
// declare, in input order. A protocol without channels declares nothing to
// check against.
func (m *PlateMetadata) UnknownChannels(observed []string) []string {
	if len(m.Channels) == 0 {
		return nil
	}
	var out []string
	for _, ch := range observed {
		known := false
		for _, c := range m.Channels {
			if strings.EqualFold(c, ch) {
				known = true
				break
			}
		}
		if !known {
			out = append(out, ch)
		}
	}
	return out
}

// FindMetadataFile returns the single *BXT.json file of dir. Several
// matches resolve to the lexically first; none is fatal.
func FindMetadataFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+MetadataFileSuffix))
	if err != nil {
		return "", errors.ConfigInvalid(fmt.Sprintf("bad metadata directory %s: %v", dir, err))
	}
	if len(matches) == 0 {
		return "", errors.Fatal(fmt.Errorf("%w: no *%s in %s", core.ErrMetadataFileNotFound, MetadataFileSuffix, dir))
	}
	sort.Strings(matches)
	return matches[0], nil
}

// LoadPlateMetadata reads and parses a protocol file
func LoadPlateMetadata(path string) (*PlateMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Fatal(core.NewMissingInputError("plate metadata", path))
	}
	meta, err := ParsePlateMetadata(raw)
	if err != nil {
		return nil, errors.ParseError(path, err)
	}
	return meta, nil
}

// ParsePlateMetadata decodes the protocol JSON
func ParsePlateMetadata(raw []byte) (*PlateMetadata, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(raw)

	meta := &PlateMetadata{
		Name:           doc.Get("Name").String(),
		Comment:        doc.Get("Comment").String(),
		UserName:       doc.Get("UserName").String(),
		LastModifiedAt: doc.Get("LastModifiedAt").String(),
	}

	for _, ch := range doc.Get("Channels.#.Name").Array() {
		if name := strings.TrimSpace(ch.String()); name != "" {
			meta.Channels = append(meta.Channels, name)
		}
	}
	meta.CultivationWells = wells(doc.Get("Microplate.CultivationLabels"))
	meta.ReservoirWells = wells(doc.Get("Microplate.ReservoirLabels"))
	meta.Descriptions = descriptions(doc.Get("Layout.CultivationLabelDescriptionsMap"))
	return meta, nil
}

func wells(arr gjson.Result) []string {
	var out []string
	for _, w := range arr.Array() {
		if s := strings.TrimSpace(w.String()); s != "" {
			out = append(out, normalize.NormalizeWell(s))
		}
	}
	return out
}

func descriptions(obj gjson.Result) map[string]string {
	out := map[string]string{}
	obj.ForEach(func(key, value gjson.Result) bool {
		if d := strings.TrimSpace(value.String()); d != "" {
			out[normalize.NormalizeWell(key.String())] = d
		}
		return true
	})
	return out
}
