package assembly

import (
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/classify"
	"fermload/internal/normalize"
)

// FrameFromRecords types a string table: index columns parse strictly
// (NaN when unparsable), data columns leniently, and metadata-exempt
// columns stay text. Columns listed in drop are left out.
func FrameFromRecords(rec *table.Records, drop ...string) (*table.Frame, error) {
	f := table.NewFrame()
	if rec.Empty() {
		return f, nil
	}
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}

	for _, h := range rec.Headers {
		if skip[h] || h == "" {
			continue
		}
		values := rec.Column(h)
		var err error
		switch classify.ClassifyColumn(h).Role {
		case experiment.RoleMetadataExempt:
			err = f.AddText(h, values)
		case experiment.RoleIndex:
			err = f.AddNumeric(h, normalize.NormalizeNumericColumn(values))
		default:
			err = f.AddNumeric(h, normalize.LenientColumn(values))
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MediumTagFrom builds the medium tag of a key from its composition slice:
// every column other than nameColumn becomes a component, read leniently
// from the first row.
func MediumTagFrom(name string, composition *table.Records, nameColumn string) *experiment.MediumTag {
	if name == "" {
		return nil
	}
	tag := &experiment.MediumTag{Name: name}
	if composition.Empty() {
		return tag
	}
	row := composition.Rows[0]
	tag.Composition = make(map[string]float64, len(composition.Headers))
	for _, h := range composition.Headers {
		if h == nameColumn || h == "" {
			continue
		}
		tag.Composition[h] = normalize.ToNumericLenient(row[h])
	}
	return tag
}
