package export

import (
	"math"

	"fermload/domain/table"
	"fermload/internal/normalize"
)

// MediumColumn heads the first column of the published composition table
const MediumColumn = "medium"

// MediumTable turns the medium composition sheet into a typed table: the
// name column first as text, every other column numeric with missing or
// unparsable cells published as 0
func MediumTable(rec *table.Records, nameColumn string) (*table.Frame, error) {
	f := table.NewFrame()
	if rec.Empty() {
		return f, nil
	}
	if err := f.AddText(MediumColumn, rec.Column(nameColumn)); err != nil {
		return nil, err
	}
	for _, h := range rec.Headers {
		if h == nameColumn || h == "" {
			continue
		}
		values := normalize.NormalizeNumericColumn(rec.Column(h))
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = 0
			}
		}
		if err := f.AddNumeric(h, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}
