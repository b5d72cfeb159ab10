package pivot

import (
	"fermload/internal/normalize"
)

// Geometry is the plate layout in use
type Geometry string

const (
	// GeometryStandard covers wells A01 to F08
	GeometryStandard Geometry = "standard"
	// GeometryMicrofluidics covers wells C01 to F08; rows A and B hold reservoirs
	GeometryMicrofluidics Geometry = "microfluidics"
)

const plateColumns = 8

// Wells returns the ordered well range of the geometry (row-major)
func (g Geometry) Wells() []string {
	first := 'A'
	if g == GeometryMicrofluidics {
		first = 'C'
	}
	var wells []string
	for r := first; r <= 'F'; r++ {
		for c := 1; c <= plateColumns; c++ {
			wells = append(wells, normalize.WellName(string(r), c))
		}
	}
	return wells
}

// DetectGeometry picks microfluidics unless "A01" is among the observed wells
func DetectGeometry(observed []string) Geometry {
	for _, w := range observed {
		if normalize.NormalizeWell(w) == "A01" {
			return GeometryStandard
		}
	}
	return GeometryMicrofluidics
}
