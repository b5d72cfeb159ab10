// Package classify assigns semantic roles and units to output columns
// based on their human-authored headers.
package classify

import (
	"regexp"
	"strings"

	"fermload/domain/experiment"
	"fermload/domain/table"
)

// Classification is the outcome of ClassifyColumn
type Classification struct {
	DisplayName string
	Unit        string
	Role        experiment.ColumnRole
}

// Tags converts the classification to column tags
func (c Classification) Tags() experiment.ColumnTags {
	return experiment.ColumnTags{ColumnName: c.DisplayName, Unit: c.Unit, Role: c.Role}
}

var unitPattern = regexp.MustCompile(`^(.*\S)\s*\(([^()]*)\)\s*$`)

// identifier columns never receive a role tag
var identifierColumns = map[string]bool{
	"essai":      true,
	"fermenteur": true,
	"batch":      true,
	"sample":     true,
	"experiment": true,
	"fermenter":  true,
	"well":       true,
	"plate":      true,
	"puits":      true,
}

var mediumKeywords = []string{"milieu", "medium"}

var timeAliases = map[string]bool{
	"temps de culture (h)": true,
	"temps (h)":            true,
	"temps":                true,
	"time":                 true,
	"temps_en_h":           true,
}

var timeKeywords = []string{"temps", "time"}

// SplitUnit separates a trailing parenthesized unit from a header:
// "Dissolved Oxygen (mg/L)" -> ("Dissolved Oxygen", "mg/L").
// Headers without the pattern come back trimmed with an empty unit.
func SplitUnit(name string) (display, unit string) {
	if m := unitPattern.FindStringSubmatch(name); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(name), ""
}

// ClassifyColumn splits off the unit and assigns a role.
// Precedence: metadata-exempt, then index, then data.
func ClassifyColumn(name string) Classification {
	display, unit := SplitUnit(name)
	c := Classification{DisplayName: display, Unit: unit}

	switch {
	case isMetadataExempt(name, display):
		c.Role = experiment.RoleMetadataExempt
	case isIndex(name, display):
		c.Role = experiment.RoleIndex
	default:
		c.Role = experiment.RoleData
	}
	return c
}

func isMetadataExempt(name, display string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if identifierColumns[lower] || identifierColumns[strings.ToLower(display)] {
		return true
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isIndex(name, display string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if timeAliases[lower] || timeAliases[strings.ToLower(display)] {
		return true
	}
	for _, kw := range timeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TagColumns classifies every column of a frame
func TagColumns(f *table.Frame) map[string]experiment.ColumnTags {
	out := make(map[string]experiment.ColumnTags, f.NumColumns())
	for _, name := range f.Names() {
		out[name] = ClassifyColumn(name).Tags()
	}
	return out
}

// IndexColumn returns the first column of f classified as index
func IndexColumn(f *table.Frame) (string, bool) {
	for _, name := range f.Names() {
		if ClassifyColumn(name).Role == experiment.RoleIndex {
			return name, true
		}
	}
	return "", false
}
