package experiment

import (
	"sort"
	"strings"
)

// Tag keys written on resources and columns
const (
	TagBatch         = "batch"
	TagSample        = "sample"
	TagMedium        = "medium"
	TagMissingValue  = "missing_value"
	TagColumnName    = "column_name"
	TagUnit          = "unit"
	TagIsIndexColumn = "is_index_column"
	TagIsDataColumn  = "is_data_column"
	TagPlate         = "plate"
	TagDescription   = "description"
)

// MediumTag carries the medium name plus its composition payload
type MediumTag struct {
	Name        string             `json:"name"`
	Composition map[string]float64 `json:"composition,omitempty"`
}

// Components returns composition keys in sorted order
func (m *MediumTag) Components() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.Composition))
	for k := range m.Composition {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MissingValueTag lists the data types absent for one key.
// A nil *MissingValueTag means every source is present.
type MissingValueTag struct {
	Labels []MissingKind `json:"labels"`
}

// String joins the labels with ", "
func (m *MissingValueTag) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, len(m.Labels))
	for i, l := range m.Labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}

// Has reports whether label is present
func (m *MissingValueTag) Has(label MissingKind) bool {
	if m == nil {
		return false
	}
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ParseMissingValueTag is the inverse of String. Empty input yields nil.
func ParseMissingValueTag(s string) (*MissingValueTag, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	tag := &MissingValueTag{Labels: make([]MissingKind, 0, len(parts))}
	for _, p := range parts {
		k, err := ParseMissingKind(p)
		if err != nil {
			return nil, err
		}
		tag.Labels = append(tag.Labels, k)
	}
	return tag, nil
}

// ColumnRole is the semantic role assigned to an output column
type ColumnRole int

const (
	RoleData ColumnRole = iota
	RoleIndex
	RoleMetadataExempt
)

func (r ColumnRole) String() string {
	switch r {
	case RoleIndex:
		return "index"
	case RoleMetadataExempt:
		return "metadata"
	default:
		return "data"
	}
}

// ColumnTags are the per-column tags of an output table
type ColumnTags struct {
	ColumnName string     `json:"column_name"`
	Unit       string     `json:"unit,omitempty"`
	Role       ColumnRole `json:"-"`
}

// IsIndex reports the is_index_column tag
func (c ColumnTags) IsIndex() bool { return c.Role == RoleIndex }

// IsData reports the is_data_column tag
func (c ColumnTags) IsData() bool { return c.Role == RoleData }

// Map renders the tags as written to the tagging layer. Metadata-exempt
// columns carry neither role tag.
func (c ColumnTags) Map() map[string]string {
	m := map[string]string{TagColumnName: c.ColumnName}
	if c.Unit != "" {
		m[TagUnit] = c.Unit
	}
	switch c.Role {
	case RoleIndex:
		m[TagIsIndexColumn] = "true"
	case RoleData:
		m[TagIsDataColumn] = "true"
	}
	return m
}
