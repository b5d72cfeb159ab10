package experiment

import (
	"fmt"
	"sort"

	"fermload/domain/core"
	"fermload/domain/table"
)

// Resource is one output table (one per experiment key) with its tags
type Resource struct {
	Name        string
	Key         Key
	Plate       string
	Description string
	Table       *table.Frame
	Medium      *MediumTag
	Missing     *MissingValueTag
	Columns     map[string]ColumnTags
}

// Tags renders resource-level tags as plain strings. The medium
// composition travels separately in Medium; missing_value is omitted when nil.
func (r *Resource) Tags() map[string]string {
	tags := map[string]string{
		TagBatch:  r.Key.Batch,
		TagSample: r.Key.Sample,
	}
	if r.Plate != "" {
		tags[TagPlate] = r.Plate
	}
	if r.Description != "" {
		tags[TagDescription] = r.Description
	}
	if r.Medium != nil {
		tags[TagMedium] = r.Medium.Name
	}
	if r.Missing != nil {
		tags[TagMissingValue] = r.Missing.String()
	}
	return tags
}

// IndexColumn returns the name of the column tagged as index, if any
func (r *Resource) IndexColumn() (string, bool) {
	for _, name := range r.Table.Names() {
		if r.Columns[name].IsIndex() {
			return name, true
		}
	}
	return "", false
}

// DataColumns returns the names of columns tagged as data, in table order
func (r *Resource) DataColumns() []string {
	var out []string
	for _, name := range r.Table.Names() {
		if r.Columns[name].IsData() {
			out = append(out, name)
		}
	}
	return out
}

// Collection maps resource names to resources. Names are unique.
type Collection struct {
	Name      string
	resources map[string]*Resource
	order     []string
}

// NewCollection returns an empty named collection
func NewCollection(name string) *Collection {
	return &Collection{Name: name, resources: make(map[string]*Resource)}
}

// Add inserts a resource; a name collision is an error
func (c *Collection) Add(r *Resource) error {
	if _, exists := c.resources[r.Name]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateResource, r.Name)
	}
	c.resources[r.Name] = r
	c.order = append(c.order, r.Name)
	return nil
}

// Get looks up a resource by name
func (c *Collection) Get(name string) (*Resource, bool) {
	r, ok := c.resources[name]
	return r, ok
}

// Len returns the resource count
func (c *Collection) Len() int { return len(c.order) }

// Names returns resource names sorted alphabetically
func (c *Collection) Names() []string {
	names := append([]string(nil), c.order...)
	sort.Strings(names)
	return names
}

// Resources returns resources sorted by name
func (c *Collection) Resources() []*Resource {
	names := c.Names()
	out := make([]*Resource, len(names))
	for i, n := range names {
		out[i] = c.resources[n]
	}
	return out
}
