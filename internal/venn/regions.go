// Package venn computes the disjoint regions of two or three named key
// sets and renders them as a Venn diagram.
package venn

import (
	"fmt"
	"sort"

	"fermload/domain/core"
)

// NamedSet is one circle of the diagram
type NamedSet struct {
	Name string
	Keys map[string]struct{}
}

// NewSet builds a NamedSet from keys (duplicates collapse)
func NewSet(name string, keys ...string) NamedSet {
	s := NamedSet{Name: name, Keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.Keys[k] = struct{}{}
	}
	return s
}

// Add inserts a key
func (s NamedSet) Add(key string) { s.Keys[key] = struct{}{} }

// Has reports membership
func (s NamedSet) Has(key string) bool {
	_, ok := s.Keys[key]
	return ok
}

// Len returns the cardinality
func (s NamedSet) Len() int { return len(s.Keys) }

// Regions holds the cardinality of every disjoint region. For two sets
// only OnlyA, OnlyB and AB are meaningful.
type Regions struct {
	Names []string `json:"names"`

	OnlyA int `json:"only_a"`
	OnlyB int `json:"only_b"`
	OnlyC int `json:"only_c"`
	AB    int `json:"a_and_b"`
	AC    int `json:"a_and_c"`
	BC    int `json:"b_and_c"`
	ABC   int `json:"a_and_b_and_c"`

	Union int `json:"union"`
}

// Sum adds every region count; it always equals Union
func (r Regions) Sum() int {
	return r.OnlyA + r.OnlyB + r.OnlyC + r.AB + r.AC + r.BC + r.ABC
}

// Region is one labelled cell of the diagram
type Region struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// List returns the regions with their member set names, singles first,
// full intersection last.
func (r Regions) List() []Region {
	n := r.Names
	if len(n) == 2 {
		return []Region{
			{ID: "only_a", Members: []string{n[0]}, Count: r.OnlyA},
			{ID: "only_b", Members: []string{n[1]}, Count: r.OnlyB},
			{ID: "a_and_b", Members: []string{n[0], n[1]}, Count: r.AB},
		}
	}
	return []Region{
		{ID: "only_a", Members: []string{n[0]}, Count: r.OnlyA},
		{ID: "only_b", Members: []string{n[1]}, Count: r.OnlyB},
		{ID: "only_c", Members: []string{n[2]}, Count: r.OnlyC},
		{ID: "a_and_b", Members: []string{n[0], n[1]}, Count: r.AB},
		{ID: "a_and_c", Members: []string{n[0], n[2]}, Count: r.AC},
		{ID: "b_and_c", Members: []string{n[1], n[2]}, Count: r.BC},
		{ID: "a_and_b_and_c", Members: []string{n[0], n[1], n[2]}, Count: r.ABC},
	}
}

// ComputeRegions partitions the union of 2 or 3 sets into disjoint regions
func ComputeRegions(sets []NamedSet) (Regions, error) {
	if len(sets) != 2 && len(sets) != 3 {
		return Regions{}, fmt.Errorf("%w: got %d", core.ErrUnsupportedSetCount, len(sets))
	}

	r := Regions{Names: make([]string, len(sets))}
	for i, s := range sets {
		r.Names[i] = s.Name
	}

	union := map[string]struct{}{}
	for _, s := range sets {
		for k := range s.Keys {
			union[k] = struct{}{}
		}
	}
	r.Union = len(union)

	empty := NamedSet{Keys: map[string]struct{}{}}
	a, b := sets[0], sets[1]
	c := empty
	if len(sets) == 3 {
		c = sets[2]
	}

	for k := range union {
		inA, inB, inC := a.Has(k), b.Has(k), c.Has(k)
		switch {
		case inA && inB && inC:
			r.ABC++
		case inA && inB:
			r.AB++
		case inA && inC:
			r.AC++
		case inB && inC:
			r.BC++
		case inA:
			r.OnlyA++
		case inB:
			r.OnlyB++
		default:
			r.OnlyC++
		}
	}
	return r, nil
}

// MembersOf lists the keys of one region, sorted; handy for drill-down views
func MembersOf(sets []NamedSet, regionID string) ([]string, error) {
	if len(sets) != 2 && len(sets) != 3 {
		return nil, fmt.Errorf("%w: got %d", core.ErrUnsupportedSetCount, len(sets))
	}
	want := map[string][3]bool{
		"only_a":        {true, false, false},
		"only_b":        {false, true, false},
		"only_c":        {false, false, true},
		"a_and_b":       {true, true, false},
		"a_and_c":       {true, false, true},
		"b_and_c":       {false, true, true},
		"a_and_b_and_c": {true, true, true},
	}
	mask, ok := want[regionID]
	if !ok {
		return nil, fmt.Errorf("unknown region %q", regionID)
	}

	var out []string
	seen := map[string]bool{}
	for _, s := range sets {
		for k := range s.Keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			match := true
			for i := 0; i < 3; i++ {
				in := i < len(sets) && sets[i].Has(k)
				if in != mask[i] {
					match = false
					break
				}
			}
			if match {
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
