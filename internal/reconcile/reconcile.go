// Package reconcile joins the heterogeneous sources of a load run
// (info, raw data, medium composition, follow-up files) per experiment key.
package reconcile

import (
	"fmt"
	"sort"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/normalize"
)

// KeyedSource is a table whose rows carry an experiment key
type KeyedSource struct {
	Records      *table.Records
	BatchColumn  string
	SampleColumn string
	// NormalizeSample canonicalizes sample ids (e.g. normalize.NormalizeWell).
	// Defaults to normalize.NormalizeExperimentKey.
	NormalizeSample func(string) string
}

// MediumSource is the composition table keyed by medium name
type MediumSource struct {
	Records    *table.Records
	NameColumn string
}

// Sources groups the inputs of one load run. Any of them may be nil.
type Sources struct {
	Info     *KeyedSource
	RawData  *KeyedSource
	FollowUp *KeyedSource
	Medium   *MediumSource
	// MediumColumn is the info column naming the medium of each key
	MediumColumn string
}

// Entry is the per-key view over every source
type Entry struct {
	Key        experiment.Key
	MediumName string

	Info     *table.Records
	RawData  *table.Records
	FollowUp *table.Records
	Medium   *table.Records

	// FollowUpTable is attached by the pipeline once the matched
	// follow-up file has been parsed.
	FollowUpTable *table.Frame

	// Warnings records ambiguities resolved silently, such as conflicting
	// medium names for the same key.
	Warnings []string
}

// Has reports whether the slice of the given source is non-empty
func (e *Entry) Has(kind experiment.SourceKind) bool {
	switch kind {
	case experiment.SourceInfo:
		return !e.Info.Empty()
	case experiment.SourceRawData:
		return !e.RawData.Empty()
	case experiment.SourceMedium:
		return e.MediumName != "" && !e.Medium.Empty()
	case experiment.SourceFollowUp:
		return !e.FollowUp.Empty()
	}
	return false
}

// Reconciler computes entries lazily and memoizes them per key
type Reconciler struct {
	sources Sources
	keys    map[string]experiment.Key
	cache   map[string]*Entry
}

// New indexes the key union of every keyed source
func New(sources Sources) *Reconciler {
	r := &Reconciler{
		sources: sources,
		keys:    make(map[string]experiment.Key),
		cache:   make(map[string]*Entry),
	}

	// batch-wide follow-up rows (no sample) only add a key of their own
	// when no other source knows the batch
	batchWide := map[string]experiment.Key{}
	for _, src := range []*KeyedSource{sources.Info, sources.RawData, sources.FollowUp} {
		if src == nil || src.Records == nil {
			continue
		}
		for _, row := range src.Records.Rows {
			k := src.keyOf(row)
			if k.Batch == "" {
				continue
			}
			if k.Sample == "" && src == sources.FollowUp {
				batchWide[fold(k.Batch)] = k
				continue
			}
			id := foldKey(k)
			if _, seen := r.keys[id]; !seen {
				r.keys[id] = k
			}
		}
	}
	known := map[string]bool{}
	for _, k := range r.keys {
		known[fold(k.Batch)] = true
	}
	for b, k := range batchWide {
		if !known[b] {
			r.keys[foldKey(k)] = k
		}
	}
	return r
}

// Keys returns the key union sorted by batch then sample
func (r *Reconciler) Keys() []experiment.Key {
	out := make([]experiment.Key, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Entry returns the reconciled entry of key, computing it on first use.
// Keys outside the union yield nil.
func (r *Reconciler) Entry(key experiment.Key) *Entry {
	id := foldKey(key)
	if e, done := r.cache[id]; done {
		return e
	}
	canonical, ok := r.keys[id]
	if !ok {
		return nil
	}
	e := r.build(canonical)
	r.cache[id] = e
	return e
}

// All returns every entry in key order
func (r *Reconciler) All() []*Entry {
	keys := r.Keys()
	out := make([]*Entry, len(keys))
	for i, k := range keys {
		out[i] = r.Entry(k)
	}
	return out
}

// Reconcile computes the entry of every key in the union of all sources
func Reconcile(sources Sources) map[experiment.Key]*Entry {
	r := New(sources)
	out := make(map[experiment.Key]*Entry, len(r.keys))
	for _, e := range r.All() {
		out[e.Key] = e
	}
	return out
}

func (r *Reconciler) build(key experiment.Key) *Entry {
	e := &Entry{Key: key}
	e.Info = r.sources.Info.slice(key, false)
	e.RawData = r.sources.RawData.slice(key, false)
	e.FollowUp = r.sources.FollowUp.slice(key, true)

	if col := r.sources.MediumColumn; col != "" {
		for _, row := range e.Info.Rows {
			name := normalize.NormalizeExperimentKey(row[col])
			if name == "" {
				continue
			}
			if e.MediumName == "" {
				e.MediumName = name
				continue
			}
			if !normalize.SameKey(name, e.MediumName) {
				e.Warnings = append(e.Warnings,
					fmt.Sprintf("conflicting medium %q ignored, keeping %q", name, e.MediumName))
			}
		}
	}

	if e.MediumName != "" && r.sources.Medium != nil && r.sources.Medium.Records != nil {
		col := r.sources.Medium.NameColumn
		e.Medium = r.sources.Medium.Records.Filter(func(row table.Row) bool {
			return normalize.SameKey(row[col], e.MediumName)
		})
	} else {
		e.Medium = &table.Records{}
	}
	return e
}

func (s *KeyedSource) keyOf(row table.Row) experiment.Key {
	batch := normalize.NormalizeExperimentKey(row[s.BatchColumn])
	var sample string
	if s.SampleColumn != "" {
		raw := normalize.NormalizeExperimentKey(row[s.SampleColumn])
		if s.NormalizeSample != nil {
			sample = s.NormalizeSample(raw)
		} else {
			sample = raw
		}
	}
	return experiment.Key{Batch: batch, Sample: sample}
}

// slice returns the rows of the source matching key. With batchWide set,
// rows without a sample match every sample of their batch.
func (s *KeyedSource) slice(key experiment.Key, batchWide bool) *table.Records {
	if s == nil || s.Records == nil {
		return &table.Records{}
	}
	want := foldKey(key)
	return s.Records.Filter(func(row table.Row) bool {
		k := s.keyOf(row)
		if foldKey(k) == want {
			return true
		}
		return batchWide && k.Sample == "" && fold(k.Batch) == fold(key.Batch)
	})
}

func fold(s string) string { return normalize.FoldKey(s) }

func foldKey(k experiment.Key) string {
	return fold(k.Batch) + "\x00" + fold(k.Sample)
}
