package venn

import (
	"fermload/domain/experiment"
)

// SetsFromCollection builds one set per source kind from the resources'
// missing_value tags: a resource belongs to kind K unless its tag names K.
// An empty follow-up table counts as absent from the follow_up set.
func SetsFromCollection(coll *experiment.Collection, kinds []experiment.SourceKind) []NamedSet {
	sets := make([]NamedSet, len(kinds))
	for i, k := range kinds {
		sets[i] = NewSet(string(k))
	}

	for _, r := range coll.Resources() {
		key := memberKey(r)
		for i, k := range kinds {
			if present(r.Missing, k) {
				sets[i].Add(key)
			}
		}
	}
	return sets
}

func memberKey(r *experiment.Resource) string {
	if r.Plate != "" {
		return r.Plate + "_" + r.Key.Sample
	}
	return r.Key.String()
}

func present(tag *experiment.MissingValueTag, kind experiment.SourceKind) bool {
	if tag.Has(experiment.MissingKind(kind)) {
		return false
	}
	if kind == experiment.SourceFollowUp && tag.Has(experiment.MissingFollowUpEmpty) {
		return false
	}
	return true
}
