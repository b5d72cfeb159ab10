// Package missing derives the missing_value classification of a reconciled key.
package missing

import (
	"fermload/domain/experiment"
	"fermload/internal/reconcile"
)

// Options describe which sources the pipeline has at all
type Options struct {
	// HasRawDataSource enables the raw_data label; pipelines without a raw
	// data export never report it.
	HasRawDataSource bool
}

// ComputeLabels returns the ordered labels of the data types missing for
// entry: info, raw_data, medium, then follow_up or follow_up_empty.
func ComputeLabels(entry *reconcile.Entry, opts Options) []experiment.MissingKind {
	var labels []experiment.MissingKind

	if entry.Info.Empty() {
		labels = append(labels, experiment.MissingInfo)
	}
	if opts.HasRawDataSource && entry.RawData.Empty() {
		labels = append(labels, experiment.MissingRawData)
	}
	if entry.MediumName == "" || entry.Medium.Empty() {
		labels = append(labels, experiment.MissingMedium)
	}
	switch {
	case entry.FollowUp.Empty():
		labels = append(labels, experiment.MissingFollowUp)
	case entry.FollowUpTable == nil || entry.FollowUpTable.Empty():
		labels = append(labels, experiment.MissingFollowUpEmpty)
	}
	return labels
}

// Tag wraps labels; no labels means no tag
func Tag(labels []experiment.MissingKind) *experiment.MissingValueTag {
	if len(labels) == 0 {
		return nil
	}
	return &experiment.MissingValueTag{Labels: append([]experiment.MissingKind(nil), labels...)}
}

// Build is ComputeLabels followed by Tag
func Build(entry *reconcile.Entry, opts Options) *experiment.MissingValueTag {
	return Tag(ComputeLabels(entry, opts))
}
