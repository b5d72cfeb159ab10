package experiment

import (
	"fmt"
	"strings"
)

// Key identifies one output table: a batch (experiment, trial or plate)
// and a sample (fermenter or well) inside it.
type Key struct {
	Batch  string `json:"batch"`
	Sample string `json:"sample"`
}

// String renders the key as "batch sample"
func (k Key) String() string {
	if k.Sample == "" {
		return k.Batch
	}
	return fmt.Sprintf("%s %s", k.Batch, k.Sample)
}

// IsZero reports whether both parts are empty
func (k Key) IsZero() bool {
	return k.Batch == "" && k.Sample == ""
}

// Less orders keys by batch then sample
func (k Key) Less(other Key) bool {
	if k.Batch != other.Batch {
		return k.Batch < other.Batch
	}
	return k.Sample < other.Sample
}

// SourceKind names one of the data sources joined per key
type SourceKind string

const (
	SourceInfo     SourceKind = "info"
	SourceRawData  SourceKind = "raw_data"
	SourceMedium   SourceKind = "medium"
	SourceFollowUp SourceKind = "follow_up"
)

// AllSources lists source kinds in reporting order
var AllSources = []SourceKind{SourceInfo, SourceRawData, SourceMedium, SourceFollowUp}

// MissingKind is one label of the missing_value tag
type MissingKind string

const (
	MissingInfo          MissingKind = "info"
	MissingRawData       MissingKind = "raw_data"
	MissingMedium        MissingKind = "medium"
	MissingFollowUp      MissingKind = "follow_up"
	MissingFollowUpEmpty MissingKind = "follow_up_empty"
)

// ParseMissingKind validates a serialized label
func ParseMissingKind(s string) (MissingKind, error) {
	switch k := MissingKind(strings.TrimSpace(s)); k {
	case MissingInfo, MissingRawData, MissingMedium, MissingFollowUp, MissingFollowUpEmpty:
		return k, nil
	default:
		return "", fmt.Errorf("unknown missing data label %q", s)
	}
}
