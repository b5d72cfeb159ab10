package run

import (
	"time"

	"fermload/domain/core"
)

// Status is the lifecycle state of a load run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the persisted record of one pipeline execution
type Run struct {
	ID          core.RunID `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Pipeline    string     `db:"pipeline" json:"pipeline"`
	Status      Status     `db:"status" json:"status"`
	Fingerprint core.Hash  `db:"fingerprint" json:"fingerprint"`
	Resources   int        `db:"resource_count" json:"resource_count"`
	Skipped     int        `db:"skipped_count" json:"skipped_count"`
	Error       string     `db:"error_message" json:"error,omitempty"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	FinishedAt  time.Time  `db:"finished_at" json:"finished_at"`
}

// NewRun starts a run record
func NewRun(name, pipeline string, fingerprint core.Hash) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:          core.NewRunID(),
		Name:        name,
		Pipeline:    pipeline,
		Status:      StatusRunning,
		Fingerprint: fingerprint,
		StartedAt:   now,
		FinishedAt:  now,
	}
}

// Finish closes the record with the outcome of the run
func (r *Run) Finish(resources, skipped int, err error) {
	r.FinishedAt = time.Now().UTC()
	r.Resources = resources
	r.Skipped = skipped
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusSucceeded
}

// Duration is the wall time between start and finish
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResourceRecord is one stored output table with its tags
type ResourceRecord struct {
	RunID   core.RunID `db:"run_id" json:"run_id"`
	Name    string     `db:"name" json:"name"`
	Batch   string     `db:"batch" json:"batch"`
	Sample  string     `db:"sample" json:"sample"`
	Plate   string     `db:"plate" json:"plate,omitempty"`
	Medium  string     `db:"medium" json:"medium,omitempty"`
	Missing string     `db:"missing_value" json:"missing_value,omitempty"`
	Rows    int        `db:"row_count" json:"rows"`
	// Tags is the JSON encoding of the resource and column tags
	Tags string `db:"tags" json:"tags"`
	// CSV is omitted from listings
	CSV []byte `db:"content" json:"-"`
}

// ArtifactKind names a run-level output
type ArtifactKind string

const (
	ArtifactVennPNG    ArtifactKind = "venn_png"
	ArtifactReportMD   ArtifactKind = "report_md"
	ArtifactReportHTML ArtifactKind = "report_html"
	ArtifactSummaryCSV ArtifactKind = "summary_csv"
	ArtifactMediumCSV  ArtifactKind = "medium_csv"
)

// ContentType returns the HTTP content type of the artifact kind
func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactVennPNG:
		return "image/png"
	case ArtifactReportHTML:
		return "text/html; charset=utf-8"
	case ArtifactReportMD:
		return "text/markdown; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Artifact is a run-level blob
type Artifact struct {
	RunID   core.RunID   `db:"run_id"`
	Kind    ArtifactKind `db:"kind"`
	Content []byte       `db:"content"`
}
