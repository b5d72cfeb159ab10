package run

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunLifecycle(t *testing.T) {
	r := NewRun("trial", "fermentalg", "abc")
	assert.Equal(t, StatusRunning, r.Status)
	assert.NotEmpty(t, r.ID)

	r.Finish(12, 1, nil)
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, 12, r.Resources)
	assert.GreaterOrEqual(t, r.Duration().Nanoseconds(), int64(0))

	failed := NewRun("trial", "fermentalg", "abc")
	failed.Finish(0, 0, errors.New("no metadata"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "no metadata", failed.Error)
}

func TestArtifactContentType(t *testing.T) {
	assert.Equal(t, "image/png", ArtifactVennPNG.ContentType())
	assert.Equal(t, "text/html; charset=utf-8", ArtifactReportHTML.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", ArtifactSummaryCSV.ContentType())
}
