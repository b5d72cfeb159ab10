package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/summary"
	"fermload/internal/venn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportInput(t *testing.T) Input {
	t.Helper()
	coll := experiment.NewCollection("run")
	require.NoError(t, coll.Add(&experiment.Resource{
		Name:    "E1_F1",
		Key:     experiment.Key{Batch: "E1", Sample: "F1"},
		Table:   table.NewFrame(),
		Missing: &experiment.MissingValueTag{Labels: []experiment.MissingKind{experiment.MissingMedium}},
	}))
	regions, err := venn.ComputeRegions([]venn.NamedSet{venn.NewSet("info", "a", "b"), venn.NewSet("follow_up", "b")})
	require.NoError(t, err)

	return Input{
		RunID:      "0190c6c8-0000-7000-8000-000000000000",
		Name:       "trial",
		Pipeline:   "fermentalg",
		StartedAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
		Collection: coll,
		Skipped:    []Skip{{Key: "E2 F1", Reason: "panic: boom"}},
		Warnings:   []string{"E1 F1: conflicting medium names"},
		Regions:    &regions,
		Stats:      []summary.ColumnStats{{Resource: "E1_F1", Column: "pH", Count: 2, Mean: 7, StdDev: math.NaN()}},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := string(Markdown(reportInput(t)))

	assert.True(t, strings.HasPrefix(md, "# Load run trial"))
	assert.Contains(t, md, "- **Resources:** 1")
	assert.Contains(t, md, "| E1_F1 | E1 | F1 | - | 0 | medium |")
	assert.Contains(t, md, "| info ∩ follow_up | 1 |")
	assert.Contains(t, md, "| E1_F1 | pH | - | 2 | 7 | - |")
	assert.Contains(t, md, "- `E2 F1`: panic: boom")
	assert.Contains(t, md, "## Warnings")
	assert.Contains(t, md, "2024-03-01T08:00:00Z")
}

func TestMarkdownMinimal(t *testing.T) {
	md := string(Markdown(Input{RunID: "r", Name: "empty", Pipeline: "biolector"}))
	assert.Contains(t, md, "- **Resources:** 0")
	assert.NotContains(t, md, "## Resources")
	assert.NotContains(t, md, "## Skipped keys")
}

func TestRenderHTML(t *testing.T) {
	out := string(Render(reportInput(t)))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<code>E2 F1</code>")
}
