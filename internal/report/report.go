// Package report renders the human-readable summary of a load run as
// markdown and HTML.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fermload/domain/experiment"
	"fermload/internal/summary"
	"fermload/internal/venn"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Skip records a key dropped during the run
type Skip struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Input is everything a report shows
type Input struct {
	RunID      string
	Name       string
	Pipeline   string
	StartedAt  time.Time
	Duration   time.Duration
	Collection *experiment.Collection
	Skipped    []Skip
	Warnings   []string
	Regions    *venn.Regions
	Stats      []summary.ColumnStats
}

// Markdown renders the report source
func Markdown(in Input) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Load run %s\n\n", in.Name)
	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", in.RunID)
	fmt.Fprintf(&b, "- **Pipeline:** %s\n", in.Pipeline)
	if !in.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", in.StartedAt.UTC().Format(time.RFC3339))
	}
	if in.Duration > 0 {
		fmt.Fprintf(&b, "- **Duration:** %s\n", in.Duration.Round(time.Millisecond))
	}
	resources := 0
	if in.Collection != nil {
		resources = in.Collection.Len()
	}
	fmt.Fprintf(&b, "- **Resources:** %d\n- **Skipped keys:** %d\n\n", resources, len(in.Skipped))

	if in.Collection != nil && in.Collection.Len() > 0 {
		b.WriteString("## Resources\n\n")
		b.WriteString("| Resource | Batch | Sample | Medium | Rows | Missing |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, r := range in.Collection.Resources() {
			medium := ""
			if r.Medium != nil {
				medium = r.Medium.Name
			}
			missing := r.Missing.String()
			if missing == "" {
				missing = "none"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
				cell(r.Name), cell(r.Key.Batch), cell(r.Key.Sample), cell(medium), r.Table.NumRows(), missing)
		}
		b.WriteString("\n")
	}

	if in.Regions != nil {
		b.WriteString("## Data completeness\n\n")
		fmt.Fprintf(&b, "Sets: %s (union %d)\n\n", strings.Join(in.Regions.Names, ", "), in.Regions.Union)
		b.WriteString("| Region | Count |\n|---|---|\n")
		for _, region := range in.Regions.List() {
			fmt.Fprintf(&b, "| %s | %d |\n", strings.Join(region.Members, " ∩ "), region.Count)
		}
		b.WriteString("\n")
	}

	if len(in.Stats) > 0 {
		b.WriteString("## Statistics\n\n")
		b.WriteString("| Resource | Column | Unit | N | Mean | Std | Min | Median | Max |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
		for _, s := range in.Stats {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s | %s | %s | %s |\n",
				cell(s.Resource), cell(s.Column), cell(s.Unit), s.Count,
				num(s.Mean), num(s.StdDev), num(s.Min), num(s.Median), num(s.Max))
		}
		b.WriteString("\n")
	}

	if len(in.Skipped) > 0 {
		b.WriteString("## Skipped keys\n\n")
		for _, s := range in.Skipped {
			fmt.Fprintf(&b, "- `%s`: %s\n", s.Key, s.Reason)
		}
		b.WriteString("\n")
	}

	if len(in.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range in.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// HTML converts report markdown to an HTML fragment
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.Render(doc, renderer)
}

// Render is Markdown followed by HTML
func Render(in Input) []byte {
	return HTML(Markdown(in))
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}
