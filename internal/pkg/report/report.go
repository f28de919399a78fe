// Package report renders an eligibility summary for a transcript session as
// Markdown, and as HTML through goldmark.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/gpa"
)

// Input is everything a report shows.
type Input struct {
	Title        string
	Evaluation   gpa.Evaluation
	Requirements []transcript.PrerequisiteRequirement
	Table        transcript.CourseTable
	// Confirmed maps requirement id to the index of its matched row.
	Confirmed map[string]int
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders in as a Markdown document.
func Markdown(in Input) string {
	var b strings.Builder

	title := in.Title
	if title == "" {
		title = "Transcript evaluation"
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))

	ev := in.Evaluation
	b.WriteString("## GPA\n\n")
	b.WriteString("| Metric | GPA | Credits |\n|---|---:|---:|\n")
	metric(&b, "Cumulative", ev.Cumulative)
	metric(&b, fmt.Sprintf("Last %s credits", num(ev.Window)), ev.Trailing)
	metric(&b, "Prerequisites", ev.Prerequisite)
	fmt.Fprintf(&b, "\nMinimum GPA: %.2f\n\n", ev.MinGPA)

	verdict := "Not eligible"
	if ev.Eligible {
		verdict = "Eligible"
	}
	fmt.Fprintf(&b, "**%s.** %s\n\n", verdict, escape(ev.Recommendation()))

	if len(in.Requirements) > 0 {
		b.WriteString("## Prerequisites\n\n")
		b.WriteString("| Requirement | Code | Matched course | Grade |\n|---|---|---|---|\n")
		for _, req := range in.Requirements {
			course, grade := "missing", ""
			if i, ok := in.Confirmed[req.ID]; ok && i >= 0 && i < len(in.Table) {
				r := in.Table[i]
				course = strings.TrimSpace(r.CourseCode + " " + r.Title)
				grade = r.Grade
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(req.Name), cell(req.Code), cell(course), cell(grade))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Courses\n\n")
	if len(in.Table) == 0 {
		b.WriteString("No courses.\n")
		return b.String()
	}
	b.WriteString("| Code | Title | Credits | Grade | Term |\n|---|---|---:|---|---|\n")
	for _, r := range in.Table {
		grade := r.Grade
		if !r.Resolved() {
			grade += " (not counted)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", cell(r.CourseCode), cell(r.Title), num(r.Credits), cell(grade), cell(r.Term))
	}
	return b.String()
}

// HTML renders in as an HTML fragment.
func HTML(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(in)), &buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func metric(b *strings.Builder, name string, v gpa.Value) {
	credits := "-"
	if v.Defined {
		credits = num(v.Credits)
	}
	fmt.Fprintf(b, "| %s | %s | %s |\n", name, v.String(), credits)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return mdEscaper.Replace(s)
}

func cell(s string) string {
	return strings.ReplaceAll(escape(s), "|", `\|`)
}
