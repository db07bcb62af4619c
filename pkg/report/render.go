package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"

	"thoreinstein.com/designcheck/pkg/compare"
)

// DefaultTriggerPhrase is the phrase reviewers include with screenshots.
const DefaultTriggerPhrase = "/design-check"

// analysisTemplate is the PR comment for a completed run. Strings that came
// from the model go through cell or clean.
const analysisTemplate = AnalysisMarker + `
## {{icon .OverallStatus}} Design check: {{title .OverallStatus}}

{{if .Ticket}}**Ticket:** {{.Ticket}}

{{end}}{{summaryLine .}}

{{if .Pairs -}}
| # | Result | Match | Issues | Design | Screenshot |
|---|--------|-------|--------|--------|------------|
{{range $i, $p := .Pairs -}}
| {{inc $i}} | {{icon $p.Result.OverallMatch}} {{title $p.Result.OverallMatch}} | {{$p.Result.MatchPercentage}}% | {{issueCounts $p.Result.Counts}} | [design]({{$p.DesignURL}}) | [screenshot]({{$p.ScreenshotURL}}) |
{{end}}
{{range $i, $p := .Pairs}}
### Pair {{inc $i}}: {{icon $p.Result.OverallMatch}} {{title $p.Result.OverallMatch}} ({{$p.Result.MatchPercentage}}%)

Paired with {{$p.Match.Confidence}}% confidence. {{cell $p.Match.Reasoning}}

{{clean $p.Result.Summary}}
{{if $p.Result.Issues}}
<details>
<summary>{{len $p.Result.Issues}} issue(s)</summary>

| Severity | Category | Description | Location |
|----------|----------|-------------|----------|
{{range $p.Result.Issues -}}
| {{.Severity}} | {{category .Category}} | {{cell .Description}} | {{cell .Location}} |
{{end}}
</details>
{{end}}
{{- if $p.AnnotatedFile}}
Annotated screenshot: ` + "`{{$p.AnnotatedFile}}`" + ` in the workflow artifacts.
{{range $p.Legend}}
- **{{.Number}}** ({{.Severity}}) {{cell .Description}}
{{- end}}
{{end}}
{{- if $p.Result.Recommendations}}
**Recommendations**
{{range $p.Result.Recommendations}}
- {{cell .}}
{{- end}}
{{end}}
{{- end}}
{{- end}}
{{- if .UnmatchedScreenshots}}
### Unmatched screenshots
{{range .UnmatchedScreenshots}}
- {{.}}
{{- end}}
{{end}}
{{- if .UnmatchedDesigns}}
### Unmatched designs
{{range .UnmatchedDesigns}}
- {{.}}
{{- end}}
{{end}}
---
<sub>designcheck run {{.RunID}}</sub>
`

const requestTemplate = RequestMarker + `
## 🎨 Screenshots needed for design review

This pull request is linked to the following design{{if gt (len .Links) 1}}s{{end}}:
{{range .Links}}
- {{.}}
{{- end}}

Reply with a comment containing screenshots of the implementation and include ` + "`{{.Trigger}}`" + ` to start the comparison.
`

const noticeTemplate = AnalysisMarker + `
## ℹ️ Design check: nothing to compare

{{.}}
`

var (
	strictPolicy = bluemonday.StrictPolicy()

	funcs = template.FuncMap{
		"icon":        statusIcon,
		"title":       statusTitle,
		"cell":        cell,
		"clean":       clean,
		"category":    categoryLabel,
		"issueCounts": issueCounts,
		"summaryLine": summaryLine,
		"inc":         func(i int) int { return i + 1 },
	}

	analysisTmpl = template.Must(template.New("analysis").Funcs(funcs).Parse(analysisTemplate))
	requestTmpl  = template.Must(template.New("request").Parse(requestTemplate))
	noticeTmpl   = template.Must(template.New("notice").Funcs(funcs).Parse(noticeTemplate))
)

// Render formats a run as the analysis PR comment. It is pure: the same
// report always renders to the same body.
func Render(r RunReport) string {
	var buf bytes.Buffer
	if err := analysisTmpl.Execute(&buf, r); err != nil {
		return formatSimple(r)
	}
	return buf.String()
}

// RenderRequest formats the comment asking reviewers for screenshots.
func RenderRequest(links []string) string {
	return RenderRequestWithTrigger(links, DefaultTriggerPhrase)
}

// RenderRequestWithTrigger is RenderRequest with a custom trigger phrase.
func RenderRequestWithTrigger(links []string, trigger string) string {
	var buf bytes.Buffer
	data := struct {
		Links   []string
		Trigger string
	}{links, trigger}
	if err := requestTmpl.Execute(&buf, data); err != nil {
		return RequestMarker + "\nScreenshots needed for: " + strings.Join(links, ", ") + "\n"
	}
	return buf.String()
}

// RenderNotice formats the neutral comment posted when a run had nothing to
// compare. It carries the analysis marker so a later run replaces it.
func RenderNotice(message string) string {
	var buf bytes.Buffer
	if err := noticeTmpl.Execute(&buf, clean(message)); err != nil {
		return AnalysisMarker + "\n" + clean(message) + "\n"
	}
	return buf.String()
}

// RenderText formats a run as plain text, for ticket comments.
func RenderText(r RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Design check: %s\n", strings.ToUpper(string(r.OverallStatus)))
	if r.PRURL != "" {
		fmt.Fprintf(&b, "Pull request: %s\n", r.PRURL)
	}
	b.WriteString(summaryLine(r) + "\n")

	for i, p := range r.Pairs {
		fmt.Fprintf(&b, "\nPair %d: %s (%d%%)\n", i+1, strings.ToUpper(string(p.Result.OverallMatch)), p.Result.MatchPercentage)
		fmt.Fprintf(&b, "Design: %s\n", p.DesignURL)
		if p.Result.Summary != "" {
			b.WriteString(plain(p.Result.Summary) + "\n")
		}
		for _, issue := range p.Result.Issues {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, plain(issue.Description))
		}
	}

	if n := len(r.UnmatchedScreenshots); n > 0 {
		fmt.Fprintf(&b, "\nUnmatched screenshots: %d\n", n)
	}
	if n := len(r.UnmatchedDesigns); n > 0 {
		fmt.Fprintf(&b, "Unmatched designs: %d\n", n)
	}

	return b.String()
}

// formatSimple is the fallback when the template fails.
func formatSimple(r RunReport) string {
	return AnalysisMarker + "\n## Design check: " + statusTitle(r.OverallStatus) + "\n\n" + RenderText(r)
}

func statusIcon(s compare.Status) string {
	switch s {
	case compare.StatusPass:
		return "✅"
	case compare.StatusWarning:
		return "⚠️"
	case compare.StatusFail:
		return "❌"
	default:
		return "❔"
	}
}

func statusTitle(s compare.Status) string {
	switch s {
	case compare.StatusPass:
		return "Pass"
	case compare.StatusWarning:
		return "Warning"
	case compare.StatusFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

func categoryLabel(c compare.Category) string {
	return strings.ReplaceAll(string(c), "_", " ")
}

func issueCounts(c compare.Counts) string {
	if c.Total() == 0 {
		return "none"
	}
	var parts []string
	if c.Critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", c.Critical))
	}
	if c.Major > 0 {
		parts = append(parts, fmt.Sprintf("%d major", c.Major))
	}
	if c.Minor > 0 {
		parts = append(parts, fmt.Sprintf("%d minor", c.Minor))
	}
	return strings.Join(parts, ", ")
}

func summaryLine(r RunReport) string {
	n := len(r.Pairs)
	if n == 0 {
		return "No screenshot/design pairs were compared."
	}
	pass, warning, fail := r.StatusCounts()
	noun := "pairs"
	if n == 1 {
		noun = "pair"
	}
	return fmt.Sprintf("Compared %d screenshot/design %s: %d passed, %d with warnings, %d failed.", n, noun, pass, warning, fail)
}

// clean strips all markup from model output.
func clean(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// plain is clean without HTML entities, for text that is not rendered as
// markdown.
func plain(s string) string {
	return html.UnescapeString(clean(s))
}

// cell makes model output safe for a single markdown table cell.
func cell(s string) string {
	s = clean(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
