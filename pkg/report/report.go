// Package report renders analysis runs as PR comments and publishes them.
package report

import (
	"time"

	"thoreinstein.com/designcheck/pkg/annotate"
	"thoreinstein.com/designcheck/pkg/compare"
	"thoreinstein.com/designcheck/pkg/matcher"
)

// Comment markers. Each bot comment carries exactly one so it can be found
// and overwritten on the next run.
const (
	AnalysisMarker = "<!-- designcheck:analysis -->"
	RequestMarker  = "<!-- designcheck:request -->"
)

// PairResult is the comparison of one matched screenshot/design pair.
type PairResult struct {
	Match         matcher.Match
	DesignURL     string
	ScreenshotURL string
	Result        compare.Result

	// Legend explains the markers on the annotated screenshot, if any.
	Legend []annotate.LegendEntry
	// AnnotatedFile is the artifact file name of the annotated screenshot.
	AnnotatedFile string
}

// RunReport is everything one analysis run produced.
type RunReport struct {
	RunID                string
	Ticket               string
	PRURL                string
	Pairs                []PairResult
	UnmatchedScreenshots []string
	UnmatchedDesigns     []string
	OverallStatus        compare.Status
	GeneratedAt          time.Time
}

// NewRunReport assembles a report and derives its overall status from the
// pair verdicts.
func NewRunReport(runID, ticket string, pairs []PairResult, unmatchedScreenshots, unmatchedDesigns []string) RunReport {
	results := make([]compare.Result, len(pairs))
	for i, p := range pairs {
		results[i] = p.Result
	}
	return RunReport{
		RunID:                runID,
		Ticket:               ticket,
		Pairs:                pairs,
		UnmatchedScreenshots: unmatchedScreenshots,
		UnmatchedDesigns:     unmatchedDesigns,
		OverallStatus:        compare.Overall(results),
		GeneratedAt:          time.Now().UTC(),
	}
}

// StatusCounts returns how many pairs ended in each verdict.
func (r RunReport) StatusCounts() (pass, warning, fail int) {
	for _, p := range r.Pairs {
		switch p.Result.OverallMatch {
		case compare.StatusPass:
			pass++
		case compare.StatusWarning:
			warning++
		case compare.StatusFail:
			fail++
		}
	}
	return pass, warning, fail
}
