// Package workflow runs the three externally triggered modes of the bot.
//
//  1. Detect - find design links through the tickets a PR references
//  2. Request - ask reviewers for implementation screenshots
//  3. Analyze - compare screenshots against designs and publish a report
//
// Analyze runs as a sequence of steps; the steps completed are recorded in
// the run manifest written next to the annotation artifacts.
package workflow

import (
	"context"

	"thoreinstein.com/designcheck/pkg/ai"
	"thoreinstein.com/designcheck/pkg/compare"
	"thoreinstein.com/designcheck/pkg/imaging"
	"thoreinstein.com/designcheck/pkg/matcher"
	"thoreinstein.com/designcheck/pkg/report"
)

// Step represents an analysis step.
type Step string

const (
	StepGather      Step = "gather"
	StepScreenshots Step = "screenshots"
	StepDesigns     Step = "designs"
	StepMatch       Step = "match"
	StepCompare     Step = "compare"
	StepAnnotate    Step = "annotate"
	StepPublish     Step = "publish"
)

// AllSteps returns all analysis steps in execution order.
func AllSteps() []Step {
	return []Step{StepGather, StepScreenshots, StepDesigns, StepMatch, StepCompare, StepAnnotate, StepPublish}
}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// Collaborator is the model-backed half of the pipeline.
type Collaborator interface {
	ExtractFigmaLinks(ctx context.Context, text string) (ai.LinkExtraction, error)
	matcher.Collaborator
	compare.Comparer
}

// Downloader fetches screenshot images.
type Downloader interface {
	DownloadAll(ctx context.Context, urls []string) ([]imaging.Image, []error)
}

// DetectResult is the outcome of Detect.
type DetectResult struct {
	HasDesignLinks bool
	// DesignLinks are canonical and deduplicated, in first-seen order.
	DesignLinks []string
	// Ticket is the first referenced ticket whose content was read.
	Ticket string
	// Tickets are every ticket key referenced by the PR.
	Tickets []string
}

// AnalyzeResult is the outcome of Analyze.
type AnalyzeResult struct {
	RunID string
	// Skipped is set when there was nothing to compare; Reason says why.
	Skipped bool
	Reason  string
	Report  *report.RunReport
	// Artifacts are the paths of annotated screenshots written this run.
	Artifacts []string
}
