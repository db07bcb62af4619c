package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"thoreinstein.com/designcheck/pkg/annotate"
	"thoreinstein.com/designcheck/pkg/compare"
	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/figma"
	"thoreinstein.com/designcheck/pkg/github"
	"thoreinstein.com/designcheck/pkg/imaging"
	"thoreinstein.com/designcheck/pkg/jira"
	"thoreinstein.com/designcheck/pkg/links"
	"thoreinstein.com/designcheck/pkg/matcher"
	"thoreinstein.com/designcheck/pkg/report"
)

// Dependencies are the adapters the engine drives.
type Dependencies struct {
	GitHub github.Client
	// Jira may be nil when the ticket integration is disabled.
	Jira         jira.JiraClient
	Designs      figma.Resolver
	Collaborator Collaborator
	Screenshots  Downloader
	// JobURL is linked from the commit status when set.
	JobURL string
}

// Engine orchestrates the detect, request and analyze modes.
type Engine struct {
	github       github.Client
	jira         jira.JiraClient
	designs      figma.Resolver
	collaborator Collaborator
	screenshots  Downloader

	matcher    *matcher.Matcher
	aggregator *compare.Aggregator
	publisher  *report.Publisher

	patterns    links.Patterns
	trigger     string
	annotateOn  bool
	artifactDir string

	runID  string
	logger *slog.Logger
}

// NewEngine creates a workflow engine. Each engine is one run and carries
// its own run ID on every log line.
func NewEngine(deps Dependencies, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	trigger := cfg.Analysis.TriggerPhrase
	if trigger == "" {
		trigger = report.DefaultTriggerPhrase
	}

	// The ticket echo is separate from reading tickets.
	var echo jira.JiraClient
	if deps.Jira != nil && cfg.Jira.Comment {
		echo = deps.Jira
	}

	designHosts := cfg.Figma.Hosts
	if len(designHosts) == 0 {
		designHosts = links.DefaultDesignHosts
	}

	return &Engine{
		github:       deps.GitHub,
		jira:         deps.Jira,
		designs:      deps.Designs,
		collaborator: deps.Collaborator,
		screenshots:  deps.Screenshots,
		matcher:      matcher.New(deps.Collaborator, logger),
		aggregator:   compare.NewAggregator(deps.Collaborator, cfg.Analysis.Concurrency, logger),
		publisher: report.NewPublisher(deps.GitHub, echo, report.PublisherOptions{
			StatusContext: cfg.Analysis.StatusContext,
			TriggerPhrase: trigger,
			TargetURL:     deps.JobURL,
		}, logger),
		patterns: links.Patterns{
			TicketHosts: cfg.Jira.Hosts,
			DesignHosts: designHosts,
		},
		trigger:     trigger,
		annotateOn:  cfg.Analysis.Annotate,
		artifactDir: cfg.Analysis.ArtifactDir,
		runID:       runID,
		logger:      logger,
	}
}

// RunID returns the identifier of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Detect finds the design links reachable from a pull request through the
// tickets its description references, and marks the head commit pending when
// there are any.
func (e *Engine) Detect(ctx context.Context, prNumber int) (*DetectResult, error) {
	pr, err := e.github.GetPR(ctx, prNumber)
	if err != nil {
		return nil, rigerrors.NewWorkflowErrorWithCause("detect", "failed to read pull request", err)
	}

	result := e.findDesignLinks(ctx, pr)

	if result.HasDesignLinks && pr.HeadSHA != "" {
		if err := e.publisher.SetPending(ctx, pr.HeadSHA, "Waiting for implementation screenshots"); err != nil {
			e.logger.Warn("failed to set pending status", "error", err)
		}
	}

	e.logger.Info("detection complete",
		"pr", prNumber,
		"tickets", len(result.Tickets),
		"design_links", len(result.DesignLinks))
	return result, nil
}

// Request posts, or refreshes, the comment asking for screenshots.
func (e *Engine) Request(ctx context.Context, prNumber int, designLinks []string) error {
	if len(designLinks) == 0 {
		return rigerrors.NewWorkflowError("request", "no design links to request screenshots for")
	}
	if err := e.publisher.RequestScreenshots(ctx, prNumber, designLinks); err != nil {
		return err
	}
	e.logger.Info("requested screenshots", "pr", prNumber, "design_links", len(designLinks))
	return nil
}

// findDesignLinks walks PR description -> ticket URLs -> ticket keys ->
// ticket text -> design links. A ticket that cannot be read is skipped.
func (e *Engine) findDesignLinks(ctx context.Context, pr *github.PRInfo) *DetectResult {
	result := &DetectResult{}

	for _, u := range e.patterns.FindTicketURLs(pr.Body) {
		if key, ok := links.ExtractTicketKey(u); ok && !slices.Contains(result.Tickets, key) {
			result.Tickets = append(result.Tickets, key)
		}
	}
	if len(result.Tickets) == 0 {
		e.logDebug("no ticket links in pull request description", "pr", pr.Number)
		return result
	}
	if e.jira == nil {
		e.logger.Info("ticket integration disabled, skipping design link extraction", "tickets", result.Tickets)
		return result
	}

	var sections []string
	for _, key := range result.Tickets {
		content, err := e.jira.GetTicketContent(ctx, key)
		if err != nil {
			e.logger.Warn("failed to read ticket", "ticket", key, "error", err)
			continue
		}
		if result.Ticket == "" {
			result.Ticket = key
		}
		sections = append(sections, content.Text)
	}

	text := strings.Join(sections, "\n\n")
	if strings.TrimSpace(text) == "" {
		return result
	}

	seen := make(map[string]bool)
	for _, raw := range e.extractLinks(ctx, text) {
		d, ok := e.patterns.ParseDesignURL(raw)
		if !ok {
			e.logDebug("dropping link that is not a design URL", "url", raw)
			continue
		}
		canonical := d.Canonical()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		result.DesignLinks = append(result.DesignLinks, canonical)
	}
	result.HasDesignLinks = len(result.DesignLinks) > 0

	return result
}

// extractLinks asks the model for the design links in text. When the model
// is unavailable the text is scanned for design URLs instead.
func (e *Engine) extractLinks(ctx context.Context, text string) []string {
	extraction, err := e.collaborator.ExtractFigmaLinks(ctx, text)
	if err != nil {
		e.logger.Warn("model link extraction failed, scanning ticket text instead", "error", err)
		return e.patterns.FindDesignURLs(text)
	}
	e.logDebug("model extracted links", "count", len(extraction.Links), "confidence", extraction.Confidence)
	return extraction.Links
}

// analysisRun is the state threaded through the analysis steps.
type analysisRun struct {
	prNumber  int
	commentID int64

	pr     *github.PRInfo
	detect *DetectResult

	source      ScreenshotSource
	screenshots []imaging.Image

	designs      []imaging.Image
	designLabels []string

	match   matcher.Result
	results []compare.Result

	legends   map[int][]annotate.LegendEntry
	files     map[int]string
	artifacts []string

	report     *report.RunReport
	skipReason string
	manifest   *Manifest
}

// Analyze compares the screenshots of the chosen comment against the linked
// designs and publishes the report. When there is nothing to compare a
// neutral comment is posted and the result is marked skipped.
//
// commentID selects the screenshot comment; zero picks it automatically.
func (e *Engine) Analyze(ctx context.Context, prNumber int, commentID int64) (*AnalyzeResult, error) {
	run := &analysisRun{
		prNumber:  prNumber,
		commentID: commentID,
		manifest: &Manifest{
			RunID:          e.runID,
			PRNumber:       prNumber,
			CompletedSteps: make([]Step, 0, len(AllSteps())),
			StartedAt:      time.Now().UTC(),
		},
	}

	e.logger.Info("starting analysis", "pr", prNumber, "comment_id", commentID)

	steps := []struct {
		step Step
		fn   func(context.Context, *analysisRun) error
	}{
		{StepGather, e.runGather},
		{StepScreenshots, e.runScreenshots},
		{StepDesigns, e.runDesigns},
		{StepMatch, e.runMatch},
		{StepCompare, e.runCompare},
		{StepAnnotate, e.runAnnotate},
		{StepPublish, e.runPublish},
	}

	for _, s := range steps {
		e.logDebug("executing step", "step", s.step)

		if err := s.fn(ctx, run); err != nil {
			run.manifest.FailedStep = s.step
			e.saveManifest(run.manifest)
			return nil, rigerrors.NewWorkflowErrorWithCause(string(s.step), err.Error(), err)
		}
		run.manifest.CompletedSteps = append(run.manifest.CompletedSteps, s.step)

		if run.skipReason != "" {
			return e.skip(ctx, run)
		}
	}

	e.saveManifest(run.manifest)

	e.logger.Info("analysis complete",
		"pr", prNumber,
		"overall", run.report.OverallStatus,
		"pairs", len(run.report.Pairs))

	return &AnalyzeResult{
		RunID:     e.runID,
		Report:    run.report,
		Artifacts: run.artifacts,
	}, nil
}

func (e *Engine) runGather(ctx context.Context, run *analysisRun) error {
	pr, err := e.github.GetPR(ctx, run.prNumber)
	if err != nil {
		return err
	}
	run.pr = pr
	run.manifest.HeadSHA = pr.HeadSHA

	run.detect = e.findDesignLinks(ctx, pr)
	run.manifest.Ticket = run.detect.Ticket
	run.manifest.DesignLinks = run.detect.DesignLinks

	if !run.detect.HasDesignLinks {
		run.skipReason = "No design links were found in the tickets referenced by this pull request."
	}
	return nil
}

func (e *Engine) runScreenshots(ctx context.Context, run *analysisRun) error {
	comments, err := e.github.ListComments(ctx, run.prNumber)
	if err != nil {
		return err
	}

	source, ok := SelectScreenshots(comments, run.commentID, e.trigger)
	if !ok {
		run.skipReason = fmt.Sprintf("No screenshots were found. Post a comment with screenshots of the implementation and include `%s`.", e.trigger)
		return nil
	}
	run.source = source
	run.manifest.Screenshots = source.URLs
	e.logDebug("selected screenshot comment", "comment_id", source.Comment.ID, "images", len(source.URLs))

	images, errs := e.screenshots.DownloadAll(ctx, source.URLs)
	if len(errs) > 0 {
		e.logger.Warn("some screenshots could not be downloaded", "failed", len(errs), "total", len(source.URLs))
	}
	if len(images) == 0 {
		run.skipReason = fmt.Sprintf("None of the %d screenshot(s) could be downloaded.", len(source.URLs))
		return nil
	}
	run.screenshots = images
	return nil
}

func (e *Engine) runDesigns(ctx context.Context, run *analysisRun) error {
	for _, link := range run.detect.DesignLinks {
		images, err := e.designs.ResolveDesignURL(ctx, link)
		if err != nil {
			e.logger.Warn("failed to resolve design", "url", link, "error", err, "hint", rigerrors.FormatUserError(err))
			continue
		}
		for i, img := range images {
			label := link
			if len(images) > 1 {
				label = fmt.Sprintf("%s (frame %d)", link, i+1)
			}
			run.designs = append(run.designs, img)
			run.designLabels = append(run.designLabels, label)
		}
	}

	if len(run.designs) == 0 {
		run.skipReason = "None of the linked designs could be rendered."
	}
	return nil
}

func (e *Engine) runMatch(ctx context.Context, run *analysisRun) error {
	run.match = e.matcher.Match(ctx, run.screenshots, run.designs)
	e.logDebug("matched screenshots",
		"matches", len(run.match.Matches),
		"unmatched_screenshots", len(run.match.UnmatchedScreenshots),
		"unmatched_designs", len(run.match.UnmatchedDesigns))
	return nil
}

func (e *Engine) runCompare(ctx context.Context, run *analysisRun) error {
	pairs := make([]compare.Pair, len(run.match.Matches))
	for i, m := range run.match.Matches {
		pairs[i] = compare.Pair{
			Design:     run.designs[m.DesignIndex],
			Screenshot: run.screenshots[m.ScreenshotIndex],
			Note:       run.designLabels[m.DesignIndex],
		}
	}
	run.results = e.aggregator.CompareAll(ctx, pairs)
	return nil
}

func (e *Engine) runAnnotate(_ context.Context, run *analysisRun) error {
	run.legends = make(map[int][]annotate.LegendEntry)
	run.files = make(map[int]string)
	if !e.annotateOn || e.artifactDir == "" {
		return nil
	}

	for i, m := range run.match.Matches {
		result := run.results[i]
		if len(result.Issues) == 0 {
			continue
		}

		annotated, err := annotate.Annotate(run.screenshots[m.ScreenshotIndex], result.Issues)
		if err != nil {
			e.logger.Warn("failed to annotate screenshot", "pair", i+1, "error", err)
			continue
		}
		if !annotated.HasAnnotations {
			continue
		}

		name := fmt.Sprintf("designcheck-pair-%d.png", i+1)
		path, err := writeArtifact(e.artifactDir, name, annotated.Image.Data)
		if err != nil {
			e.logger.Warn("failed to write annotated screenshot", "pair", i+1, "error", err)
			continue
		}

		run.legends[i] = annotated.Legend
		run.files[i] = name
		run.artifacts = append(run.artifacts, path)
	}

	run.manifest.Artifacts = run.artifacts
	return nil
}

func (e *Engine) runPublish(ctx context.Context, run *analysisRun) error {
	pairs := make([]report.PairResult, len(run.match.Matches))
	for i, m := range run.match.Matches {
		pairs[i] = report.PairResult{
			Match:         m,
			DesignURL:     run.designLabels[m.DesignIndex],
			ScreenshotURL: run.screenshots[m.ScreenshotIndex].SourceURL,
			Result:        run.results[i],
			Legend:        run.legends[i],
			AnnotatedFile: run.files[i],
		}
	}

	unmatchedShots := make([]string, len(run.match.UnmatchedScreenshots))
	for i, idx := range run.match.UnmatchedScreenshots {
		unmatchedShots[i] = run.screenshots[idx].SourceURL
	}
	unmatchedDesigns := make([]string, len(run.match.UnmatchedDesigns))
	for i, idx := range run.match.UnmatchedDesigns {
		unmatchedDesigns[i] = run.designLabels[idx]
	}

	r := report.NewRunReport(e.runID, run.detect.Ticket, pairs, unmatchedShots, unmatchedDesigns)
	r.PRURL = run.pr.URL
	run.report = &r

	run.manifest.OverallStatus = r.OverallStatus
	for _, p := range pairs {
		run.manifest.Pairs = append(run.manifest.Pairs, ManifestPair{
			DesignURL:       p.DesignURL,
			ScreenshotURL:   p.ScreenshotURL,
			Confidence:      p.Match.Confidence,
			OverallMatch:    p.Result.OverallMatch,
			MatchPercentage: p.Result.MatchPercentage,
			Issues:          len(p.Result.Issues),
			AnnotatedFile:   p.AnnotatedFile,
		})
	}

	return e.publisher.Publish(ctx, run.prNumber, run.pr.HeadSHA, r)
}

// skip posts the neutral notice for a run with nothing to compare.
func (e *Engine) skip(ctx context.Context, run *analysisRun) (*AnalyzeResult, error) {
	e.logger.Info("nothing to analyze", "pr", run.prNumber, "reason", run.skipReason)

	headSHA := ""
	if run.pr != nil {
		headSHA = run.pr.HeadSHA
	}
	if err := e.publisher.PublishNotice(ctx, run.prNumber, headSHA, run.skipReason); err != nil {
		return nil, err
	}
	e.saveManifest(run.manifest)

	return &AnalyzeResult{
		RunID:   e.runID,
		Skipped: true,
		Reason:  run.skipReason,
	}, nil
}

func (e *Engine) saveManifest(m *Manifest) {
	if e.artifactDir == "" {
		return
	}
	if err := SaveManifest(e.artifactDir, m); err != nil {
		e.logger.Warn("failed to save run manifest", "error", err)
	}
}

func writeArtifact(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", rigerrors.Wrapf(err, "failed to create artifact directory")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", rigerrors.Wrapf(err, "failed to write %s", name)
	}
	return path, nil
}

// logDebug logs a debug message if a logger is configured.
func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
