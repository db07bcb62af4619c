package report

import (
	"context"
	"fmt"
	"log/slog"

	"thoreinstein.com/designcheck/pkg/compare"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/github"
	"thoreinstein.com/designcheck/pkg/jira"
)

// DefaultStatusContext is the commit status context the bot owns.
const DefaultStatusContext = "designcheck/figma"

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// StatusContext overrides DefaultStatusContext.
	StatusContext string
	// TriggerPhrase overrides DefaultTriggerPhrase in request comments.
	TriggerPhrase string
	// TargetURL is linked from the commit status, typically the job URL.
	TargetURL string
}

// Publisher writes run results back to the pull request and the ticket.
type Publisher struct {
	github github.Client
	// jira is optional; nil disables the ticket echo.
	jira jira.JiraClient

	statusContext string
	trigger       string
	targetURL     string
	logger        *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(gh github.Client, jiraClient jira.JiraClient, opts PublisherOptions, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	statusContext := opts.StatusContext
	if statusContext == "" {
		statusContext = DefaultStatusContext
	}
	trigger := opts.TriggerPhrase
	if trigger == "" {
		trigger = DefaultTriggerPhrase
	}
	return &Publisher{
		github:        gh,
		jira:          jiraClient,
		statusContext: statusContext,
		trigger:       trigger,
		targetURL:     opts.TargetURL,
		logger:        logger,
	}
}

// Publish upserts the analysis comment, sets the commit status and, best
// effort, echoes the result to the ticket. Running it twice with the same
// report leaves one comment with the same body.
func (p *Publisher) Publish(ctx context.Context, prNumber int, headSHA string, r RunReport) error {
	if _, err := github.UpsertComment(ctx, p.github, prNumber, AnalysisMarker, Render(r)); err != nil {
		return rigerrors.NewWorkflowErrorWithCause("publish", "failed to post analysis comment", err)
	}

	state, description := statusFor(r)
	if err := p.setStatus(ctx, headSHA, state, description); err != nil {
		return err
	}

	p.echoToTicket(ctx, r)

	p.logger.Info("published analysis",
		"pr", prNumber,
		"overall", r.OverallStatus,
		"pairs", len(r.Pairs))
	return nil
}

// PublishNotice replaces the analysis comment with a neutral message and
// resolves any pending status as successful.
func (p *Publisher) PublishNotice(ctx context.Context, prNumber int, headSHA, message string) error {
	if _, err := github.UpsertComment(ctx, p.github, prNumber, AnalysisMarker, RenderNotice(message)); err != nil {
		return rigerrors.NewWorkflowErrorWithCause("publish", "failed to post notice comment", err)
	}
	if headSHA == "" {
		return nil
	}
	return p.setStatus(ctx, headSHA, github.StatusSuccess, "Skipped: "+message)
}

// RequestScreenshots upserts the comment asking for screenshots of links.
func (p *Publisher) RequestScreenshots(ctx context.Context, prNumber int, links []string) error {
	if _, err := github.UpsertComment(ctx, p.github, prNumber, RequestMarker, RenderRequestWithTrigger(links, p.trigger)); err != nil {
		return rigerrors.NewWorkflowErrorWithCause("request", "failed to post screenshot request", err)
	}
	return nil
}

// SetPending marks sha as awaiting a design check.
func (p *Publisher) SetPending(ctx context.Context, sha, description string) error {
	return p.setStatus(ctx, sha, github.StatusPending, description)
}

func (p *Publisher) setStatus(ctx context.Context, sha string, state github.StatusState, description string) error {
	err := p.github.CreateStatus(ctx, sha, github.Status{
		State:       state,
		Context:     p.statusContext,
		Description: description,
		TargetURL:   p.targetURL,
	})
	if err != nil {
		return rigerrors.NewWorkflowErrorWithCause("status", "failed to set commit status", err)
	}
	return nil
}

func (p *Publisher) echoToTicket(ctx context.Context, r RunReport) {
	if p.jira == nil || r.Ticket == "" {
		return
	}
	if err := p.jira.AddComment(ctx, r.Ticket, RenderText(r)); err != nil {
		p.logger.Warn("failed to comment on ticket", "ticket", r.Ticket, "error", err)
	}
}

// statusFor maps a run to a commit status: any failure fails, everything
// else succeeds with warnings noted in the description.
func statusFor(r RunReport) (github.StatusState, string) {
	pass, warning, fail := r.StatusCounts()
	total := pass + warning + fail

	switch {
	case r.OverallStatus == compare.StatusFail:
		return github.StatusFailure, fmt.Sprintf("%d of %d design comparisons failed", fail, total)
	case warning > 0:
		return github.StatusSuccess, fmt.Sprintf("%d of %d design comparisons passed with warnings", warning, total)
	case total == 0:
		return github.StatusSuccess, "No design comparisons ran"
	default:
		return github.StatusSuccess, fmt.Sprintf("All %d design comparisons passed", total)
	}
}
