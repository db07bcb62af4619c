package cmd

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/designcheck/pkg/ai"
	"thoreinstein.com/designcheck/pkg/config"
	"thoreinstein.com/designcheck/pkg/figma"
	"thoreinstein.com/designcheck/pkg/github"
	"thoreinstein.com/designcheck/pkg/imaging"
	"thoreinstein.com/designcheck/pkg/jira"
	"thoreinstein.com/designcheck/pkg/workflow"
)

// newEngine validates cfg for mode and constructs only the adapters that
// mode drives.
func newEngine(cfg *config.Config, mode config.Mode, logger *slog.Logger) (*workflow.Engine, error) {
	if err := cfg.ValidateFor(mode); err != nil {
		return nil, err
	}

	deps, err := buildDependencies(cfg, mode, logger)
	if err != nil {
		return nil, err
	}
	return workflow.NewEngine(deps, cfg, logger), nil
}

func buildDependencies(cfg *config.Config, mode config.Mode, logger *slog.Logger) (workflow.Dependencies, error) {
	ghClient, err := github.NewAPIClient(&cfg.GitHub, github.WithAPILogger(logger))
	if err != nil {
		return workflow.Dependencies{}, errors.Wrap(err, "failed to create GitHub client")
	}

	deps := workflow.Dependencies{
		GitHub: ghClient,
		JobURL: jobURL(),
	}
	if mode == config.ModeRequest {
		return deps, nil
	}

	if cfg.Jira.Enabled {
		jiraClient, err := jira.NewAPIClient(&cfg.Jira, logger)
		if err != nil {
			return workflow.Dependencies{}, errors.Wrap(err, "failed to create Jira client")
		}
		deps.Jira = jiraClient
	}

	provider, err := ai.NewProvider(&cfg.AI, logger)
	if err != nil {
		return workflow.Dependencies{}, errors.Wrap(err, "failed to create AI provider")
	}
	deps.Collaborator = ai.NewCollaborator(provider, cfg.AI.Timeout, logger)

	if mode == config.ModeAnalyze {
		figmaClient, err := figma.NewClient(&cfg.Figma, logger)
		if err != nil {
			return workflow.Dependencies{}, errors.Wrap(err, "failed to create Figma client")
		}
		deps.Designs = figmaClient
		deps.Screenshots = imaging.NewDownloader(
			imaging.WithGitHubToken(cfg.GitHub.Token),
			imaging.WithLogger(logger),
		)
	}

	return deps, nil
}
