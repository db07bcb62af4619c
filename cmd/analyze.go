package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/designcheck/pkg/config"
	"thoreinstein.com/designcheck/pkg/report"
	"thoreinstein.com/designcheck/pkg/workflow"
)

var (
	analyzePR        int
	analyzeCommentID int64
)

// analyzeCmd compares implementation screenshots against the linked designs.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare screenshots on a pull request against its Figma designs",
	Long: `Compare implementation screenshots against the pull request's Figma designs.

Design links are re-derived from the PR's Jira tickets. Screenshots come from
the comment named by --comment-id or, failing that, the newest comment with
images (comments containing the trigger phrase are preferred).

The report is published as a PR comment updated in place, a commit status
and, when enabled, a Jira comment. A failing comparison is reported through
the commit status; the command itself exits zero once the report is out.

Examples:
  designcheck analyze --pr 42
  designcheck analyze --pr 42 --comment-id 123456 --mock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().IntVar(&analyzePR, "pr", 0, "pull request number")
	analyzeCmd.Flags().Int64Var(&analyzeCommentID, "comment-id", 0, "comment holding the screenshots (default: chosen automatically)")
	analyzeCmd.Flags().Bool("mock", false, "render placeholder images instead of calling Figma")
	analyzeCmd.Flags().String("artifact-dir", "", "directory for annotated screenshots and the run manifest")
	analyzeCmd.Flags().Bool("annotate", true, "draw issue markers on screenshots")
	analyzeCmd.Flags().Int("concurrency", 0, "maximum comparisons in flight")
}

func runAnalyze(ctx context.Context, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	prNumber, err := resolvePR(analyzePR)
	if err != nil {
		return err
	}
	commentID := resolveCommentID(analyzeCommentID)

	logger := newLogger(os.Stderr, verbose)
	engine, err := newEngine(cfg, config.ModeAnalyze, logger)
	if err != nil {
		return err
	}

	result, err := engine.Analyze(ctx, prNumber, commentID)
	if err != nil {
		return err
	}

	summarizeAnalysis(stdout, logger, result)
	return nil
}

// summarizeAnalysis prints the console summary and writes the job summary.
func summarizeAnalysis(w io.Writer, logger *slog.Logger, result *workflow.AnalyzeResult) {
	if result.Skipped {
		printInfo(w, "Nothing to compare: %s", result.Reason)
		if err := appendStepSummary(report.RenderNotice(result.Reason)); err != nil {
			logger.Warn("failed to write step summary", "error", err)
		}
		return
	}

	r := result.Report
	pass, warning, fail := r.StatusCounts()
	printStatus(w, r.OverallStatus, "Design check %s: %d passed, %d with warnings, %d failed",
		r.OverallStatus, pass, warning, fail)
	for _, a := range result.Artifacts {
		printInfo(w, "Annotated screenshot: %s", a)
	}

	if err := appendStepSummary(report.Render(*r)); err != nil {
		logger.Warn("failed to write step summary", "error", err)
	}
}
