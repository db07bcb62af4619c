package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/designcheck/pkg/config"
	"thoreinstein.com/designcheck/pkg/workflow"
)

var detectPR int

// detectCmd finds design links through the tickets a PR references.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find Figma design links behind a pull request's Jira tickets",
	Long: `Find the Figma design links reachable from a pull request.

Scans the PR description for Jira ticket links, reads each ticket and asks
the AI provider to pull design links out of the ticket text. When links are
found a pending commit status is set.

Writes the step outputs has_design_links, design_links (a JSON array) and
ticket to $GITHUB_OUTPUT, or to stdout outside GitHub Actions.

Examples:
  designcheck detect --pr 42
  designcheck detect          # PR taken from $GITHUB_EVENT_PATH`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().IntVar(&detectPR, "pr", 0, "pull request number")
}

func runDetect(ctx context.Context, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	prNumber, err := resolvePR(detectPR)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, verbose)
	engine, err := newEngine(cfg, config.ModeDetect, logger)
	if err != nil {
		return err
	}

	result, err := engine.Detect(ctx, prNumber)
	if err != nil {
		return err
	}

	outputs, err := detectOutputs(result)
	if err != nil {
		return err
	}
	return setOutputs(stdout, outputs)
}

// detectOutputs converts a detect result to step outputs.
func detectOutputs(result *workflow.DetectResult) ([][2]string, error) {
	designLinks := result.DesignLinks
	if designLinks == nil {
		designLinks = []string{}
	}
	// Query strings keep their ampersands unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(designLinks); err != nil {
		return nil, errors.Wrap(err, "failed to encode design links")
	}
	return [][2]string{
		{"has_design_links", strconv.FormatBool(result.HasDesignLinks)},
		{"design_links", strings.TrimSpace(buf.String())},
		{"ticket", result.Ticket},
	}, nil
}
