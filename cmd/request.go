package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/designcheck/pkg/config"
)

var (
	requestPR    int
	requestLinks string
)

// requestCmd asks reviewers for implementation screenshots.
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Ask for implementation screenshots on a pull request",
	Long: `Post, or update in place, the comment asking for implementation screenshots.

--links takes the design_links output of detect (a JSON array) or a comma
separated list.

Examples:
  designcheck request --pr 42 --links '["https://www.figma.com/design/abc/App?node-id=1:2"]'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().IntVar(&requestPR, "pr", 0, "pull request number")
	requestCmd.Flags().StringVar(&requestLinks, "links", "", "design links as a JSON array or comma separated list")
}

func runRequest(ctx context.Context, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	prNumber, err := resolvePR(requestPR)
	if err != nil {
		return err
	}

	designLinks, err := parseLinks(requestLinks)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, config.ModeRequest, newLogger(os.Stderr, verbose))
	if err != nil {
		return err
	}

	if err := engine.Request(ctx, prNumber, designLinks); err != nil {
		return err
	}

	printSuccess(stdout, "Requested screenshots for %d design(s) on PR #%d", len(designLinks), prNumber)
	return nil
}

// parseLinks accepts a JSON array or a comma separated list.
func parseLinks(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var parsed []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, errors.Wrap(err, "invalid --links JSON array")
		}
	} else {
		parsed = strings.Split(raw, ",")
	}

	var out []string
	for _, l := range parsed {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
