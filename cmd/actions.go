package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// actionsEvent is the subset of a GitHub Actions event payload needed to
// locate the pull request and the triggering comment. It covers the
// pull_request, pull_request_target and issue_comment events.
type actionsEvent struct {
	Number      int `json:"number"`
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number      int       `json:"number"`
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
	Comment *struct {
		ID int64 `json:"id"`
	} `json:"comment"`
}

// readEvent loads the event payload at path. A missing path yields an empty
// event.
func readEvent(path string) (*actionsEvent, error) {
	if path == "" {
		return &actionsEvent{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read event payload %s", path)
	}
	var ev actionsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrapf(err, "failed to parse event payload %s", path)
	}
	return &ev, nil
}

// prNumber returns the pull request the event concerns, or 0. Comments on
// plain issues do not count.
func (e *actionsEvent) prNumber() int {
	switch {
	case e.PullRequest != nil && e.PullRequest.Number > 0:
		return e.PullRequest.Number
	case e.Issue != nil && e.Issue.PullRequest != nil:
		return e.Issue.Number
	case e.PullRequest != nil:
		return e.Number
	}
	return 0
}

func (e *actionsEvent) commentID() int64 {
	if e.Comment == nil {
		return 0
	}
	return e.Comment.ID
}

// resolvePR returns flagValue when set, otherwise the pull request from the
// Actions event payload.
func resolvePR(flagValue int) (int, error) {
	if flagValue > 0 {
		return flagValue, nil
	}
	ev, err := readEvent(os.Getenv("GITHUB_EVENT_PATH"))
	if err != nil {
		return 0, err
	}
	if n := ev.prNumber(); n > 0 {
		return n, nil
	}
	return 0, errors.New("pull request number is required (pass --pr or run from a pull_request or issue_comment event)")
}

// resolveCommentID returns flagValue when set, otherwise the comment from the
// Actions event payload. Zero means no triggering comment.
func resolveCommentID(flagValue int64) int64 {
	if flagValue > 0 {
		return flagValue
	}
	ev, err := readEvent(os.Getenv("GITHUB_EVENT_PATH"))
	if err != nil {
		return 0
	}
	return ev.commentID()
}

// writeOutput writes one step output in the GITHUB_OUTPUT file format.
// Multi-line values use a random heredoc delimiter.
func writeOutput(w io.Writer, name, value string) error {
	var err error
	if strings.Contains(value, "\n") {
		delimiter := "ghadelimiter_" + uuid.NewString()
		_, err = fmt.Fprintf(w, "%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter)
	} else {
		_, err = fmt.Fprintf(w, "%s=%s\n", name, value)
	}
	return errors.Wrapf(err, "failed to write output %s", name)
}

// setOutputs appends outputs to $GITHUB_OUTPUT, or prints them to stdout
// when running outside Actions.
func setOutputs(stdout io.Writer, outputs [][2]string) error {
	w := stdout
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "failed to open GITHUB_OUTPUT")
		}
		defer f.Close()
		w = f
	}
	for _, o := range outputs {
		if err := writeOutput(w, o[0], o[1]); err != nil {
			return err
		}
	}
	return nil
}

// appendStepSummary appends markdown to $GITHUB_STEP_SUMMARY when set.
func appendStepSummary(markdown string) error {
	path := os.Getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open GITHUB_STEP_SUMMARY")
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, markdown); err != nil {
		return errors.Wrap(err, "failed to write step summary")
	}
	return nil
}

// jobURL links to the running workflow, or "" outside Actions.
func jobURL() string {
	server := os.Getenv("GITHUB_SERVER_URL")
	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if server == "" || repo == "" || runID == "" {
		return ""
	}
	return strings.TrimSuffix(server, "/") + "/" + repo + "/actions/runs/" + runID
}
