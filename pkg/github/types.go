// Package github provides the pull request operations the bot needs: reading
// a PR and its conversation, upserting comments and setting commit statuses.
package github

import (
	"strings"
	"time"
)

// PRInfo represents pull request information.
type PRInfo struct {
	Number     int
	Title      string
	Body       string
	State      string // "open" or "closed"
	URL        string
	HeadSHA    string
	HeadBranch string
	BaseBranch string
	Author     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comment is one issue comment on a pull request.
type Comment struct {
	ID        int64
	Body      string
	Author    string
	IsBot     bool
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMarker reports whether the comment body contains marker.
func (c Comment) HasMarker(marker string) bool {
	return marker != "" && strings.Contains(c.Body, marker)
}

// StatusState is a commit status state.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
	StatusError   StatusState = "error"
)

// maxStatusDescription is the longest description GitHub accepts.
const maxStatusDescription = 140

// Status is a commit status to set on a SHA.
type Status struct {
	State       StatusState
	Context     string
	Description string
	TargetURL   string
}
