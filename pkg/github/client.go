package github

import (
	"context"
)

// Client defines the GitHub operations used by the workflow.
type Client interface {
	// GetPR retrieves pull request information by number.
	GetPR(ctx context.Context, number int) (*PRInfo, error)

	// ListComments returns every issue comment on the pull request, oldest first.
	ListComments(ctx context.Context, number int) ([]Comment, error)

	// CreateComment posts a new comment on the pull request.
	CreateComment(ctx context.Context, number int, body string) (*Comment, error)

	// UpdateComment replaces the body of an existing comment.
	UpdateComment(ctx context.Context, id int64, body string) (*Comment, error)

	// CreateStatus sets a commit status on sha.
	CreateStatus(ctx context.Context, sha string, status Status) error
}

// Compile-time check that APIClient implements Client.
var _ Client = (*APIClient)(nil)

// FindComment returns the newest bot-authored comment containing marker, or
// nil. Comments by people are skipped even when they quote the marker.
func FindComment(comments []Comment, marker string) *Comment {
	for i := len(comments) - 1; i >= 0; i-- {
		if comments[i].IsBot && comments[i].HasMarker(marker) {
			c := comments[i]
			return &c
		}
	}
	return nil
}

// UpsertComment overwrites the newest bot comment carrying marker with body, or
// creates one when none exists. body must contain marker for later upserts
// to find it.
func UpsertComment(ctx context.Context, c Client, number int, marker, body string) (*Comment, error) {
	comments, err := c.ListComments(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing := FindComment(comments, marker); existing != nil {
		return c.UpdateComment(ctx, existing.ID, body)
	}
	return c.CreateComment(ctx, number, body)
}
