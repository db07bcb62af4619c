package jira

import "context"

// TicketContent is a ticket flattened for prompting.
type TicketContent struct {
	Key     string
	Summary string
	// Text holds the summary, description and every comment body, each
	// section headed, with link targets preserved.
	Text string
}

// JiraClient reads ticket content and posts comments.
type JiraClient interface {
	GetTicketContent(ctx context.Context, key string) (*TicketContent, error)
	AddComment(ctx context.Context, key, text string) error
}
