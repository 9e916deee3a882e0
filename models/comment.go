package models

import "time"

// Comment is one entry of a per-submission comment thread.
type Comment struct {
	CommentID    string    `json:"comment_id"`
	SubmissionID string    `json:"submission_id"`
	Author       string    `json:"author_username"`
	AuthorRole   string    `json:"author_role"`
	Body         string    `json:"body"`
	At           time.Time `json:"at"`
}
