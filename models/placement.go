package models

import "time"

// PlacementRequest is an open manual-placement request, recorded when neither the
// project tree nor the staging tree could take an approved artifact. Admins work
// these off by hand; the retrier closes them when permissions come back.
type PlacementRequest struct {
	SubmissionID string    `json:"submission_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Reason       string    `json:"reason"`
	RequestedAt  time.Time `json:"requested_at"`
}
