package models

import "time"

// Submission states. Transitions between them are enforced by the approval service;
// only the edges listed in AllowedTransitions are legal.
const (
	StateDraft             = "DRAFT"
	StatePendingTeamLeader = "PENDING_TEAM_LEADER"
	StatePendingAdmin      = "PENDING_ADMIN"
	StateApproved          = "APPROVED"
	StateRejectedByTL      = "REJECTED_BY_TEAM_LEADER"
	StateRejectedByAdmin   = "REJECTED_BY_ADMIN"
	StateWithdrawn         = "WITHDRAWN"
)

// Placement outcomes for approved submissions.
const (
	PlacementDelivered       = "DELIVERED"
	PlacementStaged          = "STAGED"
	PlacementManualRequested = "MANUAL_REQUESTED"
)

// AllowedTransitions maps a current state to the set of states reachable from it.
var AllowedTransitions = map[string][]string{
	StateDraft:             {StatePendingTeamLeader},
	StatePendingTeamLeader: {StatePendingAdmin, StateRejectedByTL, StateWithdrawn},
	StatePendingAdmin:      {StateApproved, StateRejectedByAdmin},
}

// IsTerminalState reports whether no further transition is permitted from state.
func IsTerminalState(state string) bool {
	switch state {
	case StateApproved, StateRejectedByTL, StateRejectedByAdmin, StateWithdrawn:
		return true
	}
	return false
}

// CanTransition reports whether from → to is an edge of the workflow graph.
func CanTransition(from, to string) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateHistoryEntry is one step of a submission's workflow history.
type StateHistoryEntry struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
	Actor string    `json:"actor,omitempty"`
	Note  string    `json:"note,omitempty"`
}

// Submission is the central entity of the approval workflow. It lives in the shared
// queue document while active and is copied to the matching archive on a terminal
// transition. SubmitterTeam is captured at submission time and never rewritten.
type Submission struct {
	ID               string   `json:"id"`
	SubmitterUser    string   `json:"submitter_username"`
	SubmitterTeam    string   `json:"submitter_team"`
	OriginalFilename string   `json:"original_filename"`
	UploadPath       string   `json:"upload_path"`
	SizeBytes        int64    `json:"size_bytes"`
	ContentTypeHint  string   `json:"content_type_hint,omitempty"`
	Description      string   `json:"description,omitempty"`
	Tags             []string `json:"tags,omitempty"`

	State string `json:"state"`

	CreatedAt      time.Time  `json:"created_at"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	TLDecidedAt    *time.Time `json:"tl_decided_at,omitempty"`
	AdminDecidedAt *time.Time `json:"admin_decided_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`

	TLReviewer        string `json:"tl_reviewer,omitempty"`
	TLRejectionReason string `json:"tl_rejection_reason,omitempty"`

	AdminReviewer        string `json:"admin_reviewer,omitempty"`
	AdminRejectionReason string `json:"admin_rejection_reason,omitempty"`

	PlacementOutcome    string `json:"placement_outcome,omitempty"`
	PlacementTargetPath string `json:"placement_target_path,omitempty"`
	StagingPath         string `json:"staging_path,omitempty"`

	StateHistory []StateHistoryEntry `json:"state_history"`

	// Post-commit effect failures (archive write, notification, placement). These
	// never reverse a committed transition; the background retrier and operators
	// pick them up.
	SideEffectFailures []string `json:"side_effect_failures,omitempty"`
}

// SubmissionFilter narrows a role-scoped listing. Team is intersected with the
// caller's visibility, never widened by it.
type SubmissionFilter struct {
	State     string `json:"state,omitempty" form:"state"`
	Team      string `json:"team,omitempty" form:"team"`
	Submitter string `json:"submitter,omitempty" form:"submitter"`
	Search    string `json:"search,omitempty" form:"search"`
	SortBy    string `json:"sort_by,omitempty" form:"sort_by"` // submitted_at|filename|state
}

// SubmissionCounts are the stat-card numbers computed over a filtered listing.
type SubmissionCounts struct {
	Total             int `json:"total"`
	PendingTeamLeader int `json:"pending_team_leader"`
	PendingAdmin      int `json:"pending_admin"`
	Approved          int `json:"approved"`
	Rejected          int `json:"rejected"`
	Withdrawn         int `json:"withdrawn"`
}
