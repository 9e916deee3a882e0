package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"file-approval-api/models"
	"file-approval-api/storage"
	"file-approval-api/utils"
)

// TeamLeaderLister is implemented by identity providers that can enumerate the
// team leaders of a team, which drives the SUBMITTED_TO_TL fan-out. Providers
// without it simply skip that fan-out.
type TeamLeaderLister interface {
	ListTeamLeaders(ctx context.Context, team string) ([]string, error)
}

// ApprovalEngine owns the live submission queue and composes the stores into the
// public workflow operations. The queue document is the single source of truth;
// archives, notifications, comments, and metadata are derived side-effect stores
// written after the queue commit.
type ApprovalEngine struct {
	store         *storage.Store
	paths         *storage.PathResolver
	identity      IdentityProvider
	archive       *ArchiveService
	notifications *NotificationService
	comments      *CommentService
	placement     *PlacementService

	allowDegradedWrites bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewApprovalEngine(
	store *storage.Store,
	paths *storage.PathResolver,
	identity IdentityProvider,
	archive *ArchiveService,
	notifications *NotificationService,
	comments *CommentService,
	placement *PlacementService,
	allowDegradedWrites bool,
) *ApprovalEngine {
	return &ApprovalEngine{
		store:               store,
		paths:               paths,
		identity:            identity,
		archive:             archive,
		notifications:       notifications,
		comments:            comments,
		placement:           placement,
		allowDegradedWrites: allowDegradedWrites,
		locks:               map[string]*sync.Mutex{},
	}
}

// Bootstrap prepares the data tree and runs the one-shot legacy comment
// migration. Errors are reported but the engine stays usable.
func (e *ApprovalEngine) Bootstrap(ctx context.Context) error {
	if err := e.paths.EnsureSkeleton(); err != nil {
		return err
	}
	migrated, err := e.comments.MigrateLegacy(ctx)
	if err != nil {
		return fmt.Errorf("legacy comment migration: %w", err)
	}
	if migrated > 0 {
		log.Printf("Migrated %d legacy comment(s) into per-submission documents", migrated)
	}
	return nil
}

// Degraded reports whether the shared store is currently unreachable.
func (e *ApprovalEngine) Degraded() bool {
	return e.paths.Degraded()
}

// lockFor returns the per-submission mutex, creating it on first use. The lock
// order is always submission mutex first, then the document lock inside the
// store; no operation holds two submission locks.
func (e *ApprovalEngine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lock, ok := e.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	e.locks[id] = lock
	return lock
}

// checkWritable rejects state-changing operations while the resolver serves the
// local fallback, unless degraded writes were explicitly enabled. Divergent
// local histories cannot be merged later.
func (e *ApprovalEngine) checkWritable() error {
	if e.paths.Degraded() && !e.allowDegradedWrites {
		return ErrStoreUnavailable("shared store unreachable; state changes disabled in degraded mode")
	}
	return nil
}

// withRetry re-attempts fn for transport-like failures, up to three tries with
// exponential backoff, bounded by the operation deadline.
func withRetry(ctx context.Context, fn func() error) error {
	backoff := 100 * time.Millisecond
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// ===================== SUBMIT / WITHDRAW =====================

// Submit validates an uploaded artifact and enters it into the approval queue in
// PENDING_TEAM_LEADER state. The submitter's team is captured now and never
// rewritten.
func (e *ApprovalEngine) Submit(ctx context.Context, actor, uploadPath, description string, tags []string) (models.Submission, error) {
	if err := e.checkWritable(); err != nil {
		return models.Submission{}, err
	}
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return models.Submission{}, err
	}
	if identity.Role != models.RoleUser {
		return models.Submission{}, ErrForbidden("only users submit files for approval")
	}

	filename := utils.BaseFilename(uploadPath)
	if err := utils.ValidateFilename(filename); err != nil {
		return models.Submission{}, ErrBadInput(err.Error())
	}

	// The path must point into the actor's own upload directory; anything else
	// would let a submit walk an arbitrary server file into the project tree.
	uploadPath = filepath.Clean(uploadPath)
	uploadDir := filepath.Clean(e.paths.UploadDir(identity.Username))
	rel, relErr := filepath.Rel(uploadDir, uploadPath)
	if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return models.Submission{}, ErrBadInput("upload path must be inside your upload directory")
	}

	info, statErr := os.Lstat(uploadPath)
	if statErr != nil || !info.Mode().IsRegular() {
		return models.Submission{}, ErrBadInput("upload file not found: " + uploadPath)
	}

	team := "DEFAULT"
	if len(identity.Teams) > 0 {
		team = identity.Teams[0]
	}

	now := time.Now()
	sub := models.Submission{
		ID:               uuid.NewString(),
		SubmitterUser:    actor,
		SubmitterTeam:    team,
		OriginalFilename: filename,
		UploadPath:       uploadPath,
		SizeBytes:        info.Size(),
		ContentTypeHint:  utils.ContentTypeHint(filename),
		Description:      utils.SanitizeInput(description),
		Tags:             tags,
		State:            models.StatePendingTeamLeader,
		CreatedAt:        now,
		SubmittedAt:      now,
		StateHistory: []models.StateHistoryEntry{
			{State: models.StateDraft, At: now, Actor: actor, Note: "created"},
			{State: models.StatePendingTeamLeader, At: now, Actor: actor, Note: "submitted for team leader review"},
		},
	}

	err = withRetry(ctx, func() error {
		return e.store.Modify(ctx, e.paths.QueueDoc(), false, func(raw []byte) (interface{}, error) {
			queue, err := parseQueue(raw)
			if err != nil {
				return nil, err
			}
			queue[sub.ID] = sub
			return queue, nil
		})
	})
	if err != nil {
		return models.Submission{}, err
	}

	failures := e.notifySubmitted(ctx, sub)
	e.recordFailures(ctx, &sub, failures)
	return sub, nil
}

// notifySubmitted tells the submitter and every team leader of the team.
func (e *ApprovalEngine) notifySubmitted(ctx context.Context, sub models.Submission) []string {
	var failures []string
	recipients := []string{sub.SubmitterUser}
	if lister, ok := e.identity.(TeamLeaderLister); ok {
		leaders, err := lister.ListTeamLeaders(ctx, sub.SubmitterTeam)
		if err != nil {
			failures = append(failures, "list team leaders: "+err.Error())
		}
		for _, leader := range leaders {
			if leader != sub.SubmitterUser {
				recipients = append(recipients, leader)
			}
		}
	}
	for _, recipient := range recipients {
		n := models.Notification{
			ID:           NotificationID(sub.ID, models.NotifySubmittedToTL, sub.SubmittedAt),
			Recipient:    recipient,
			Kind:         models.NotifySubmittedToTL,
			SubmissionID: sub.ID,
			Payload:      fmt.Sprintf("%s submitted %s for review", sub.SubmitterUser, sub.OriginalFilename),
			At:           sub.SubmittedAt,
		}
		if err := e.notifications.Append(ctx, n); err != nil {
			failures = append(failures, "notify "+recipient+": "+err.Error())
		}
	}
	return failures
}

// Withdraw takes the submitter's own submission out of the queue. Only a
// submission still waiting on its team leader can be withdrawn.
func (e *ApprovalEngine) Withdraw(ctx context.Context, actor, id string) (models.Submission, error) {
	return e.transition(ctx, actor, id, transitionRequest{
		name:   "withdraw",
		target: models.StateWithdrawn,
		from:   models.StatePendingTeamLeader,
		note:   "submission withdrawn by user",
		authorize: func(identity models.Identity, sub models.Submission) error {
			if identity.Username != sub.SubmitterUser {
				return ErrForbidden("only the submitter can withdraw a submission")
			}
			return nil
		},
		notifyKind: models.NotifyWithdrawn,
	})
}

// ===================== REVIEW DECISIONS =====================

// TLApprove forwards a pending submission to the admin stage.
func (e *ApprovalEngine) TLApprove(ctx context.Context, actor, id string) (models.Submission, error) {
	return e.transition(ctx, actor, id, transitionRequest{
		name:   "tl_approve",
		target: models.StatePendingAdmin,
		from:   models.StatePendingTeamLeader,
		note:   "approved by team leader, forwarded to admin",
		authorize: func(identity models.Identity, sub models.Submission) error {
			return authorizeTeamLeader(identity, sub)
		},
		apply: func(sub *models.Submission, actor string, now time.Time) {
			sub.TLReviewer = actor
			sub.TLDecidedAt = &now
		},
		notifyKind: models.NotifyTLApproved,
	})
}

// TLReject terminates a pending submission at the team-leader stage.
func (e *ApprovalEngine) TLReject(ctx context.Context, actor, id, reason string) (models.Submission, error) {
	reason, err := utils.ValidateReason(reason)
	if err != nil {
		return models.Submission{}, ErrBadInput(err.Error())
	}
	return e.transition(ctx, actor, id, transitionRequest{
		name:   "tl_reject",
		target: models.StateRejectedByTL,
		from:   models.StatePendingTeamLeader,
		note:   "rejected by team leader: " + reason,
		authorize: func(identity models.Identity, sub models.Submission) error {
			return authorizeTeamLeader(identity, sub)
		},
		apply: func(sub *models.Submission, actor string, now time.Time) {
			sub.TLReviewer = actor
			sub.TLDecidedAt = &now
			sub.TLRejectionReason = reason
		},
		notifyKind: models.NotifyTLRejected,
	})
}

// AdminApprove renders the final decision and hands the artifact to the
// placement pipeline. Placement failures never reverse the approval.
func (e *ApprovalEngine) AdminApprove(ctx context.Context, actor, id string) (models.Submission, error) {
	return e.transition(ctx, actor, id, transitionRequest{
		name:   "admin_approve",
		target: models.StateApproved,
		from:   models.StatePendingAdmin,
		note:   "final approval by admin",
		authorize: func(identity models.Identity, sub models.Submission) error {
			return authorizeAdmin(identity)
		},
		apply: func(sub *models.Submission, actor string, now time.Time) {
			sub.AdminReviewer = actor
			sub.AdminDecidedAt = &now
		},
		notifyKind: models.NotifyAdminApproved,
		place:      true,
	})
}

// AdminReject terminates a submission at the admin stage.
func (e *ApprovalEngine) AdminReject(ctx context.Context, actor, id, reason string) (models.Submission, error) {
	reason, err := utils.ValidateReason(reason)
	if err != nil {
		return models.Submission{}, ErrBadInput(err.Error())
	}
	return e.transition(ctx, actor, id, transitionRequest{
		name:   "admin_reject",
		target: models.StateRejectedByAdmin,
		from:   models.StatePendingAdmin,
		note:   "rejected by admin: " + reason,
		authorize: func(identity models.Identity, sub models.Submission) error {
			return authorizeAdmin(identity)
		},
		apply: func(sub *models.Submission, actor string, now time.Time) {
			sub.AdminReviewer = actor
			sub.AdminDecidedAt = &now
			sub.AdminRejectionReason = reason
		},
		notifyKind: models.NotifyAdminRejected,
	})
}

func authorizeTeamLeader(identity models.Identity, sub models.Submission) error {
	if identity.Role != models.RoleTeamLeader {
		return ErrForbidden("team leader role required")
	}
	if !identity.HasTeam(sub.SubmitterTeam) {
		return ErrForbidden("submission belongs to team " + sub.SubmitterTeam)
	}
	return nil
}

func authorizeAdmin(identity models.Identity) error {
	if identity.Role != models.RoleAdmin {
		return ErrForbidden("admin role required")
	}
	return nil
}

// transitionRequest describes one edge of the workflow graph plus its
// authorization rule and per-transition field updates.
type transitionRequest struct {
	name       string
	target     string
	from       string
	note       string
	authorize  func(models.Identity, models.Submission) error
	apply      func(*models.Submission, string, time.Time)
	notifyKind string
	place      bool
}

// transition runs the full locked read-validate-write cycle and then the
// post-commit effects. The state is re-read under the lock, so a request racing
// against a concurrent winner fails with ILLEGAL_TRANSITION instead of silently
// overwriting.
func (e *ApprovalEngine) transition(ctx context.Context, actor, id string, req transitionRequest) (models.Submission, error) {
	if err := e.checkWritable(); err != nil {
		return models.Submission{}, err
	}
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return models.Submission{}, err
	}

	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	var updated models.Submission
	err = withRetry(ctx, func() error {
		return e.store.Modify(ctx, e.paths.QueueDoc(), false, func(raw []byte) (interface{}, error) {
			queue, err := parseQueue(raw)
			if err != nil {
				return nil, err
			}
			sub, ok := queue[id]
			if !ok {
				return nil, ErrNotFound("submission " + id)
			}
			if err := req.authorize(identity, sub); err != nil {
				return nil, err
			}
			if sub.State != req.from || !models.CanTransition(sub.State, req.target) {
				return nil, ErrIllegalTransition(sub.State, req.name)
			}

			now := time.Now()
			sub.State = req.target
			if req.apply != nil {
				req.apply(&sub, actor, now)
			}
			sub.StateHistory = append(sub.StateHistory, models.StateHistoryEntry{
				State: req.target,
				At:    now,
				Actor: actor,
				Note:  req.note,
			})

			if models.IsTerminalState(req.target) {
				delete(queue, id)
			} else {
				queue[id] = sub
			}
			updated = sub
			return queue, nil
		})
	})
	if err != nil {
		return models.Submission{}, err
	}

	failures := e.runEffects(ctx, &updated, req)
	e.recordFailures(ctx, &updated, failures)
	return updated, nil
}

// runEffects performs the post-commit side effects: placement for approvals,
// archive append for terminal states, and the submitter notification. Each
// failure is collected; none reverses the committed transition.
func (e *ApprovalEngine) runEffects(ctx context.Context, sub *models.Submission, req transitionRequest) []string {
	var failures []string

	if req.place {
		failures = append(failures, e.placement.Place(ctx, sub)...)
	}

	if models.IsTerminalState(sub.State) {
		if err := e.archive.Record(ctx, *sub); err != nil {
			failures = append(failures, "archive: "+err.Error())
		}
	}

	if req.notifyKind != "" {
		decidedAt := time.Now()
		if len(sub.StateHistory) > 0 {
			decidedAt = sub.StateHistory[len(sub.StateHistory)-1].At
		}
		payload := notifyPayload(req.notifyKind, *sub)
		n := models.Notification{
			ID:           NotificationID(sub.ID, req.notifyKind, decidedAt),
			Recipient:    sub.SubmitterUser,
			Kind:         req.notifyKind,
			SubmissionID: sub.ID,
			Payload:      payload,
			At:           decidedAt,
		}
		if err := e.notifications.Append(ctx, n); err != nil {
			failures = append(failures, "notify "+sub.SubmitterUser+": "+err.Error())
		}
	}
	return failures
}

func notifyPayload(kind string, sub models.Submission) string {
	switch kind {
	case models.NotifyTLApproved:
		return fmt.Sprintf("%s was approved by team leader %s and forwarded to admin", sub.OriginalFilename, sub.TLReviewer)
	case models.NotifyTLRejected:
		return fmt.Sprintf("%s was rejected by team leader %s: %s", sub.OriginalFilename, sub.TLReviewer, sub.TLRejectionReason)
	case models.NotifyAdminApproved:
		return fmt.Sprintf("%s received final approval from %s", sub.OriginalFilename, sub.AdminReviewer)
	case models.NotifyAdminRejected:
		return fmt.Sprintf("%s was rejected by admin %s: %s", sub.OriginalFilename, sub.AdminReviewer, sub.AdminRejectionReason)
	case models.NotifyWithdrawn:
		return fmt.Sprintf("%s was withdrawn from review", sub.OriginalFilename)
	}
	return sub.OriginalFilename
}

// recordFailures persists side-effect failure notes onto the submission's
// durable record so crash recovery and operators can see them. Best effort; a
// failure to record a failure is only logged.
func (e *ApprovalEngine) recordFailures(ctx context.Context, sub *models.Submission, failures []string) {
	if len(failures) == 0 {
		return
	}
	sub.SideEffectFailures = append(sub.SideEffectFailures, failures...)
	log.Printf("Submission %s side-effect failures: %s", sub.ID, strings.Join(failures, "; "))

	if kind, ok := ArchiveKindForState(sub.State); ok {
		err := e.archive.Update(ctx, kind, sub.ID, func(rec *models.Submission) {
			rec.SideEffectFailures = sub.SideEffectFailures
			rec.PlacementOutcome = sub.PlacementOutcome
			rec.PlacementTargetPath = sub.PlacementTargetPath
			rec.StagingPath = sub.StagingPath
		})
		if err != nil {
			log.Printf("Warning: could not record side-effect failures for %s: %v", sub.ID, err)
		}
		return
	}

	err := e.store.Modify(ctx, e.paths.QueueDoc(), false, func(raw []byte) (interface{}, error) {
		queue, err := parseQueue(raw)
		if err != nil {
			return nil, err
		}
		if live, ok := queue[sub.ID]; ok {
			live.SideEffectFailures = sub.SideEffectFailures
			queue[sub.ID] = live
		}
		return queue, nil
	})
	if err != nil {
		log.Printf("Warning: could not record side-effect failures for %s: %v", sub.ID, err)
	}
}

// ===================== QUERIES =====================

func parseQueue(raw []byte) (map[string]models.Submission, error) {
	queue := map[string]models.Submission{}
	if raw != nil {
		if err := json.Unmarshal(raw, &queue); err != nil {
			return nil, fmt.Errorf("queue: %w", storage.ErrCorrupt)
		}
	}
	return queue, nil
}

// visibleTo applies the role visibility predicate of the listing contract.
func visibleTo(identity models.Identity, sub models.Submission) bool {
	switch identity.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeamLeader:
		return identity.HasTeam(sub.SubmitterTeam)
	default:
		return sub.SubmitterUser == identity.Username
	}
}

// List returns the submissions visible to actor, narrowed by filter, with the
// stat-card counts computed over the filtered result. Live and archived
// submissions are merged so panels see full history.
func (e *ApprovalEngine) List(ctx context.Context, actor string, filter models.SubmissionFilter) ([]models.Submission, models.SubmissionCounts, error) {
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return nil, models.SubmissionCounts{}, err
	}

	var all []models.Submission
	queue := map[string]models.Submission{}
	if _, err := e.store.Read(ctx, e.paths.QueueDoc(), &queue); err != nil {
		return nil, models.SubmissionCounts{}, err
	}
	for _, sub := range queue {
		all = append(all, sub)
	}
	for _, kind := range []string{ArchiveApproved, ArchiveRejectedAdmin, ArchiveRejectedTL, ArchiveWithdrawn} {
		records, err := e.archive.List(ctx, kind)
		if err != nil {
			return nil, models.SubmissionCounts{}, err
		}
		all = append(all, records...)
	}

	var visible []models.Submission
	for _, sub := range all {
		if visibleTo(identity, sub) && matchesFilter(sub, filter) {
			visible = append(visible, sub)
		}
	}
	sortSubmissions(visible, filter.SortBy)

	counts := models.SubmissionCounts{Total: len(visible)}
	for _, sub := range visible {
		switch sub.State {
		case models.StatePendingTeamLeader:
			counts.PendingTeamLeader++
		case models.StatePendingAdmin:
			counts.PendingAdmin++
		case models.StateApproved:
			counts.Approved++
		case models.StateRejectedByTL, models.StateRejectedByAdmin:
			counts.Rejected++
		case models.StateWithdrawn:
			counts.Withdrawn++
		}
	}
	return visible, counts, nil
}

func matchesFilter(sub models.Submission, filter models.SubmissionFilter) bool {
	if filter.State != "" && sub.State != filter.State {
		return false
	}
	if filter.Team != "" && sub.SubmitterTeam != filter.Team {
		return false
	}
	if filter.Submitter != "" && sub.SubmitterUser != filter.Submitter {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(sub.OriginalFilename), needle) &&
			!strings.Contains(strings.ToLower(sub.Description), needle) &&
			!strings.Contains(strings.ToLower(sub.SubmitterUser), needle) {
			return false
		}
	}
	return true
}

func sortSubmissions(subs []models.Submission, sortBy string) {
	switch sortBy {
	case "filename":
		sort.Slice(subs, func(i, j int) bool { return subs[i].OriginalFilename < subs[j].OriginalFilename })
	case "state":
		sort.Slice(subs, func(i, j int) bool { return subs[i].State < subs[j].State })
	default:
		sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	}
}

// Get returns one submission, live or archived, if actor may see it.
func (e *ApprovalEngine) Get(ctx context.Context, actor, id string) (models.Submission, error) {
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return models.Submission{}, err
	}
	sub, err := e.find(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	if !visibleTo(identity, sub) {
		return models.Submission{}, ErrForbidden("no visibility on submission " + id)
	}
	return sub, nil
}

// find looks a submission up in the queue, then in the archives.
func (e *ApprovalEngine) find(ctx context.Context, id string) (models.Submission, error) {
	queue := map[string]models.Submission{}
	if _, err := e.store.Read(ctx, e.paths.QueueDoc(), &queue); err != nil {
		return models.Submission{}, err
	}
	if sub, ok := queue[id]; ok {
		return sub, nil
	}
	for _, kind := range []string{ArchiveApproved, ArchiveRejectedAdmin, ArchiveRejectedTL, ArchiveWithdrawn} {
		records, err := e.archive.List(ctx, kind)
		if err != nil {
			return models.Submission{}, err
		}
		for _, rec := range records {
			if rec.ID == id {
				return rec, nil
			}
		}
	}
	return models.Submission{}, ErrNotFound("submission " + id)
}

// ListArchive returns one archive's records scoped to the actor's visibility.
func (e *ApprovalEngine) ListArchive(ctx context.Context, actor, kind string) ([]models.Submission, error) {
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return nil, err
	}
	records, err := e.archive.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Submission, 0, len(records))
	for _, rec := range records {
		if visibleTo(identity, rec) {
			visible = append(visible, rec)
		}
	}
	return visible, nil
}

// ===================== COMMENTS =====================

// AddComment appends a comment on a submission the actor can see.
func (e *ApprovalEngine) AddComment(ctx context.Context, actor, id, body string) (models.Comment, error) {
	if err := e.checkWritable(); err != nil {
		return models.Comment{}, err
	}
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return models.Comment{}, err
	}
	sub, err := e.find(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	thread, err := e.comments.List(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	if !e.comments.CanView(identity, sub, thread) {
		return models.Comment{}, ErrForbidden("no standing to comment on submission " + id)
	}
	comment, failures, err := e.comments.Append(ctx, sub, actor, identity.Role, body)
	if err != nil {
		return models.Comment{}, err
	}
	if len(failures) > 0 {
		log.Printf("Comment %s fan-out failures: %s", comment.CommentID, strings.Join(failures, "; "))
	}
	return comment, nil
}

// GetComments returns a submission's thread if the actor may see it.
func (e *ApprovalEngine) GetComments(ctx context.Context, actor, id string) ([]models.Comment, error) {
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return nil, err
	}
	sub, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}
	thread, err := e.comments.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.comments.CanView(identity, sub, thread) {
		return nil, ErrForbidden("no visibility on submission " + id)
	}
	return thread, nil
}

// ===================== INBOX =====================

// GetInbox returns the actor's own notifications.
func (e *ApprovalEngine) GetInbox(ctx context.Context, actor string, unreadOnly bool) ([]models.Notification, error) {
	if _, err := e.identity.GetIdentity(ctx, actor); err != nil {
		return nil, err
	}
	return e.notifications.List(ctx, actor, unreadOnly)
}

// MarkRead flips one of the actor's notifications to read.
func (e *ApprovalEngine) MarkRead(ctx context.Context, actor, notificationID string) error {
	if _, err := e.identity.GetIdentity(ctx, actor); err != nil {
		return err
	}
	return e.notifications.MarkRead(ctx, actor, notificationID)
}

// MarkAllRead flips the actor's whole inbox to read.
func (e *ApprovalEngine) MarkAllRead(ctx context.Context, actor string) error {
	if _, err := e.identity.GetIdentity(ctx, actor); err != nil {
		return err
	}
	return e.notifications.MarkAllRead(ctx, actor)
}

// InboxSummary returns the actor's notification counters.
func (e *ApprovalEngine) InboxSummary(ctx context.Context, actor string) (models.NotificationSummary, error) {
	if _, err := e.identity.GetIdentity(ctx, actor); err != nil {
		return models.NotificationSummary{}, err
	}
	return e.notifications.Summary(ctx, actor)
}

// ===================== PLACEMENT =====================

// ListPlacementRequests returns the open manual-placement requests (admin only).
func (e *ApprovalEngine) ListPlacementRequests(ctx context.Context, actor string) ([]models.PlacementRequest, error) {
	identity, err := e.identity.GetIdentity(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := authorizeAdmin(identity); err != nil {
		return nil, err
	}
	return e.placement.ListRequests(ctx)
}
