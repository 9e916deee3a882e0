package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
	"file-approval-api/utils"
)

// CommentID derives the stable id of a comment from its identifying fields.
func CommentID(submissionID string, at time.Time, author, body string) string {
	sum := sha256.Sum256([]byte(submissionID + "|" + at.UTC().Format(time.RFC3339Nano) + "|" + author + "|" + body))
	return hex.EncodeToString(sum[:16])
}

// CommentService keeps the per-submission comment threads and fans comment
// notifications out to the submitter and prior commenters.
type CommentService struct {
	store         *storage.Store
	paths         *storage.PathResolver
	notifications *NotificationService
}

func NewCommentService(store *storage.Store, paths *storage.PathResolver, notifications *NotificationService) *CommentService {
	return &CommentService{store: store, paths: paths, notifications: notifications}
}

// Append records a comment on sub and notifies the submitter plus each distinct
// prior commenter (the latter only when the commenter is not the submitter).
// The comment author is never notified of their own comment. Notification
// failures are returned alongside the comment; the comment itself stands.
func (s *CommentService) Append(ctx context.Context, sub models.Submission, author, role, body string) (models.Comment, []string, error) {
	body = utils.SanitizeInput(body)
	if body == "" {
		return models.Comment{}, nil, ErrBadInput("comment body is required")
	}

	now := time.Now()
	comment := models.Comment{
		CommentID:    CommentID(sub.ID, now, author, body),
		SubmissionID: sub.ID,
		Author:       author,
		AuthorRole:   role,
		Body:         body,
		At:           now,
	}

	var prior []models.Comment
	err := s.store.Modify(ctx, s.paths.CommentsDoc(sub.ID), false, func(raw []byte) (interface{}, error) {
		var thread []models.Comment
		if raw != nil {
			if err := json.Unmarshal(raw, &thread); err != nil {
				return nil, fmt.Errorf("comments %s: %w", sub.ID, storage.ErrCorrupt)
			}
		}
		prior = thread
		return append(thread, comment), nil
	})
	if err != nil {
		return models.Comment{}, nil, err
	}

	var failures []string
	for _, recipient := range s.commentRecipients(sub, prior, author) {
		n := models.Notification{
			ID:           comment.CommentID,
			Recipient:    recipient,
			Kind:         models.NotifyCommentAdded,
			SubmissionID: sub.ID,
			Payload:      fmt.Sprintf("%s commented on %s", author, sub.OriginalFilename),
			At:           now,
		}
		if err := s.notifications.Append(ctx, n); err != nil {
			failures = append(failures, fmt.Sprintf("notify %s: %v", recipient, err))
		}
	}
	return comment, failures, nil
}

// commentRecipients resolves the inboxes a new comment lands in: the submitter
// always (unless they authored it), and each distinct prior commenter when the
// author is not the submitter.
func (s *CommentService) commentRecipients(sub models.Submission, prior []models.Comment, author string) []string {
	seen := map[string]bool{author: true}
	var recipients []string
	if !seen[sub.SubmitterUser] {
		seen[sub.SubmitterUser] = true
		recipients = append(recipients, sub.SubmitterUser)
	}
	if author != sub.SubmitterUser {
		for _, c := range prior {
			if !seen[c.Author] {
				seen[c.Author] = true
				recipients = append(recipients, c.Author)
			}
		}
	}
	return recipients
}

// List returns the comment thread of a submission in append order.
func (s *CommentService) List(ctx context.Context, submissionID string) ([]models.Comment, error) {
	var thread []models.Comment
	if _, err := s.store.Read(ctx, s.paths.CommentsDoc(submissionID), &thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// CanView applies the comment visibility rule: the submitter, a prior commenter,
// or a reviewer whose role currently has standing to act on the submission.
func (s *CommentService) CanView(identity models.Identity, sub models.Submission, thread []models.Comment) bool {
	if identity.Username == sub.SubmitterUser {
		return true
	}
	for _, c := range thread {
		if c.Author == identity.Username {
			return true
		}
	}
	switch identity.Role {
	case models.RoleTeamLeader:
		return sub.State == models.StatePendingTeamLeader && identity.HasTeam(sub.SubmitterTeam)
	case models.RoleAdmin:
		return sub.State == models.StatePendingAdmin
	}
	return false
}

// legacyThread is the shape of the pre-consolidation documents: a map from
// submission id to a list of {admin_id, comment, timestamp} entries.
type legacyThread map[string][]struct {
	AdminID   string `json:"admin_id"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// MigrateLegacy folds the two legacy comment documents into per-submission
// documents, then renames the legacy files so the migration runs once. Returns
// the number of comments migrated.
func (s *CommentService) MigrateLegacy(ctx context.Context) (int, error) {
	migrated := 0
	for _, legacyDoc := range s.paths.LegacyCommentsDocs() {
		var legacy legacyThread
		found, err := s.store.Read(ctx, legacyDoc, &legacy)
		if err != nil || !found {
			if err != nil {
				log.Printf("Warning: skipping legacy comment doc %s: %v", legacyDoc, err)
			}
			continue
		}
		for submissionID, entries := range legacy {
			for _, entry := range entries {
				at, parseErr := time.Parse(time.RFC3339Nano, entry.Timestamp)
				if parseErr != nil {
					at = time.Now()
				}
				comment := models.Comment{
					CommentID:    CommentID(submissionID, at, entry.AdminID, entry.Comment),
					SubmissionID: submissionID,
					Author:       entry.AdminID,
					AuthorRole:   models.RoleAdmin,
					Body:         entry.Comment,
					At:           at,
				}
				err := s.store.Modify(ctx, s.paths.CommentsDoc(submissionID), true, func(raw []byte) (interface{}, error) {
					var thread []models.Comment
					if raw != nil {
						if err := json.Unmarshal(raw, &thread); err != nil {
							return nil, fmt.Errorf("comments %s: %w", submissionID, storage.ErrCorrupt)
						}
					}
					for _, existing := range thread {
						if existing.CommentID == comment.CommentID {
							return thread, nil
						}
					}
					migrated++
					return append(thread, comment), nil
				})
				if err != nil {
					return migrated, err
				}
			}
		}
		if err := os.Rename(legacyDoc, legacyDoc+".migrated"); err != nil {
			log.Printf("Warning: could not retire legacy comment doc %s: %v", legacyDoc, err)
		}
	}
	return migrated, nil
}
