package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

// NotificationID derives the idempotency key for a transition notification.
// Re-running the post-commit fan-out after a crash produces the same id and the
// append is dropped.
func NotificationID(submissionID, kind string, at time.Time) string {
	sum := sha256.Sum256([]byte(submissionID + "|" + kind + "|" + at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:16])
}

// NotificationService keeps the per-user durable inboxes. Entries are newest
// first; the list is capped and appends are idempotent by notification id.
// Panels poll their inbox, there is no push channel.
type NotificationService struct {
	store *storage.Store
	paths *storage.PathResolver
	cap   int
}

// NewNotificationService builds the service. cap <= 0 falls back to 100 entries
// per inbox.
func NewNotificationService(store *storage.Store, paths *storage.PathResolver, cap int) *NotificationService {
	if cap <= 0 {
		cap = 100
	}
	return &NotificationService{store: store, paths: paths, cap: cap}
}

// Append adds n to its recipient's inbox unless an entry with the same id is
// already present.
func (s *NotificationService) Append(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return ErrBadInput("notification recipient is required")
	}
	doc := s.paths.InboxDoc(n.Recipient)
	return s.store.Modify(ctx, doc, true, func(raw []byte) (interface{}, error) {
		var inbox []models.Notification
		if raw != nil {
			if err := json.Unmarshal(raw, &inbox); err != nil {
				return nil, fmt.Errorf("inbox %s: %w", n.Recipient, storage.ErrCorrupt)
			}
		}
		for _, existing := range inbox {
			if existing.ID == n.ID {
				return inbox, nil
			}
		}
		inbox = append([]models.Notification{n}, inbox...)
		if len(inbox) > s.cap {
			inbox = inbox[:s.cap]
		}
		return inbox, nil
	})
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, username string, unreadOnly bool) ([]models.Notification, error) {
	var inbox []models.Notification
	if _, err := s.store.Read(ctx, s.paths.InboxDoc(username), &inbox); err != nil {
		return nil, err
	}
	if !unreadOnly {
		return inbox, nil
	}
	unread := make([]models.Notification, 0, len(inbox))
	for _, n := range inbox {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkRead flips the read flag of one notification.
func (s *NotificationService) MarkRead(ctx context.Context, username, id string) error {
	found := false
	err := s.store.Modify(ctx, s.paths.InboxDoc(username), false, func(raw []byte) (interface{}, error) {
		var inbox []models.Notification
		if raw != nil {
			if err := json.Unmarshal(raw, &inbox); err != nil {
				return nil, fmt.Errorf("inbox %s: %w", username, storage.ErrCorrupt)
			}
		}
		for i := range inbox {
			if inbox[i].ID == id {
				inbox[i].Read = true
				found = true
				break
			}
		}
		return inbox, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound("notification " + id)
	}
	return nil
}

// MarkAllRead flips every unread notification of a user.
func (s *NotificationService) MarkAllRead(ctx context.Context, username string) error {
	return s.store.Modify(ctx, s.paths.InboxDoc(username), true, func(raw []byte) (interface{}, error) {
		var inbox []models.Notification
		if raw != nil {
			if err := json.Unmarshal(raw, &inbox); err != nil {
				return nil, fmt.Errorf("inbox %s: %w", username, storage.ErrCorrupt)
			}
		}
		for i := range inbox {
			inbox[i].Read = true
		}
		return inbox, nil
	})
}

// Summary returns the counters shown next to the inbox bell.
func (s *NotificationService) Summary(ctx context.Context, username string) (models.NotificationSummary, error) {
	inbox, err := s.List(ctx, username, false)
	if err != nil {
		return models.NotificationSummary{}, err
	}
	summary := models.NotificationSummary{Total: len(inbox)}
	for _, n := range inbox {
		if !n.Read {
			summary.Unread++
		}
	}
	return summary, nil
}
