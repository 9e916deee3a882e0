package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

func newNotificationFixture(t *testing.T, cap int) *NotificationService {
	t.Helper()
	paths := storage.NewPathResolver(t.TempDir(), t.TempDir(), t.TempDir(), time.Minute)
	return NewNotificationService(storage.NewStore(), paths, cap)
}

func notification(id, kind string, at time.Time) models.Notification {
	return models.Notification{
		ID:        id,
		Recipient: "alice",
		Kind:      kind,
		Payload:   "payload " + id,
		At:        at,
	}
}

func TestAppendIsIdempotentByID(t *testing.T) {
	svc := newNotificationFixture(t, 100)
	ctx := context.Background()

	n := notification("n-1", models.NotifyTLApproved, time.Now())
	for i := 0; i < 3; i++ {
		if err := svc.Append(ctx, n); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	inbox, err := svc.List(ctx, "alice", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Fatalf("inbox length = %d, want 1", len(inbox))
	}
}

func TestInboxNewestFirstAndCapped(t *testing.T) {
	svc := newNotificationFixture(t, 3)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		n := notification(fmt.Sprintf("n-%d", i), models.NotifyCommentAdded, base.Add(time.Duration(i)*time.Second))
		if err := svc.Append(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	inbox, err := svc.List(ctx, "alice", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 3 {
		t.Fatalf("inbox length = %d, want cap 3", len(inbox))
	}
	if inbox[0].ID != "n-4" || inbox[2].ID != "n-2" {
		t.Fatalf("unexpected order/eviction: %s..%s", inbox[0].ID, inbox[2].ID)
	}
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	svc := newNotificationFixture(t, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Append(ctx, notification(fmt.Sprintf("n-%d", i), models.NotifyTLRejected, time.Now())); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.MarkRead(ctx, "alice", "n-1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := svc.MarkRead(ctx, "alice", "ghost"); AsServiceError(err).Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	unread, err := svc.List(ctx, "alice", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 2 {
		t.Fatalf("unread = %d, want 2", len(unread))
	}

	summary, err := svc.Summary(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 3 || summary.Unread != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	if err := svc.MarkAllRead(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if unread, _ := svc.List(ctx, "alice", true); len(unread) != 0 {
		t.Fatalf("unread after MarkAllRead = %d", len(unread))
	}
}

func TestNotificationIDDeterministic(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NotificationID("sub-1", models.NotifyTLApproved, at)
	b := NotificationID("sub-1", models.NotifyTLApproved, at)
	if a != b {
		t.Fatal("same inputs must derive the same id")
	}
	if a == NotificationID("sub-1", models.NotifyTLRejected, at) {
		t.Fatal("different kinds must derive different ids")
	}
	if a == NotificationID("sub-2", models.NotifyTLApproved, at) {
		t.Fatal("different submissions must derive different ids")
	}
}
