package services

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

type commentFixture struct {
	comments      *CommentService
	notifications *NotificationService
	paths         *storage.PathResolver
	store         *storage.Store
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	paths := storage.NewPathResolver(t.TempDir(), t.TempDir(), t.TempDir(), time.Minute)
	store := storage.NewStore()
	notifications := NewNotificationService(store, paths, 100)
	return &commentFixture{
		comments:      NewCommentService(store, paths, notifications),
		notifications: notifications,
		paths:         paths,
		store:         store,
	}
}

func pendingSubmission() models.Submission {
	return models.Submission{
		ID:               "sub-1",
		SubmitterUser:    "alice",
		SubmitterTeam:    "AGCC",
		OriginalFilename: "spec.pdf",
		State:            models.StatePendingTeamLeader,
	}
}

func TestAppendCommentAndThreadOrder(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	sub := pendingSubmission()

	first, _, err := f.comments.Append(ctx, sub, "tl_bob", models.RoleTeamLeader, "please fix the scale")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.CommentID == "" || first.AuthorRole != models.RoleTeamLeader {
		t.Fatalf("comment: %+v", first)
	}

	if _, _, err := f.comments.Append(ctx, sub, "alice", models.RoleUser, "fixed in rev2"); err != nil {
		t.Fatal(err)
	}

	thread, err := f.comments.List(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 2 || thread[0].Author != "tl_bob" || thread[1].Author != "alice" {
		t.Fatalf("thread: %+v", thread)
	}

	if _, _, err := f.comments.Append(ctx, sub, "tl_bob", models.RoleTeamLeader, "  "); AsServiceError(err).Code != CodeBadInput {
		t.Fatalf("empty body should be BAD_INPUT, got %v", err)
	}
}

func TestCommentNotificationFanOut(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	sub := pendingSubmission()

	// A reviewer comments: the submitter is notified, the author is not.
	if _, _, err := f.comments.Append(ctx, sub, "tl_bob", models.RoleTeamLeader, "first"); err != nil {
		t.Fatal(err)
	}
	aliceInbox, _ := f.notifications.List(ctx, "alice", false)
	if len(aliceInbox) != 1 || aliceInbox[0].Kind != models.NotifyCommentAdded {
		t.Fatalf("alice inbox: %+v", aliceInbox)
	}
	if bobInbox, _ := f.notifications.List(ctx, "tl_bob", false); len(bobInbox) != 0 {
		t.Fatalf("author must not be notified of own comment: %+v", bobInbox)
	}

	// A second reviewer comments: submitter and the prior commenter are notified.
	if _, _, err := f.comments.Append(ctx, sub, "admin", models.RoleAdmin, "second"); err != nil {
		t.Fatal(err)
	}
	if aliceInbox, _ := f.notifications.List(ctx, "alice", false); len(aliceInbox) != 2 {
		t.Fatalf("alice inbox after second comment: %d", len(aliceInbox))
	}
	if bobInbox, _ := f.notifications.List(ctx, "tl_bob", false); len(bobInbox) != 1 {
		t.Fatalf("prior commenter inbox: %d", len(bobInbox))
	}

	// The submitter replies: prior commenters are not fanned out to.
	if _, _, err := f.comments.Append(ctx, sub, "alice", models.RoleUser, "third"); err != nil {
		t.Fatal(err)
	}
	if bobInbox, _ := f.notifications.List(ctx, "tl_bob", false); len(bobInbox) != 1 {
		t.Fatalf("submitter reply should not notify prior commenters: %d", len(bobInbox))
	}
	if aliceInbox, _ := f.notifications.List(ctx, "alice", false); len(aliceInbox) != 2 {
		t.Fatalf("submitter must not be notified of own comment: %d", len(aliceInbox))
	}
}

func TestCommentVisibility(t *testing.T) {
	f := newCommentFixture(t)
	sub := pendingSubmission()
	thread := []models.Comment{{SubmissionID: sub.ID, Author: "tl_carol"}}

	cases := []struct {
		name     string
		identity models.Identity
		sub      models.Submission
		want     bool
	}{
		{"submitter", models.Identity{Username: "alice", Role: models.RoleUser}, sub, true},
		{"prior commenter", models.Identity{Username: "tl_carol", Role: models.RoleTeamLeader}, sub, true},
		{"tl with standing", models.Identity{Username: "tl_bob", Role: models.RoleTeamLeader, Teams: []string{"AGCC"}}, sub, true},
		{"tl wrong team", models.Identity{Username: "tl_eve", Role: models.RoleTeamLeader, Teams: []string{"KUSAKABE"}}, sub, false},
		{"admin before admin stage", models.Identity{Username: "admin", Role: models.RoleAdmin}, sub, false},
		{"stranger", models.Identity{Username: "dave", Role: models.RoleUser}, sub, false},
	}
	for _, tc := range cases {
		if got := f.comments.CanView(tc.identity, tc.sub, thread); got != tc.want {
			t.Errorf("%s: CanView = %v, want %v", tc.name, got, tc.want)
		}
	}

	adminStage := sub
	adminStage.State = models.StatePendingAdmin
	admin := models.Identity{Username: "admin", Role: models.RoleAdmin}
	if !f.comments.CanView(admin, adminStage, thread) {
		t.Error("admin must see comments while the submission awaits admin review")
	}
}

func TestMigrateLegacyComments(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	legacy := map[string][]map[string]string{
		"sub-9": {
			{"admin_id": "admin", "comment": "legacy note", "timestamp": "2024-06-01T10:00:00Z"},
			{"admin_id": "tl_bob", "comment": "older note", "timestamp": "2024-05-01T09:00:00Z"},
		},
	}
	raw, _ := json.Marshal(legacy)
	legacyDoc := f.paths.LegacyCommentsDocs()[0]
	if err := os.MkdirAll(f.paths.CommentsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(legacyDoc, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	migrated, err := f.comments.MigrateLegacy(ctx)
	if err != nil {
		t.Fatalf("MigrateLegacy: %v", err)
	}
	if migrated != 2 {
		t.Fatalf("migrated = %d, want 2", migrated)
	}

	thread, err := f.comments.List(ctx, "sub-9")
	if err != nil || len(thread) != 2 {
		t.Fatalf("migrated thread: %+v err=%v", thread, err)
	}

	// The legacy file is retired and the migration does not run twice.
	if _, err := os.Stat(legacyDoc); !os.IsNotExist(err) {
		t.Fatal("legacy doc should have been renamed")
	}
	if migrated, err := f.comments.MigrateLegacy(ctx); err != nil || migrated != 0 {
		t.Fatalf("second run migrated %d err=%v", migrated, err)
	}
}
