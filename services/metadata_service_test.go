package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

func newMetadataFixture(t *testing.T) (*MetadataService, *storage.PathResolver) {
	t.Helper()
	paths := storage.NewPathResolver(t.TempDir(), t.TempDir(), t.TempDir(), time.Minute)
	return NewMetadataService(storage.NewStore(), paths), paths
}

func sampleRecord(filename string) models.MetadataRecord {
	return models.MetadataRecord{
		Filename:      filename,
		Team:          "AGCC",
		Year:          "2025",
		Submitter:     "alice",
		ApproverChain: []string{"alice", "tl_bob", "admin"},
		ApprovedAt:    time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC),
		Tags:          []string{"drawing"},
	}
}

func TestMetadataPutGetList(t *testing.T) {
	svc, _ := newMetadataFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf"} {
		if err := svc.Put(ctx, sampleRecord(name)); err != nil {
			t.Fatalf("Put %s: %v", name, err)
		}
	}

	rec, err := svc.Get(ctx, "AGCC", "2025", "a.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Submitter != "alice" || len(rec.ApproverChain) != 3 {
		t.Fatalf("record: %+v", rec)
	}

	records, err := svc.List(ctx, "AGCC", "2025")
	if err != nil || len(records) != 2 {
		t.Fatalf("List: %d err=%v", len(records), err)
	}

	if _, err := svc.Get(ctx, "AGCC", "2025", "ghost.pdf"); AsServiceError(err).Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestMetadataLegacySidecarRead(t *testing.T) {
	svc, paths := newMetadataFixture(t)
	ctx := context.Background()

	// A sidecar co-located with the project file, as the old tooling wrote them.
	projectDir := paths.ProjectDir("AGCC", "2024")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	legacy := sampleRecord("old.pdf")
	legacy.Year = "2024"
	raw, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(projectDir, "old.pdf.meta.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Get(ctx, "AGCC", "2024", "old.pdf")
	if err != nil {
		t.Fatalf("legacy Get: %v", err)
	}
	if rec.Filename != "old.pdf" {
		t.Fatalf("record: %+v", rec)
	}

	// The canonical tree stays empty: legacy sidecars are read, never created.
	if _, err := os.Stat(paths.MetadataDoc("AGCC", "2024", "old.pdf")); !os.IsNotExist(err) {
		t.Fatal("legacy read must not create a canonical sidecar")
	}
}

func TestMetadataSearch(t *testing.T) {
	svc, _ := newMetadataFixture(t)
	ctx := context.Background()

	a := sampleRecord("a.pdf")
	b := sampleRecord("b.pdf")
	b.Submitter = "dave"
	b.Team = "KUSAKABE"
	for _, rec := range []models.MetadataRecord{a, b} {
		if err := svc.Put(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := svc.Search(ctx, func(rec models.MetadataRecord) bool {
		return rec.Submitter == "dave"
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Team != "KUSAKABE" {
		t.Fatalf("matches: %+v", matches)
	}
}
