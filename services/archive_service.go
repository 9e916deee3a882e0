package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

// Archive kinds. Each terminal state maps to exactly one ring log.
const (
	ArchiveApproved      = "approved"
	ArchiveRejectedAdmin = "rejected_admin"
	ArchiveRejectedTL    = "rejected_tl"
	ArchiveWithdrawn     = "withdrawn"
)

// ArchiveKindForState maps a terminal submission state to its archive kind.
func ArchiveKindForState(state string) (string, bool) {
	switch state {
	case models.StateApproved:
		return ArchiveApproved, true
	case models.StateRejectedByAdmin:
		return ArchiveRejectedAdmin, true
	case models.StateRejectedByTL:
		return ArchiveRejectedTL, true
	case models.StateWithdrawn:
		return ArchiveWithdrawn, true
	}
	return "", false
}

// ValidArchiveKind reports whether kind names one of the ring logs.
func ValidArchiveKind(kind string) bool {
	switch kind {
	case ArchiveApproved, ArchiveRejectedAdmin, ArchiveRejectedTL, ArchiveWithdrawn:
		return true
	}
	return false
}

// ArchiveService keeps the capped, newest-first logs of terminal submissions.
// Records are appended once per submission (dedup by id) and evicted oldest-first
// past the cap. The approved log is also where the placement retrier finds its
// work, because approved submissions leave the live queue immediately.
type ArchiveService struct {
	store *storage.Store
	paths *storage.PathResolver
	cap   int
}

// NewArchiveService builds the service. cap <= 0 falls back to 1000.
func NewArchiveService(store *storage.Store, paths *storage.PathResolver, cap int) *ArchiveService {
	if cap <= 0 {
		cap = 1000
	}
	return &ArchiveService{store: store, paths: paths, cap: cap}
}

// Record archives sub into the log matching its terminal state. Re-archiving the
// same submission replaces the previous record in place, which keeps crash
// recovery idempotent.
func (s *ArchiveService) Record(ctx context.Context, sub models.Submission) error {
	kind, ok := ArchiveKindForState(sub.State)
	if !ok {
		return fmt.Errorf("state %s has no archive", sub.State)
	}
	now := time.Now()
	sub.ArchivedAt = &now
	return s.store.Modify(ctx, s.paths.ArchiveDoc(kind), false, func(raw []byte) (interface{}, error) {
		var records []models.Submission
		if raw != nil {
			if err := json.Unmarshal(raw, &records); err != nil {
				return nil, fmt.Errorf("archive %s: %w", kind, storage.ErrCorrupt)
			}
		}
		for i, existing := range records {
			if existing.ID == sub.ID {
				records[i] = sub
				return records, nil
			}
		}
		records = append([]models.Submission{sub}, records...)
		if len(records) > s.cap {
			records = records[:s.cap]
		}
		return records, nil
	})
}

// List returns the records of one archive kind, newest first.
func (s *ArchiveService) List(ctx context.Context, kind string) ([]models.Submission, error) {
	if !ValidArchiveKind(kind) {
		return nil, ErrBadInput("unknown archive kind: " + kind)
	}
	var records []models.Submission
	if _, err := s.store.Read(ctx, s.paths.ArchiveDoc(kind), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Update applies fn to the archived record with the given id and rewrites the
// log. The retrier uses it to promote placement outcomes, and the engine uses it
// to annotate side-effect failures after a terminal transition.
func (s *ArchiveService) Update(ctx context.Context, kind, id string, fn func(*models.Submission)) error {
	if !ValidArchiveKind(kind) {
		return ErrBadInput("unknown archive kind: " + kind)
	}
	found := false
	err := s.store.Modify(ctx, s.paths.ArchiveDoc(kind), false, func(raw []byte) (interface{}, error) {
		var records []models.Submission
		if raw != nil {
			if err := json.Unmarshal(raw, &records); err != nil {
				return nil, fmt.Errorf("archive %s: %w", kind, storage.ErrCorrupt)
			}
		}
		for i := range records {
			if records[i].ID == id {
				fn(&records[i])
				found = true
				break
			}
		}
		return records, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound("archived submission " + id)
	}
	return nil
}
