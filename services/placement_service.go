package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"file-approval-api/models"
	"file-approval-api/storage"
)

// PlacementService relocates approved artifacts from the upload tree into the
// canonical project tree, with a staged fallback and a manual-request path when
// privileged placement fails. Placement failures never reverse an approval; the
// background retrier keeps promoting staged and manual outcomes to DELIVERED
// once permissions allow.
type PlacementService struct {
	store    *storage.Store
	paths    *storage.PathResolver
	archive  *ArchiveService
	metadata *MetadataService
}

func NewPlacementService(store *storage.Store, paths *storage.PathResolver, archive *ArchiveService, metadata *MetadataService) *PlacementService {
	return &PlacementService{store: store, paths: paths, archive: archive, metadata: metadata}
}

// Place runs the delivery chain for a freshly approved submission, mutating its
// placement fields. Returned strings are side-effect failure notes, including
// one when even the manual-request record could not be written.
func (s *PlacementService) Place(ctx context.Context, sub *models.Submission) []string {
	year := placementYear(sub)
	var failures []string

	target, err := s.deliver(ctx, sub.UploadPath, sub.SubmitterTeam, year, sub.OriginalFilename)
	if err == nil {
		sub.PlacementOutcome = models.PlacementDelivered
		sub.PlacementTargetPath = target
		sub.StagingPath = ""
		if metaErr := s.writeSidecar(ctx, *sub, year, target); metaErr != nil {
			failures = append(failures, "metadata: "+metaErr.Error())
		}
		return failures
	}
	failures = append(failures, "placement: "+err.Error())

	staged, stageErr := s.stage(sub.UploadPath, sub.SubmitterTeam, year, sub.OriginalFilename)
	if stageErr == nil {
		sub.PlacementOutcome = models.PlacementStaged
		sub.StagingPath = staged
		return failures
	}
	failures = append(failures, "staging: "+stageErr.Error())

	sub.PlacementOutcome = models.PlacementManualRequested
	request := models.PlacementRequest{
		SubmissionID: sub.ID,
		From:         sub.UploadPath,
		To:           filepath.Join(s.paths.ProjectDir(sub.SubmitterTeam, year), sub.OriginalFilename),
		Reason:       fmt.Sprintf("direct: %v; staging: %v", err, stageErr),
		RequestedAt:  time.Now(),
	}
	if reqErr := s.appendRequest(ctx, request); reqErr != nil {
		failures = append(failures, "placement request: "+reqErr.Error())
	}
	return failures
}

// deliver moves the artifact into the project tree and returns the final path.
func (s *PlacementService) deliver(ctx context.Context, source, team, year, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.paths.ProjectDir(team, year)
	if err := ensureDirNoSymlink(dir); err != nil {
		return "", err
	}
	target, err := uniqueTarget(dir, filename)
	if err != nil {
		return "", err
	}
	if err := moveFile(source, target); err != nil {
		return "", err
	}
	return target, nil
}

// stage copies the artifact into the staging tree and leaves the source in
// place; a later delivery retry moves the staged copy and removes the source.
func (s *PlacementService) stage(source, team, year, filename string) (string, error) {
	dir := s.paths.StagingDir(team, year)
	if err := ensureDirNoSymlink(dir); err != nil {
		return "", err
	}
	target, err := uniqueTarget(dir, filename)
	if err != nil {
		return "", err
	}
	if err := copyFile(source, target); err != nil {
		return "", err
	}
	return target, nil
}

func (s *PlacementService) writeSidecar(ctx context.Context, sub models.Submission, year, finalPath string) error {
	approvedAt := time.Now()
	if sub.AdminDecidedAt != nil {
		approvedAt = *sub.AdminDecidedAt
	}
	chain := []string{sub.SubmitterUser}
	if sub.TLReviewer != "" {
		chain = append(chain, sub.TLReviewer)
	}
	if sub.AdminReviewer != "" {
		chain = append(chain, sub.AdminReviewer)
	}
	return s.metadata.Put(ctx, models.MetadataRecord{
		Filename:         filepath.Base(finalPath),
		Team:             sub.SubmitterTeam,
		Year:             year,
		Submitter:        sub.SubmitterUser,
		ApproverChain:    chain,
		ApprovedAt:       approvedAt,
		Description:      sub.Description,
		Tags:             sub.Tags,
		SourceUploadPath: sub.UploadPath,
		FinalPath:        finalPath,
	})
}

func (s *PlacementService) appendRequest(ctx context.Context, request models.PlacementRequest) error {
	return s.store.Modify(ctx, s.paths.PlacementRequestsDoc(), false, func(raw []byte) (interface{}, error) {
		var requests []models.PlacementRequest
		if raw != nil {
			if err := json.Unmarshal(raw, &requests); err != nil {
				return nil, fmt.Errorf("placement requests: %w", storage.ErrCorrupt)
			}
		}
		for _, existing := range requests {
			if existing.SubmissionID == request.SubmissionID {
				return requests, nil
			}
		}
		return append(requests, request), nil
	})
}

func (s *PlacementService) removeRequest(ctx context.Context, submissionID string) error {
	return s.store.Modify(ctx, s.paths.PlacementRequestsDoc(), true, func(raw []byte) (interface{}, error) {
		var requests []models.PlacementRequest
		if raw != nil {
			if err := json.Unmarshal(raw, &requests); err != nil {
				return nil, fmt.Errorf("placement requests: %w", storage.ErrCorrupt)
			}
		}
		kept := requests[:0]
		for _, existing := range requests {
			if existing.SubmissionID != submissionID {
				kept = append(kept, existing)
			}
		}
		return kept, nil
	})
}

// ListRequests returns the open manual-placement requests.
func (s *PlacementService) ListRequests(ctx context.Context) ([]models.PlacementRequest, error) {
	var requests []models.PlacementRequest
	if _, err := s.store.Read(ctx, s.paths.PlacementRequestsDoc(), &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// Sweep re-attempts delivery for every approved submission whose artifact is not
// yet in the project tree. Retries are idempotent because the target is computed
// fresh each attempt. Returns the number of promotions.
func (s *PlacementService) Sweep(ctx context.Context) (int, error) {
	records, err := s.archive.List(ctx, ArchiveApproved)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, sub := range records {
		if sub.PlacementOutcome == models.PlacementDelivered || sub.PlacementOutcome == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return promoted, err
		}
		if s.retryOne(ctx, sub) {
			promoted++
		}
	}
	return promoted, nil
}

// retryOne attempts to promote a single staged or manual submission.
func (s *PlacementService) retryOne(ctx context.Context, sub models.Submission) bool {
	source := sub.UploadPath
	staged := sub.PlacementOutcome == models.PlacementStaged && sub.StagingPath != ""
	if staged {
		source = sub.StagingPath
	}
	if _, err := os.Lstat(source); err != nil {
		return false
	}

	year := placementYear(&sub)
	target, err := s.deliver(ctx, source, sub.SubmitterTeam, year, sub.OriginalFilename)
	if err != nil {
		return false
	}

	// The staged copy became the delivered file via move; a leftover original
	// upload is cleaned up so the artifact exists exactly once.
	if staged && sub.UploadPath != "" {
		os.Remove(sub.UploadPath)
	}

	if err := s.archive.Update(ctx, ArchiveApproved, sub.ID, func(rec *models.Submission) {
		rec.PlacementOutcome = models.PlacementDelivered
		rec.PlacementTargetPath = target
		rec.StagingPath = ""
	}); err != nil {
		log.Printf("Warning: placement promoted %s but archive update failed: %v", sub.ID, err)
	}
	if err := s.removeRequest(ctx, sub.ID); err != nil {
		log.Printf("Warning: could not close placement request for %s: %v", sub.ID, err)
	}
	if err := s.writeSidecar(ctx, sub, year, target); err != nil {
		log.Printf("Warning: sidecar refresh failed for %s: %v", sub.ID, err)
	}
	return true
}

// Run drives the retrier until ctx is cancelled.
func (s *PlacementService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if promoted, err := s.Sweep(ctx); err != nil {
				log.Printf("Placement sweep error: %v", err)
			} else if promoted > 0 {
				log.Printf("Placement sweep promoted %d submission(s)", promoted)
			}
		}
	}
}

// placementYear is the four-digit year of the admin decision.
func placementYear(sub *models.Submission) string {
	if sub.AdminDecidedAt != nil {
		return sub.AdminDecidedAt.Format("2006")
	}
	return time.Now().Format("2006")
}

// uniqueTarget resolves filename inside dir, appending " (n)" before the
// extension with the smallest free n. Existing files are never overwritten.
func uniqueTarget(dir, filename string) (string, error) {
	candidate := filepath.Join(dir, filename)
	if _, err := os.Lstat(candidate); os.IsNotExist(err) {
		return candidate, nil
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, stem+" ("+strconv.Itoa(n)+")"+ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
		if n >= 10000 {
			return "", fmt.Errorf("no free name for %s in %s", filename, dir)
		}
	}
}

// ensureDirNoSymlink creates dir and refuses to write through a symlinked
// directory, which keeps placement inside the resolved team/year tree.
func ensureDirNoSymlink(dir string) error {
	if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%s is a symlink", dir)
	}
	return os.MkdirAll(dir, 0o755)
}

// moveFile renames source onto target, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(source, target string) error {
	if err := os.Rename(source, target); err == nil {
		return nil
	} else if os.IsPermission(err) {
		return err
	}
	if err := copyFile(source, target); err != nil {
		return err
	}
	return os.Remove(source)
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}
