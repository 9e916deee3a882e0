package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PathResolver maps the logical data roots onto the shared filesystem, falling back
// to a local directory when the share is unreachable. Reachability is re-checked at
// most once per probe interval; callers surface Degraded() to the UI.
//
// Layout under the resolved base:
//
//	approvals/queue.json
//	approvals/archive/{approved,rejected_admin,rejected_tl,withdrawn}.json
//	approvals/comments/{submission_id}.json
//	approvals/placement_requests.json
//	notifications/{username}/inbox.json
//	uploads/{username}/{filename}
//	metadata/{team}/{year}/{filename}.meta.json
//	staging/{team}/{year}/{filename}
//
// The project tree (projects/{team}/{year}) is configured separately because it
// usually lives on a different share with tighter permissions.
type PathResolver struct {
	networkRoot string
	localRoot   string
	projectRoot string
	probeTTL    time.Duration

	mu        sync.Mutex
	probedAt  time.Time
	reachable bool
}

// NewPathResolver builds a resolver. probeTTL bounds how stale a cached
// reachability verdict may be.
func NewPathResolver(networkRoot, localRoot, projectRoot string, probeTTL time.Duration) *PathResolver {
	if probeTTL <= 0 {
		probeTTL = 30 * time.Second
	}
	return &PathResolver{
		networkRoot: networkRoot,
		localRoot:   localRoot,
		projectRoot: projectRoot,
		probeTTL:    probeTTL,
	}
}

// probe tests existence plus writability of the network root by creating and
// removing a sentinel directory. The sentinel name is fixed so repeated probes
// are idempotent even if a crash leaves one behind.
func (r *PathResolver) probe() bool {
	sentinel := filepath.Join(r.networkRoot, ".reach_probe")
	if err := os.MkdirAll(sentinel, 0o755); err != nil {
		return false
	}
	os.Remove(sentinel)
	return true
}

// Base returns the usable data root, probing the network root if the cached
// verdict has expired.
func (r *PathResolver) Base() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.probedAt) >= r.probeTTL {
		r.reachable = r.probe()
		r.probedAt = time.Now()
	}
	if r.reachable {
		return r.networkRoot
	}
	return r.localRoot
}

// Degraded reports whether the resolver is currently serving the local fallback.
func (r *PathResolver) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.probedAt) >= r.probeTTL {
		r.reachable = r.probe()
		r.probedAt = time.Now()
	}
	return !r.reachable
}

// QueueDoc is the live submission queue document.
func (r *PathResolver) QueueDoc() string {
	return filepath.Join(r.Base(), "approvals", "queue.json")
}

// ArchiveDoc returns the ring-log document for one archive kind
// (approved | rejected_admin | rejected_tl | withdrawn).
func (r *PathResolver) ArchiveDoc(kind string) string {
	return filepath.Join(r.Base(), "approvals", "archive", kind+".json")
}

// CommentsDoc returns the per-submission comment thread document.
func (r *PathResolver) CommentsDoc(submissionID string) string {
	return filepath.Join(r.Base(), "approvals", "comments", submissionID+".json")
}

// CommentsDir returns the comment documents directory.
func (r *PathResolver) CommentsDir() string {
	return filepath.Join(r.Base(), "approvals", "comments")
}

// LegacyCommentsDocs returns the two pre-consolidation comment documents, oldest
// format first. They are read only by the one-shot migration.
func (r *PathResolver) LegacyCommentsDocs() []string {
	base := filepath.Join(r.Base(), "approvals")
	return []string{
		filepath.Join(base, "comments.json"),
		filepath.Join(base, "approval_comments.json"),
	}
}

// PlacementRequestsDoc holds the open manual-placement requests.
func (r *PathResolver) PlacementRequestsDoc() string {
	return filepath.Join(r.Base(), "approvals", "placement_requests.json")
}

// InboxDoc returns a user's notification inbox document.
func (r *PathResolver) InboxDoc(username string) string {
	return filepath.Join(r.Base(), "notifications", username, "inbox.json")
}

// UploadDir returns a user's upload directory.
func (r *PathResolver) UploadDir(username string) string {
	return filepath.Join(r.Base(), "uploads", username)
}

// ProjectDir returns the final delivery directory for a team and year.
func (r *PathResolver) ProjectDir(team, year string) string {
	return filepath.Join(r.projectRoot, team, year)
}

// StagingDir returns the staged-fallback directory for a team and year.
func (r *PathResolver) StagingDir(team, year string) string {
	return filepath.Join(r.Base(), "staging", team, year)
}

// MetadataDir returns the metadata sidecar directory for a team and year. The
// sidecar tree is kept apart from the project tree so the latter contains only
// artifacts.
func (r *PathResolver) MetadataDir(team, year string) string {
	return filepath.Join(r.Base(), "metadata", team, year)
}

// MetadataDoc returns the sidecar path for a delivered filename.
func (r *PathResolver) MetadataDoc(team, year, filename string) string {
	return filepath.Join(r.MetadataDir(team, year), filename+".meta.json")
}

// EnsureSkeleton creates the fixed directories of the data tree under the current
// base. Per-user and per-team subdirectories are created on demand.
func (r *PathResolver) EnsureSkeleton() error {
	base := r.Base()
	dirs := []string{
		filepath.Join(base, "approvals", "archive"),
		filepath.Join(base, "approvals", "comments"),
		filepath.Join(base, "notifications"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "metadata"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
