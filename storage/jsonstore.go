package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Sentinel errors of the document store. Services map these onto the boundary
// error codes.
var (
	// ErrUnavailable means the underlying filesystem path cannot be reached or
	// the document lock cannot be acquired.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrCorrupt means a document exists but does not parse as JSON and salvage
	// was not requested.
	ErrCorrupt = errors.New("document corrupt")
)

// ModifyFunc receives the current raw document (nil when the document does not
// exist yet) and returns the value to persist. Returning an error aborts the
// modify without writing.
type ModifyFunc func(raw []byte) (interface{}, error)

// Store reads and rewrites named JSON documents on a shared filesystem. Every
// Modify holds an exclusive advisory lock on the document for the full
// read-mutate-write cycle and commits with an atomic rename, so concurrent
// writers on different hosts cannot interleave or tear a document. Reads are
// lock-free and may observe a slightly stale snapshot.
type Store struct {
	lockRetry time.Duration
}

// NewStore builds a Store that waits 25ms between lock attempts.
func NewStore() *Store {
	return &Store{lockRetry: 25 * time.Millisecond}
}

// Read unmarshals the document at path into v. It takes no lock. The boolean
// reports whether the document existed.
func (s *Store) Read(ctx context.Context, path string, v interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if os.IsPermission(err) {
			return false, fmt.Errorf("read %s: %w", path, ErrUnavailable)
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("parse %s: %w", path, ErrCorrupt)
	}
	return true, nil
}

// Modify applies fn to the document at path under an exclusive advisory lock and
// atomically replaces the document with fn's result. A missing document yields a
// nil raw slice; a malformed one fails with ErrCorrupt unless salvage is set, in
// which case fn receives nil and the rewrite discards the bad contents.
func (s *Store) Modify(ctx context.Context, path string, salvage bool, fn ModifyFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", filepath.Dir(path), ErrUnavailable)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, s.lockRetry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("lock %s: %w", path, ErrUnavailable)
	}
	if !locked {
		return fmt.Errorf("lock %s: %w", path, ErrUnavailable)
	}
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		if os.IsPermission(err) {
			return fmt.Errorf("read %s: %w", path, ErrUnavailable)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) > 0 && !json.Valid(raw) {
		if !salvage {
			return fmt.Errorf("parse %s: %w", path, ErrCorrupt)
		}
		raw = nil
	}
	if len(raw) == 0 {
		raw = nil
	}

	next, err := fn(raw)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.writeAtomic(path, next)
}

// writeAtomic serializes v to a temporary sibling, fsyncs it, and renames it
// over path.
func (s *Store) writeAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp for %s: %w", path, ErrUnavailable)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, ErrUnavailable)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, ErrUnavailable)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, ErrUnavailable)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, ErrUnavailable)
	}
	return nil
}

// Append appends record to the JSON array document at path, creating it when
// missing.
func (s *Store) Append(ctx context.Context, path string, record interface{}) error {
	return s.Modify(ctx, path, false, func(raw []byte) (interface{}, error) {
		var list []json.RawMessage
		if raw != nil {
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, ErrCorrupt)
			}
		}
		encoded, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		return append(list, json.RawMessage(encoded)), nil
	})
}

// List returns the document paths under dir whose names carry the given prefix.
// Lock and temp files are skipped.
func (s *Store) List(ctx context.Context, dir, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, ErrUnavailable)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, ".lock") || strings.Contains(name, ".tmp-") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
