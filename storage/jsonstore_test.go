package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestModifyCreatesMissingDocument(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "nested", "doc.json")

	err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
		if raw != nil {
			t.Fatalf("expected nil raw for missing document, got %q", raw)
		}
		return map[string]string{"hello": "world"}, nil
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}

	var loaded map[string]string
	found, err := store.Read(context.Background(), doc, &loaded)
	if err != nil || !found {
		t.Fatalf("Read after Modify: found=%v err=%v", found, err)
	}
	if loaded["hello"] != "world" {
		t.Fatalf("unexpected contents: %v", loaded)
	}
}

func TestRoundTripDeepEqual(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "doc.json")

	written := map[string]interface{}{
		"name":  "spec.pdf",
		"tags":  []interface{}{"drawing", "rev2"},
		"inner": map[string]interface{}{"n": "1"},
	}
	err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
		return written, nil
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}

	var loaded map[string]interface{}
	if _, err := store.Read(context.Background(), doc, &loaded); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(written, loaded) {
		t.Fatalf("round trip mismatch: wrote %v read %v", written, loaded)
	}
}

func TestModifyFnErrorAbortsWrite(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "doc.json")

	seed := func() {
		err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
			return map[string]int{"v": 1}, nil
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seed()

	wantErr := errors.New("validation failed")
	err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error back, got %v", err)
	}

	var loaded map[string]int
	if _, err := store.Read(context.Background(), doc, &loaded); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if loaded["v"] != 1 {
		t.Fatalf("document changed despite aborted modify: %v", loaded)
	}
}

func TestCorruptDocument(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(doc, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
		return map[string]int{}, nil
	})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	// With salvage the bad contents are discarded and the rewrite proceeds.
	err = store.Modify(context.Background(), doc, true, func(raw []byte) (interface{}, error) {
		if raw != nil {
			t.Fatalf("salvage should hand fn a nil document, got %q", raw)
		}
		return map[string]int{"v": 2}, nil
	})
	if err != nil {
		t.Fatalf("salvage modify: %v", err)
	}

	var loaded map[string]int
	if _, err := store.Read(context.Background(), doc, &loaded); err != nil {
		t.Fatalf("Read after salvage: %v", err)
	}
	if loaded["v"] != 2 {
		t.Fatalf("unexpected contents after salvage: %v", loaded)
	}
}

func TestReadCorrupt(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(doc, []byte("]["), 0o644); err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if _, err := store.Read(context.Background(), doc, &v); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestConcurrentModifySerializes(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "counter.json")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Modify(context.Background(), doc, false, func(raw []byte) (interface{}, error) {
				count := 0
				if raw != nil {
					if err := json.Unmarshal(raw, &count); err != nil {
						return nil, err
					}
				}
				return count + 1, nil
			})
			if err != nil {
				t.Errorf("Modify: %v", err)
			}
		}()
	}
	wg.Wait()

	var count int
	if _, err := store.Read(context.Background(), doc, &count); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if count != writers {
		t.Fatalf("lost updates: got %d want %d", count, writers)
	}
}

func TestAppend(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "list.json")

	for _, item := range []string{"a", "b", "c"} {
		if err := store.Append(context.Background(), doc, item); err != nil {
			t.Fatalf("Append %s: %v", item, err)
		}
	}

	var list []string
	if _, err := store.Read(context.Background(), doc, &list); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(list, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected list: %v", list)
	}
}

func TestListSkipsLockAndTempFiles(t *testing.T) {
	store := NewStore()
	dir := t.TempDir()
	for _, name := range []string{"one.json", "two.json", "two.json.lock", "two.json.tmp-123"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := store.List(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %v", docs)
	}
}

func TestModifyHonorsCancelledContext(t *testing.T) {
	store := NewStore()
	doc := filepath.Join(t.TempDir(), "doc.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Modify(ctx, doc, false, func(raw []byte) (interface{}, error) {
		t.Fatal("fn must not run after cancellation")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
