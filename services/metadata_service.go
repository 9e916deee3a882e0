package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"file-approval-api/models"
	"file-approval-api/storage"
)

// MetadataService maintains the per-file metadata sidecars under
// metadata/{team}/{year}/{filename}.meta.json. The sidecar tree is separate from
// the project tree; a legacy sidecar sitting next to the project file is still
// read transparently but never written.
type MetadataService struct {
	store *storage.Store
	paths *storage.PathResolver
}

func NewMetadataService(store *storage.Store, paths *storage.PathResolver) *MetadataService {
	return &MetadataService{store: store, paths: paths}
}

// Put writes (or rewrites) the sidecar for rec.
func (s *MetadataService) Put(ctx context.Context, rec models.MetadataRecord) error {
	doc := s.paths.MetadataDoc(rec.Team, rec.Year, rec.Filename)
	return s.store.Modify(ctx, doc, true, func(raw []byte) (interface{}, error) {
		return rec, nil
	})
}

// Get loads the sidecar for (team, year, filename). When the canonical sidecar
// is absent it falls back to a legacy sidecar co-located with the project file.
func (s *MetadataService) Get(ctx context.Context, team, year, filename string) (models.MetadataRecord, error) {
	var rec models.MetadataRecord
	found, err := s.store.Read(ctx, s.paths.MetadataDoc(team, year, filename), &rec)
	if err != nil {
		return models.MetadataRecord{}, err
	}
	if found {
		return rec, nil
	}

	legacy := filepath.Join(s.paths.ProjectDir(team, year), filename+".meta.json")
	found, err = s.store.Read(ctx, legacy, &rec)
	if err != nil {
		return models.MetadataRecord{}, err
	}
	if !found {
		return models.MetadataRecord{}, ErrNotFound("metadata for " + filename)
	}
	return rec, nil
}

// List returns all sidecars for a team and year.
func (s *MetadataService) List(ctx context.Context, team, year string) ([]models.MetadataRecord, error) {
	docs, err := s.store.List(ctx, s.paths.MetadataDir(team, year), "")
	if err != nil {
		return nil, err
	}
	records := make([]models.MetadataRecord, 0, len(docs))
	for _, doc := range docs {
		if !strings.HasSuffix(doc, ".meta.json") {
			continue
		}
		var rec models.MetadataRecord
		if found, err := s.store.Read(ctx, doc, &rec); err == nil && found {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Search walks the whole sidecar tree and returns the records matching pred.
func (s *MetadataService) Search(ctx context.Context, pred func(models.MetadataRecord) bool) ([]models.MetadataRecord, error) {
	root := filepath.Join(s.paths.Base(), "metadata")
	var matches []models.MetadataRecord
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		var rec models.MetadataRecord
		if found, readErr := s.store.Read(ctx, path, &rec); readErr == nil && found && pred(rec) {
			matches = append(matches, rec)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return matches, nil
}
