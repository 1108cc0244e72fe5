package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

// NoteRepository stores conspectus docs, folders and the editor zoom. The
// data is device-wide, not scoped to a user.
type NoteRepository struct {
	storage storage.Storage
	logger  *log.Logger
}

func NewNoteRepository(s storage.Storage, logger *log.Logger) *NoteRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &NoteRepository{storage: s, logger: logger}
}

// Docs reports false when nothing has ever been stored.
func (r *NoteRepository) Docs(ctx context.Context) ([]model.Doc, bool, error) {
	var docs []model.Doc
	ok, err := r.read(ctx, storage.KeyConspects, &docs)
	if err != nil || !ok {
		return []model.Doc{}, ok, err
	}
	if docs == nil {
		docs = []model.Doc{}
	}
	return docs, true, nil
}

func (r *NoteRepository) SaveDocs(ctx context.Context, docs []model.Doc) error {
	if docs == nil {
		docs = []model.Doc{}
	}
	if err := storage.SetJSON(ctx, r.storage, storage.KeyConspects, docs); err != nil {
		return fmt.Errorf("save docs: %w", err)
	}
	return nil
}

// Folders reports false when nothing has ever been stored.
func (r *NoteRepository) Folders(ctx context.Context) ([]model.Folder, bool, error) {
	var folders []model.Folder
	ok, err := r.read(ctx, storage.KeyConspectFolders, &folders)
	if err != nil || !ok {
		return []model.Folder{}, ok, err
	}
	if folders == nil {
		folders = []model.Folder{}
	}
	return folders, true, nil
}

func (r *NoteRepository) SaveFolders(ctx context.Context, folders []model.Folder) error {
	if folders == nil {
		folders = []model.Folder{}
	}
	if err := storage.SetJSON(ctx, r.storage, storage.KeyConspectFolders, folders); err != nil {
		return fmt.Errorf("save folders: %w", err)
	}
	return nil
}

// Zoom returns the clamped editor zoom, or the default when unset.
func (r *NoteRepository) Zoom(ctx context.Context) (float64, error) {
	raw, ok, err := r.storage.Get(ctx, storage.KeyConspectusZoom)
	if err != nil {
		return model.ZoomDefault, err
	}
	if !ok || raw == "" {
		return model.ZoomDefault, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.logger.Printf("repository: read editor zoom: %v", err)
		return model.ZoomDefault, nil
	}
	return model.ClampZoom(value), nil
}

func (r *NoteRepository) SaveZoom(ctx context.Context, value float64) (float64, error) {
	clamped := model.ClampZoom(value)
	if err := r.storage.Set(ctx, storage.KeyConspectusZoom, strconv.FormatFloat(clamped, 'f', -1, 64)); err != nil {
		return clamped, fmt.Errorf("save editor zoom: %w", err)
	}
	return clamped, nil
}

// read treats a corrupt value as present but empty, so it is not reseeded
// over the user's data.
func (r *NoteRepository) read(ctx context.Context, key string, v interface{}) (bool, error) {
	ok, err := storage.GetJSON(ctx, r.storage, key, v)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			r.logger.Printf("repository: read %s: %v", key, err)
			return true, nil
		}
		return false, err
	}
	return ok, nil
}
