package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

// ProfileRepository caches profiles under sl_profile_<username>; a profile
// without a username goes to the legacy sl_profile key.
type ProfileRepository struct {
	storage storage.Storage
	logger  *log.Logger
}

func NewProfileRepository(s storage.Storage, logger *log.Logger) *ProfileRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &ProfileRepository{storage: s, logger: logger}
}

func profileKey(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.KeyProfileLegacy
	}
	return storage.ProfileKey(username)
}

// Get returns the cached profile for username ("" reads the legacy record),
// or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, username string) (*model.Profile, error) {
	var profile model.Profile
	ok, err := storage.GetJSON(ctx, r.storage, profileKey(username), &profile)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			r.logger.Printf("repository: read profile %q: %v", username, err)
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

// Put caches profile under its own username. When previousUsername names a
// different record, that record is removed so a rename leaves one entry.
func (r *ProfileRepository) Put(ctx context.Context, profile model.Profile, previousUsername string) error {
	key := profileKey(profile.Username)
	if err := storage.SetJSON(ctx, r.storage, key, profile); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}
	if strings.TrimSpace(profile.Username) == "" || strings.TrimSpace(previousUsername) == "" {
		return nil
	}
	if old := profileKey(previousUsername); old != key {
		if err := r.storage.Remove(ctx, old); err != nil {
			return fmt.Errorf("cache profile: %w", err)
		}
	}
	return nil
}
