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

// UserRepository is the on-device user directory consulted when the API is
// unreachable. It lives under a single storage key as a JSON array.
type UserRepository struct {
	storage storage.Storage
	logger  *log.Logger
}

func NewUserRepository(s storage.Storage, logger *log.Logger) *UserRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &UserRepository{storage: s, logger: logger}
}

// List returns every local user. An unreadable directory reads as empty.
func (r *UserRepository) List(ctx context.Context) ([]model.LocalUser, error) {
	var users []model.LocalUser
	if _, err := storage.GetJSON(ctx, r.storage, storage.KeyUsers, &users); err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			return nil, err
		}
		r.logger.Printf("repository: read local users: %v", err)
		return []model.LocalUser{}, nil
	}
	if users == nil {
		users = []model.LocalUser{}
	}
	return users, nil
}

// GetByUsername matches username exactly.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.LocalUser, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// UsernameTaken compares usernames case-insensitively.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	users, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	lower := strings.ToLower(strings.TrimSpace(username))
	for _, user := range users {
		if strings.ToLower(user.Username) == lower {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.LocalUser) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	users = append(users, *user)
	if err := storage.SetJSON(ctx, r.storage, storage.KeyUsers, users); err != nil {
		return fmt.Errorf("create local user: %w", err)
	}
	return nil
}
