package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

// PomodoroRepository persists the timer under sl_pomodoro_<username>. The
// unscoped key written by older versions is adopted on first read.
type PomodoroRepository struct {
	storage storage.Storage
	users   UsernameSource
	logger  *log.Logger
}

func NewPomodoroRepository(s storage.Storage, users UsernameSource, logger *log.Logger) *PomodoroRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &PomodoroRepository{storage: s, users: users, logger: logger}
}

func (r *PomodoroRepository) key(ctx context.Context) string {
	return storage.ScopedKey(storage.KeyPomodoroLegacy, r.users.ActiveUsername(ctx))
}

// Key is the storage key of the active user's timer.
func (r *PomodoroRepository) Key(ctx context.Context) string {
	return r.key(ctx)
}

// GetState returns the stored state laid over the defaults. A missing or
// unreadable record yields the defaults.
func (r *PomodoroRepository) GetState(ctx context.Context, modes model.Modes, now time.Time) (model.PomodoroState, error) {
	state := model.DefaultPomodoroState(modes, now)
	raw, ok, err := storage.MigrateLegacy(ctx, r.storage, storage.KeyPomodoroLegacy, r.key(ctx))
	if err != nil {
		return state, err
	}
	if !ok || raw == "" {
		return state, nil
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		r.logger.Printf("repository: parse pomodoro state: %v", err)
		return model.DefaultPomodoroState(modes, now), nil
	}
	return state, nil
}

// SaveState stamps LastUpdated, writes the scoped key and drops the legacy one.
func (r *PomodoroRepository) SaveState(ctx context.Context, state model.PomodoroState, now time.Time) (model.PomodoroState, error) {
	next := state.Clone()
	next.LastUpdated = now.UnixMilli()

	key := r.key(ctx)
	if err := storage.SetJSON(ctx, r.storage, key, next); err != nil {
		return state, fmt.Errorf("save pomodoro state: %w", err)
	}
	if key != storage.KeyPomodoroLegacy {
		if err := r.storage.Remove(ctx, storage.KeyPomodoroLegacy); err != nil {
			return state, fmt.Errorf("save pomodoro state: %w", err)
		}
	}
	return next, nil
}

func (r *PomodoroRepository) DeleteState(ctx context.Context) error {
	key := r.key(ctx)
	if err := r.storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("delete pomodoro state: %w", err)
	}
	if key != storage.KeyPomodoroLegacy {
		if err := r.storage.Remove(ctx, storage.KeyPomodoroLegacy); err != nil {
			return fmt.Errorf("delete pomodoro state: %w", err)
		}
	}
	return nil
}
