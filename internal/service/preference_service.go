package service

import (
	"context"
	"log"
	"time"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/storage"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Preferences struct {
	Theme   string `json:"theme"`
	NewYear bool   `json:"newYear"`
}

// PreferenceService reads and writes the display preferences shared by every
// process using the same storage.
type PreferenceService struct {
	storage  storage.Storage
	interval time.Duration
	logger   *log.Logger
}

func NewPreferenceService(s storage.Storage, interval time.Duration, logger *log.Logger) *PreferenceService {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PreferenceService{storage: s, interval: interval, logger: logger}
}

// Theme returns the stored theme; anything unrecognized reads as light.
func (s *PreferenceService) Theme(ctx context.Context) (string, error) {
	value, _, err := s.storage.Get(ctx, storage.KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if value == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

func (s *PreferenceService) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return apperrors.Validation("theme", "theme must be light or dark")
	}
	return s.storage.Set(ctx, storage.KeyTheme, theme)
}

// NewYearMode is on unless it was explicitly turned off.
func (s *PreferenceService) NewYearMode(ctx context.Context) (bool, error) {
	value, _, err := s.storage.Get(ctx, storage.KeyNewYearMode)
	if err != nil {
		return true, err
	}
	return value != "off", nil
}

func (s *PreferenceService) SetNewYearMode(ctx context.Context, on bool) error {
	value := "off"
	if on {
		value = "on"
	}
	return s.storage.Set(ctx, storage.KeyNewYearMode, value)
}

func (s *PreferenceService) Current(ctx context.Context) (Preferences, error) {
	theme, err := s.Theme(ctx)
	if err != nil {
		return Preferences{}, err
	}
	newYear, err := s.NewYearMode(ctx)
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{Theme: theme, NewYear: newYear}, nil
}

// WatchChanges sends the preferences whenever either one changes, whether
// the write came from this process through a storage.Notifier or from
// another process sharing the store. The channel closes when ctx is done.
func (s *PreferenceService) WatchChanges(ctx context.Context) <-chan Preferences {
	out := make(chan Preferences, 1)
	changes := make(chan storage.Change, 4)

	last, err := s.Current(ctx)
	if err != nil {
		s.logger.Printf("preferences: read: %v", err)
	}

	var local <-chan storage.Change
	release := func() {}
	if notifier, ok := s.storage.(*storage.Notifier); ok {
		local, release = notifier.Subscribe()
	}

	go func() {
		keys := []string{storage.KeyTheme, storage.KeyNewYearMode}
		if err := storage.Poll(ctx, s.storage, s.interval, keys, changes); err != nil && ctx.Err() == nil {
			s.logger.Printf("preferences: poll storage: %v", err)
		}
	}()

	go func() {
		defer close(out)
		defer release()

		for {
			var change storage.Change
			var ok bool
			select {
			case <-ctx.Done():
				return
			case change = <-changes:
			case change, ok = <-local:
				if !ok {
					local = nil
					continue
				}
			}
			if change.Key != "" && change.Key != storage.KeyTheme && change.Key != storage.KeyNewYearMode {
				continue
			}

			current, err := s.Current(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Printf("preferences: read: %v", err)
				continue
			}
			if current == last {
				continue
			}
			last = current
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
