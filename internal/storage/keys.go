package storage

import (
	"context"
	"fmt"
	"strings"
)

const (
	KeySession         = "sl_auth"
	KeyUsers           = "sl_users"
	KeyProfileLegacy   = "sl_profile"
	KeyTasksLegacy     = "tasks"
	KeyPomodoroLegacy  = "sl_pomodoro"
	KeyTheme           = "sl_theme_preference"
	KeyNewYearMode     = "newYearMode"
	KeyConspects       = "sl_conspects"
	KeyConspectFolders = "sl_conspect_folders"
	KeyConspectusZoom  = "sl_conspectus_zoom"
	KeyOverlayState    = "sl_pomodoro_overlay_state"
	KeyResetVersion    = "sl_storage_reset_version"

	profilePrefix = "sl_profile_"
)

// FormatVersion is bumped when a stored shape changes incompatibly.
const FormatVersion = "1"

func ProfileKey(username string) string {
	return profilePrefix + username
}

// ScopedKey returns legacy when username is blank and legacy_username otherwise.
func ScopedKey(legacy, username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return legacy
	}
	return legacy + "_" + username
}

// MigrateLegacy moves the value under legacy to scoped when scoped is empty.
// It returns the value now stored under scoped.
func MigrateLegacy(ctx context.Context, s Storage, legacy, scoped string) (string, bool, error) {
	value, ok, err := s.Get(ctx, scoped)
	if err != nil || ok || scoped == legacy {
		return value, ok, err
	}

	value, ok, err = s.Get(ctx, legacy)
	if err != nil || !ok {
		return "", false, err
	}
	if err := s.Set(ctx, scoped, value); err != nil {
		return "", false, fmt.Errorf("migrate %s: %w", legacy, err)
	}
	if err := s.Remove(ctx, legacy); err != nil {
		return "", false, fmt.Errorf("migrate %s: %w", legacy, err)
	}
	return value, true, nil
}

// EnsureFormatVersion clears the whole store once when the stored sentinel
// differs from version. It reports whether a reset happened.
func EnsureFormatVersion(ctx context.Context, s Storage, version string) (bool, error) {
	current, ok, err := s.Get(ctx, KeyResetVersion)
	if err != nil {
		return false, err
	}
	if ok && current == version {
		return false, nil
	}
	if err := s.Clear(ctx); err != nil {
		return false, fmt.Errorf("reset storage: %w", err)
	}
	if err := s.Set(ctx, KeyResetVersion, version); err != nil {
		return false, fmt.Errorf("reset storage: %w", err)
	}
	return true, nil
}
