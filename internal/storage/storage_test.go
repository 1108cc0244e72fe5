package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"smartlife/client/internal/storage"
)

func openTestStore(t *testing.T) *storage.SQLite {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := store.Get(ctx, "a")
	if err != nil || !ok || value != "2" {
		t.Fatalf("expected 2, got %q ok=%v err=%v", value, ok, err)
	}

	if err := store.Set(ctx, "b", "x"); err != nil {
		t.Fatalf("set b: %v", err)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "a"); ok {
		t.Fatal("expected a removed")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, _ = store.Keys(ctx)
	if len(keys) != 0 {
		t.Fatalf("expected empty store, got %v", keys)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		store, err := storage.Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = store.Close()
	}
}

func TestEnsureFormatVersionClearsOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	_ = store.Set(ctx, "stale", "value")

	reset, err := storage.EnsureFormatVersion(ctx, store, storage.FormatVersion)
	if err != nil || !reset {
		t.Fatalf("expected reset, got %v %v", reset, err)
	}
	if _, ok, _ := store.Get(ctx, "stale"); ok {
		t.Fatal("expected stale key cleared")
	}

	_ = store.Set(ctx, "fresh", "value")
	reset, err = storage.EnsureFormatVersion(ctx, store, storage.FormatVersion)
	if err != nil || reset {
		t.Fatalf("expected no second reset, got %v %v", reset, err)
	}
	if _, ok, _ := store.Get(ctx, "fresh"); !ok {
		t.Fatal("expected fresh key kept")
	}
}

func TestMigrateLegacyMovesValue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	_ = store.Set(ctx, "sl_pomodoro", `{"mode":"short"}`)

	scoped := storage.ScopedKey("sl_pomodoro", " ana ")
	if scoped != "sl_pomodoro_ana" {
		t.Fatalf("unexpected scoped key %q", scoped)
	}

	value, ok, err := storage.MigrateLegacy(ctx, store, "sl_pomodoro", scoped)
	if err != nil || !ok || value != `{"mode":"short"}` {
		t.Fatalf("unexpected migration result %q %v %v", value, ok, err)
	}
	if _, ok, _ := store.Get(ctx, "sl_pomodoro"); ok {
		t.Fatal("expected legacy key removed")
	}
}

func TestNotifierPublishesWrites(t *testing.T) {
	ctx := context.Background()
	notifier := storage.NewNotifier(storage.NewMemory())
	changes, cancel := notifier.Subscribe()
	defer cancel()

	_ = notifier.Set(ctx, "k", "v")
	_ = notifier.Set(ctx, "k", "v")
	_ = notifier.Remove(ctx, "k")

	first := <-changes
	if first.Key != "k" || first.NewValue != "v" || first.Removed {
		t.Fatalf("unexpected first change %+v", first)
	}
	second := <-changes
	if !second.Removed || second.OldValue != "v" {
		t.Fatalf("expected removal, got %+v", second)
	}
	select {
	case extra := <-changes:
		t.Fatalf("unexpected extra change %+v", extra)
	default:
	}
}

func TestPollSeesForeignWrites(t *testing.T) {
	store := storage.NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan storage.Change, 1)
	go func() {
		_ = storage.Poll(ctx, store, 10*time.Millisecond, []string{storage.KeyTheme}, out)
	}()

	time.Sleep(30 * time.Millisecond)
	_ = store.Set(context.Background(), storage.KeyTheme, "dark")

	select {
	case change := <-out:
		if change.Key != storage.KeyTheme || change.NewValue != "dark" {
			t.Fatalf("unexpected change %+v", change)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for polled change")
	}
}
