package service

import (
	"context"
	"testing"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

func TestSaveProfileFollowsRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	current, err := h.profiles.Get(ctx)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	current.Username = "ana2"
	current.LastName = "Smith"

	saved, err := h.profiles.Save(ctx, current)
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if saved.Username != "ana2" || saved.LastName != "Smith" {
		t.Fatalf("unexpected saved profile %+v", saved)
	}

	if _, ok, _ := h.storage.Get(ctx, storage.ProfileKey("ana")); ok {
		t.Fatal("expected old profile record removed")
	}
	if _, ok, _ := h.storage.Get(ctx, storage.ProfileKey("ana2")); !ok {
		t.Fatal("expected profile cached under new username")
	}
	if got := h.sessions.ActiveUsername(ctx); got != "ana2" {
		t.Fatalf("expected session renamed, got %q", got)
	}
	if _, ok := h.api.User("ana2"); !ok {
		t.Fatal("expected server rename")
	}
}

func TestSaveProfileOfflineCachesAndFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)
	h.api.GoOffline()

	profile, err := h.profiles.Get(ctx)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	profile.FirstName = "Anna"

	if _, err := h.profiles.Save(ctx, profile); !apperrors.IsOffline(err) {
		t.Fatalf("expected offline error, got %v", err)
	}

	cached, err := h.profiles.Get(ctx)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if cached.FirstName != "Anna" {
		t.Fatalf("expected unsaved edit cached, got %+v", cached)
	}
}

func TestFetchFromServerFallsBackToCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)
	h.api.GoOffline()

	profile, err := h.profiles.FetchFromServer(ctx)
	if err != nil {
		t.Fatalf("fetch from server: %v", err)
	}
	if profile.Username != "ana" || profile.Email != "ana@example.com" {
		t.Fatalf("unexpected cached profile %+v", profile)
	}
}

func TestEnsureForUserKeepsCustomAvatar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	custom := model.Profile{Username: "ana", Avatar: "data:image/png;base64,AAAA"}
	if err := storage.SetJSON(ctx, h.storage, storage.ProfileKey("ana"), custom); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	before := h.api.Requests()

	if err := h.profiles.EnsureForUser(ctx, model.User{Username: "ana", FirstName: "Ann"}); err != nil {
		t.Fatalf("ensure for user: %v", err)
	}
	if h.api.Requests() != before {
		t.Fatal("expected no request")
	}

	profile, err := h.profiles.Get(ctx)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Avatar != custom.Avatar || profile.FirstName != "Ann" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	active, _ := h.sessions.ActiveUser(ctx)
	if active.Avatar != custom.Avatar {
		t.Fatalf("expected session avatar updated, got %q", active.Avatar)
	}
}

func TestProfileWithoutSessionReadsLegacyRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.storage.Set(ctx, storage.KeyProfileLegacy, `{"firstName":"Old"}`); err != nil {
		t.Fatalf("seed legacy profile: %v", err)
	}

	profile, err := h.profiles.Get(ctx)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	want := model.DefaultProfile()
	want.FirstName = "Old"
	if profile != want {
		t.Fatalf("expected %+v, got %+v", want, profile)
	}
}
