package service

import (
	"context"
	"net/http"
	"testing"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

func TestLoginPersistsRemoteSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created := h.signIn(t)
	if created.User.Username != "ana" || created.AccessToken == "" {
		t.Fatalf("unexpected session %+v", created)
	}

	stored, err := h.sessions.Get(ctx)
	if err != nil || stored == nil || stored.User.Username != "ana" || stored.AccessToken == "" {
		t.Fatalf("expected persisted session, got %+v err %v", stored, err)
	}
	if _, ok, _ := h.storage.Get(ctx, storage.ProfileKey("ana")); !ok {
		t.Fatal("expected local profile record for ana")
	}
}

func TestLoginDoesNotFallBackOnServerRejection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.AddUser(model.User{Username: "ana"}, "x")

	_, err := h.auth.Login(ctx, Credentials{Username: "ana", Password: "wrong"})
	if !apperrors.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 from server, got %v", err)
	}
	if current, _ := h.sessions.Get(ctx); current != nil {
		t.Fatalf("expected no session, got %+v", current)
	}
}

func TestLoginFallsBackToLocalDirectoryWhenOffline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.GoOffline()

	registered, err := h.auth.Register(ctx, RegisterInput{Username: " bob ", Password: "pw", FirstName: "Bob"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.Source != SourceLocal || registered.User.Username != "bob" || registered.User.ID == "" {
		t.Fatalf("unexpected register result %+v", registered)
	}

	created, err := h.auth.Login(ctx, Credentials{Username: "bob", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if created.User.Username != "bob" || created.AccessToken != "" {
		t.Fatalf("expected tokenless local session, got %+v", created)
	}

	_, err = h.auth.Login(ctx, Credentials{Username: "bob", Password: "nope"})
	if !apperrors.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 for bad local password, got %v", err)
	}
}

func TestRegisterOfflineRejectsTakenUsername(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.GoOffline()

	if _, err := h.auth.Register(ctx, RegisterInput{Username: "Ana", Password: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := h.auth.Register(ctx, RegisterInput{Username: "ana", Password: "y"})
	if !apperrors.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestRegisterRemote(t *testing.T) {
	h := newHarness(t)

	result, err := h.auth.Register(context.Background(), RegisterInput{Username: "carol", Password: "pw", Confirm: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Source != SourceRemote || result.User.Username != "carol" {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := h.api.User("carol"); !ok {
		t.Fatal("expected account on server")
	}
}

func TestFetchCurrentUserWithoutTokenMakesNoRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.sessions.Set(ctx, model.Session{User: model.User{Username: "offline-ana"}}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	user, err := h.auth.FetchCurrentUser(ctx)
	if err != nil {
		t.Fatalf("fetch current user: %v", err)
	}
	if user == nil || user.Username != "offline-ana" {
		t.Fatalf("unexpected user %+v", user)
	}
	if h.api.Requests() != 0 {
		t.Fatalf("expected no requests, got %d", h.api.Requests())
	}
}

func TestFetchCurrentUserRefreshesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	user, err := h.auth.FetchCurrentUser(ctx)
	if err != nil {
		t.Fatalf("fetch current user: %v", err)
	}
	if user == nil || user.Email != "ana@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	stored, _ := h.sessions.Get(ctx)
	if stored.User.Email != "ana@example.com" {
		t.Fatalf("expected session email refreshed, got %+v", stored.User)
	}
}

func TestFetchCurrentUserUnauthorizedSignsOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.sessions.Set(ctx, model.Session{AccessToken: "forged", User: model.User{Username: "ana"}}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	user, err := h.auth.FetchCurrentUser(ctx)
	if err != nil || user != nil {
		t.Fatalf("expected nil user and no error, got %+v err %v", user, err)
	}
	if current, _ := h.sessions.Get(ctx); current != nil {
		t.Fatalf("expected session cleared, got %+v", current)
	}
}

func TestLogoutClearsSessionOnEveryPath(t *testing.T) {
	t.Run("online", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		if err := h.auth.Logout(context.Background()); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if current, _ := h.sessions.Get(context.Background()); current != nil {
			t.Fatal("expected session cleared")
		}
	})

	t.Run("offline", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		h.api.GoOffline()
		if err := h.auth.Logout(context.Background()); err != nil {
			t.Fatalf("expected offline logout to succeed, got %v", err)
		}
		if current, _ := h.sessions.Get(context.Background()); current != nil {
			t.Fatal("expected session cleared")
		}
	})

	t.Run("server error", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		h.api.FailWith(http.StatusInternalServerError)
		err := h.auth.Logout(context.Background())
		if !apperrors.IsStatus(err, http.StatusInternalServerError) {
			t.Fatalf("expected 500 to propagate, got %v", err)
		}
		if current, _ := h.sessions.Get(context.Background()); current != nil {
			t.Fatal("expected session cleared")
		}
	})
}
