// Package session persists the authenticated identity and its bearer tokens.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

type Store struct {
	storage storage.Storage
	logger  *log.Logger
	now     func() time.Time
}

func NewStore(s storage.Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{storage: s, logger: logger, now: time.Now}
}

// rawSession accepts both the versioned nested shape and the legacy flat one.
type rawSession struct {
	Version      int      `json:"version"`
	SavedAt      int64    `json:"savedAt"`
	AccessToken  *string  `json:"accessToken"`
	RefreshToken *string  `json:"refreshToken"`
	User         *rawUser `json:"user"`
	Username     *string  `json:"username"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Email        string   `json:"email"`
	Avatar       string   `json:"avatar"`
}

type rawUser struct {
	ID        string  `json:"id"`
	Username  *string `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Avatar    string  `json:"avatar"`
}

func (r rawSession) normalize(now time.Time) (*model.Session, bool) {
	savedAt := r.SavedAt
	if savedAt == 0 {
		savedAt = now.UnixMilli()
	}

	if r.Version < model.SessionVersion && r.Username != nil && *r.Username != "" {
		return &model.Session{
			Version:      model.SessionVersion,
			SavedAt:      savedAt,
			AccessToken:  deref(r.AccessToken),
			RefreshToken: deref(r.RefreshToken),
			User: model.User{
				Username:  *r.Username,
				FirstName: r.FirstName,
				LastName:  r.LastName,
				Email:     r.Email,
				Avatar:    r.Avatar,
			},
		}, true
	}

	if r.User == nil || r.User.Username == nil || *r.User.Username == "" {
		return nil, false
	}

	return &model.Session{
		Version:      model.SessionVersion,
		SavedAt:      savedAt,
		AccessToken:  deref(r.AccessToken),
		RefreshToken: deref(r.RefreshToken),
		User: model.User{
			ID:        r.User.ID,
			Username:  *r.User.Username,
			FirstName: r.User.FirstName,
			LastName:  r.User.LastName,
			Email:     r.User.Email,
			Avatar:    r.User.Avatar,
		},
	}, true
}

// Normalize converts any accepted session encoding into the current shape.
// It reports false when the payload has no username.
func Normalize(raw []byte, now time.Time) (*model.Session, bool) {
	var parsed rawSession
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false
	}
	return parsed.normalize(now)
}

// Get returns the persisted session, rewriting it in the current shape when
// it was stored in an older one. Absent, corrupt or anonymous sessions read
// as nil.
func (s *Store) Get(ctx context.Context) (*model.Session, error) {
	raw, ok, err := s.storage.Get(ctx, storage.KeySession)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}

	session, valid := Normalize([]byte(raw), s.now())
	if !valid {
		s.logger.Printf("session: ignoring unreadable session")
		return nil, nil
	}

	if !sameEncoding(raw, session) {
		if err := storage.SetJSON(ctx, s.storage, storage.KeySession, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// Set validates and persists session.
func (s *Store) Set(ctx context.Context, session model.Session) (*model.Session, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	normalized, valid := Normalize(raw, s.now())
	if !valid {
		return nil, apperrors.Validation("user.username", "invalid session payload")
	}
	if err := storage.SetJSON(ctx, s.storage, storage.KeySession, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// UpdateUser merges update into the stored user. It returns nil when no
// session exists.
func (s *Store) UpdateUser(ctx context.Context, update model.UserUpdate) (*model.Session, error) {
	existing, err := s.Get(ctx)
	if err != nil || existing == nil {
		return nil, err
	}
	next := *existing
	next.User = existing.User.Apply(update)
	return s.Set(ctx, next)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Remove(ctx, storage.KeySession)
}

// AuthToken returns the access token, or "" when signed out.
func (s *Store) AuthToken(ctx context.Context) (string, error) {
	session, err := s.Get(ctx)
	if err != nil || session == nil {
		return "", err
	}
	return session.AccessToken, nil
}

// ActiveUser returns a copy of the signed-in user, or nil.
func (s *Store) ActiveUser(ctx context.Context) (*model.User, error) {
	session, err := s.Get(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	user := session.User
	return &user, nil
}

// ActiveUsername returns the signed-in username, or "". Read failures are
// logged and treated as signed out.
func (s *Store) ActiveUsername(ctx context.Context) string {
	user, err := s.ActiveUser(ctx)
	if err != nil {
		s.logger.Printf("session: read active user: %v", err)
		return ""
	}
	if user == nil {
		return ""
	}
	return user.Username
}

// TokenExpiry reads the exp claim of the access token without verifying its
// signature. ok is false when there is no token or it carries no expiry.
func (s *Store) TokenExpiry(ctx context.Context) (time.Time, bool, error) {
	token, err := s.AuthToken(ctx)
	if err != nil || token == "" {
		return time.Time{}, false, err
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false, nil
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

func sameEncoding(raw string, session *model.Session) bool {
	var stored, normalized interface{}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return false
	}
	encoded, err := json.Marshal(session)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return false
	}
	return reflect.DeepEqual(stored, normalized)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
