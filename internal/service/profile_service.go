package service

import (
	"context"
	"log"
	"net/http"
	"strings"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
	"smartlife/client/internal/session"
)

// ProfileService keeps a per-user profile cache in step with the API and the
// session.
type ProfileService struct {
	client   *httpclient.Client
	sessions *session.Store
	repo     *repository.ProfileRepository
	logger   *log.Logger
}

func NewProfileService(
	client *httpclient.Client,
	sessions *session.Store,
	repo *repository.ProfileRepository,
	logger *log.Logger,
) *ProfileService {
	if logger == nil {
		logger = log.Default()
	}
	return &ProfileService{client: client, sessions: sessions, repo: repo, logger: logger}
}

// Get returns the defaults for the active user overlaid with the cached
// record, or with the legacy unscoped record when there is none.
func (s *ProfileService) Get(ctx context.Context) (model.Profile, error) {
	user, err := s.sessions.ActiveUser(ctx)
	if err != nil {
		return model.DefaultProfile(), err
	}
	base := defaultProfileFor(user)

	username := ""
	if user != nil {
		username = user.Username
	}
	stored, err := s.repo.Get(ctx, username)
	if repository.IsNotFound(err) && username != "" {
		stored, err = s.repo.Get(ctx, "")
	}
	if repository.IsNotFound(err) {
		return base, nil
	}
	if err != nil {
		return base, err
	}
	return base.Overlay(*stored), nil
}

// Save sends profile to the API and caches what the server confirmed under
// the confirmed username, which differs from the current one on a rename.
// When the API is unavailable the attempted profile is cached and the error
// is still returned.
func (s *ProfileService) Save(ctx context.Context, profile model.Profile) (*model.Profile, error) {
	previous := s.sessions.ActiveUsername(ctx)

	var confirmed model.User
	err := s.client.JSON(ctx, "/auth/me", httpclient.Options{
		Method: http.MethodPut,
		Body:   profile,
	}, &confirmed)
	if err != nil {
		if apperrors.IsFallbackEligible(err) {
			if cacheErr := s.repo.Put(ctx, profile, previous); cacheErr != nil {
				s.logger.Printf("profile: cache unsaved profile: %v", cacheErr)
			}
		}
		return nil, err
	}

	saved := profileFromUser(confirmed)
	if err := s.remember(ctx, saved, previous); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FetchFromServer refreshes the cache from the API. Failures other than
// cancellation are logged and answered from the cache.
func (s *ProfileService) FetchFromServer(ctx context.Context) (model.Profile, error) {
	previous := s.sessions.ActiveUsername(ctx)

	var remote model.User
	if err := s.client.JSON(ctx, "/auth/me", httpclient.Options{Method: http.MethodGet}, &remote); err != nil {
		if apperrors.IsCanceled(err) {
			return model.Profile{}, err
		}
		s.logger.Printf("profile: fetch from server: %v", err)
		return s.Get(ctx)
	}

	profile := profileFromUser(remote)
	if err := s.remember(ctx, profile, previous); err != nil {
		return profile, err
	}
	return profile, nil
}

// EnsureForUser folds an identity asserted by the server into the local
// cache and the session. A custom avatar already cached is never replaced by
// the default one. No request is made.
func (s *ProfileService) EnsureForUser(ctx context.Context, user model.User) error {
	username := strings.TrimSpace(user.Username)
	if username == "" {
		return nil
	}

	active, err := s.sessions.ActiveUser(ctx)
	if err != nil {
		return err
	}
	existing := model.Profile{}
	if stored, err := s.repo.Get(ctx, username); err == nil {
		existing = *stored
	} else if !repository.IsNotFound(err) {
		return err
	}

	avatar := strings.TrimSpace(user.Avatar)
	if avatar == "" {
		avatar = model.DefaultAvatar
	}
	if existing.Avatar != "" && existing.Avatar != model.DefaultAvatar {
		avatar = existing.Avatar
	}

	merged := defaultProfileFor(active).Overlay(existing)
	merged.Username = username
	merged.FirstName = firstNonEmpty(user.FirstName, merged.FirstName)
	merged.LastName = firstNonEmpty(user.LastName, merged.LastName)
	merged.Email = firstNonEmpty(user.Email, merged.Email)
	merged.Avatar = avatar

	if err := s.repo.Put(ctx, merged, ""); err != nil {
		return err
	}
	_, err = s.sessions.UpdateUser(ctx, model.UserUpdate{
		Username:  &merged.Username,
		FirstName: &merged.FirstName,
		LastName:  &merged.LastName,
		Email:     &merged.Email,
		Avatar:    &merged.Avatar,
	})
	return err
}

func (s *ProfileService) remember(ctx context.Context, profile model.Profile, previous string) error {
	if err := s.repo.Put(ctx, profile, previous); err != nil {
		return err
	}
	update := model.UserUpdate{
		FirstName: &profile.FirstName,
		LastName:  &profile.LastName,
		Email:     &profile.Email,
		Avatar:    &profile.Avatar,
	}
	if profile.Username != "" {
		update.Username = &profile.Username
	}
	_, err := s.sessions.UpdateUser(ctx, update)
	return err
}

func defaultProfileFor(user *model.User) model.Profile {
	base := model.DefaultProfile()
	if user == nil {
		return base
	}
	return base.Overlay(profileFromUser(*user))
}

func profileFromUser(user model.User) model.Profile {
	return model.Profile{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  strings.TrimSpace(user.Username),
		Email:     user.Email,
		Avatar:    strings.TrimSpace(user.Avatar),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
