package service

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
	"smartlife/client/internal/session"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// AuthService signs users in against the API and falls back to the local
// user directory when the API cannot be reached at all.
type AuthService struct {
	client   *httpclient.Client
	sessions *session.Store
	users    *repository.UserRepository
	profiles *ProfileService
	logger   *log.Logger
	now      func() time.Time
	hashCost int
}

func NewAuthService(
	client *httpclient.Client,
	sessions *session.Store,
	users *repository.UserRepository,
	profiles *ProfileService,
	logger *log.Logger,
) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{
		client:   client,
		sessions: sessions,
		users:    users,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Username  string
	Password  string
	Confirm   string
	FirstName string
	LastName  string
	Email     string
	Avatar    string
}

type RegisterResult struct {
	User   model.User `json:"user"`
	Source string     `json:"source"`
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
}

// Login persists a session for the remote account. Only a transport failure
// falls back to the local directory; any status from the API is returned.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*model.Session, error) {
	var resp loginResponse
	err := s.client.JSON(ctx, "/auth/login", httpclient.Options{
		Method: http.MethodPost,
		Body:   creds,
		NoAuth: true,
	}, &resp)
	if err == nil {
		if resp.User == nil || resp.User.Username == "" {
			return nil, apperrors.New(http.StatusInternalServerError, "invalid_response", "Invalid login response from server")
		}
		return s.startSession(ctx, *resp.User, resp.AccessToken, resp.RefreshToken)
	}
	if !apperrors.IsOffline(err) {
		return nil, err
	}

	local, lookupErr := s.users.GetByUsername(ctx, creds.Username)
	if lookupErr != nil && !repository.IsNotFound(lookupErr) {
		return nil, lookupErr
	}
	if local == nil || bcrypt.CompareHashAndPassword([]byte(local.PasswordHash), []byte(creds.Password)) != nil {
		return nil, apperrors.Unauthorized("Invalid username or password.")
	}
	return s.startSession(ctx, local.User, "", "")
}

// Register creates the account remotely, or in the local directory when the
// API is unreachable. Local usernames are unique regardless of case.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	body, err := s.client.Fetch(ctx, "/auth/register", httpclient.Options{
		Method: http.MethodPost,
		NoAuth: true,
		Body: registerRequest{
			Username:        input.Username,
			Password:        input.Password,
			ConfirmPassword: input.Confirm,
			FirstName:       input.FirstName,
			LastName:        input.LastName,
			Email:           input.Email,
		},
	})
	if err == nil {
		return &RegisterResult{User: decodeRegisteredUser(body), Source: SourceRemote}, nil
	}
	if !apperrors.IsOffline(err) {
		return nil, err
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.Validation("username", "username is required")
	}
	if input.Password == "" {
		return nil, apperrors.Validation("password", "password is required")
	}
	if input.Confirm != "" && input.Confirm != input.Password {
		return nil, apperrors.Validation("confirm", "passwords do not match")
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("username_taken", "Username is already taken.", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apperrors.Internal("failed to secure password")
	}

	local := model.LocalUser{
		User: model.User{
			ID:        uuid.NewString(),
			Username:  username,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Email,
			Avatar:    input.Avatar,
		},
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, &local); err != nil {
		return nil, err
	}
	return &RegisterResult{User: local.User, Source: SourceLocal}, nil
}

// FetchCurrentUser asks the API who the token belongs to. Without a token the
// cached user is returned and no request is made. A 401 signs the user out
// and yields nil.
func (s *AuthService) FetchCurrentUser(ctx context.Context) (*model.User, error) {
	current, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	if current.AccessToken == "" {
		user := current.User
		return &user, nil
	}

	var user model.User
	if err := s.client.JSON(ctx, "/auth/me", httpclient.Options{Method: http.MethodGet}, &user); err != nil {
		if apperrors.IsUnauthorized(err) {
			if clearErr := s.sessions.Clear(ctx); clearErr != nil {
				return nil, clearErr
			}
			return nil, nil
		}
		return nil, err
	}

	if user.Username != "" {
		if _, err := s.sessions.UpdateUser(ctx, model.UpdateFromUser(user)); err != nil {
			return nil, err
		}
		if err := s.profiles.EnsureForUser(ctx, user); err != nil {
			s.logger.Printf("auth: reconcile profile for %s: %v", user.Username, err)
		}
	}
	return &user, nil
}

// Logout tells the API best-effort. An unreachable API is ignored; the local
// session is cleared on every path.
func (s *AuthService) Logout(ctx context.Context) (err error) {
	defer func() {
		if clearErr := s.sessions.Clear(context.WithoutCancel(ctx)); clearErr != nil && err == nil {
			err = clearErr
		}
	}()

	_, err = s.client.Fetch(ctx, "/auth/logout", httpclient.Options{Method: http.MethodPost})
	if err != nil && apperrors.IsOffline(err) {
		return nil
	}
	return err
}

func (s *AuthService) startSession(ctx context.Context, user model.User, accessToken, refreshToken string) (*model.Session, error) {
	created, err := s.sessions.Set(ctx, model.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: model.User{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Avatar:    user.Avatar,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.profiles.EnsureForUser(ctx, created.User); err != nil {
		s.logger.Printf("auth: reconcile profile for %s: %v", created.User.Username, err)
	}
	return s.sessions.Get(ctx)
}

// decodeRegisteredUser reads {"user": {...}} or a bare user object.
func decodeRegisteredUser(body *httpclient.Body) model.User {
	var envelope struct {
		User *model.User `json:"user"`
	}
	if err := body.Decode(&envelope); err == nil && envelope.User != nil {
		return *envelope.User
	}
	var user model.User
	_ = body.Decode(&user)
	return user
}
