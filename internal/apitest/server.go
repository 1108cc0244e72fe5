// Package apitest runs an in-process stand-in for the SmartLife REST API so
// client code can be exercised against real HTTP, including outages.
package apitest

import (
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
)

type account struct {
	user         model.User
	passwordHash string
}

type Server struct {
	URL string

	httpServer *httptest.Server
	secret     []byte
	tokenTTL   time.Duration

	mu         sync.Mutex
	accounts   map[string]*account
	tasks      map[string][]model.Task
	nextTaskID int
	requests   int
	failStatus int
	offline    bool
}

// New starts a server that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:   []byte("apitest-secret"),
		tokenTTL: time.Hour,
		accounts: make(map[string]*account),
		tasks:    make(map[string][]model.Task),
	}
	s.httpServer = httptest.NewServer(s.routes())
	s.URL = s.httpServer.URL
	t.Cleanup(s.GoOffline)
	return s
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), cors([]string{"http://localhost:5173"}), s.faults())

	auth := engine.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.GET("/me", s.auth(), s.me)
	auth.PUT("/me", s.auth(), s.updateMe)
	auth.POST("/logout", s.auth(), s.logout)

	tasks := engine.Group("/tasks")
	tasks.Use(s.auth())
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.PUT("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)

	return engine
}

// GoOffline closes the listener; later requests fail without a response.
func (s *Server) GoOffline() {
	s.mu.Lock()
	if s.offline {
		s.mu.Unlock()
		return
	}
	s.offline = true
	s.mu.Unlock()
	s.httpServer.Close()
}

// FailWith makes every request answer status; 0 restores normal service.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// Requests is the number of requests received so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// AddUser registers an account directly and returns it with its id.
func (s *Server) AddUser(user model.User, password string) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.accounts[user.ID] = &account{user: user, passwordHash: string(hash)}
	return user
}

// Tasks returns a copy of the tasks the server holds for username.
func (s *Server) Tasks(username string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.findByUsername(username)
	if acc == nil {
		return nil
	}
	return append([]model.Task(nil), s.tasks[acc.user.ID]...)
}

// User returns the stored account for username.
func (s *Server) User(username string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.findByUsername(username)
	if acc == nil {
		return model.User{}, false
	}
	return acc.user, true
}

// IssueToken signs an access token for username, for tests that seed a
// session without logging in.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	acc := s.findByUsername(username)
	s.mu.Unlock()
	if acc == nil {
		panic(fmt.Sprintf("apitest: unknown user %q", username))
	}
	token, apiErr := s.issueToken(acc.user.ID)
	if apiErr != nil {
		panic(apiErr)
	}
	return token
}

func (s *Server) findByUsername(username string) *account {
	lower := strings.ToLower(strings.TrimSpace(username))
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.ToLower(s.accounts[id].user.Username) == lower {
			return s.accounts[id]
		}
	}
	return nil
}

func (s *Server) issueToken(userID string) (string, *apperrors.APIError) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token")
	}
	return signed, nil
}

func (s *Server) parseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[claims.Subject]; !ok {
		return "", apperrors.Unauthorized("unknown user")
	}
	return claims.Subject, nil
}

func (s *Server) newTaskID() string {
	s.nextTaskID++
	return fmt.Sprintf("srv-%d", s.nextTaskID)
}
