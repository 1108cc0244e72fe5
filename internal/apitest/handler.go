package apitest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
}

type profileRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Avatar    *string `json:"avatar"`
}

type loginResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         model.User `json:"user"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(c, apperrors.BadRequest("validation_error", "username and password are required"))
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		writeError(c, apperrors.BadRequest("validation_error", "passwords do not match"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(c, apperrors.Internal("failed to hash password"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByUsername(username) != nil {
		writeError(c, apperrors.Conflict("username_taken", "Username is already taken.", nil))
		return
	}

	user := model.User{
		ID:        uuid.NewString(),
		Username:  username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	s.accounts[user.ID] = &account{user: user, passwordHash: string(hash)}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	s.mu.Lock()
	acc := s.findByUsername(req.Username)
	s.mu.Unlock()
	if acc == nil || acc.user.Username != req.Username {
		writeError(c, apperrors.Unauthorized("Invalid username or password."))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(req.Password)); err != nil {
		writeError(c, apperrors.Unauthorized("Invalid username or password."))
		return
	}

	token, apiErr := s.issueToken(acc.user.ID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		User:         acc.user,
	})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[currentUserID(c)]
	if !ok {
		writeError(c, apperrors.Unauthorized("unknown user"))
		return
	}
	c.JSON(http.StatusOK, acc.user)
}

func (s *Server) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[currentUserID(c)]
	if !ok {
		writeError(c, apperrors.Unauthorized("unknown user"))
		return
	}

	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if trimmed == "" {
			writeError(c, apperrors.BadRequest("validation_error", "username must not be empty"))
			return
		}
		if other := s.findByUsername(trimmed); other != nil && other != acc {
			writeError(c, apperrors.Conflict("username_taken", "Username is already taken.", nil))
			return
		}
		req.Username = &trimmed
	}

	acc.user = acc.user.Apply(model.UserUpdate{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Avatar:    req.Avatar,
	})
	c.JSON(http.StatusOK, acc.user)
}

func (s *Server) logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (s *Server) listTasks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[currentUserID(c)]
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c *gin.Context) {
	var input model.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidJSON(c)
		return
	}
	if input.Priority != "" && !model.IsValidPriority(input.Priority) {
		writeError(c, apperrors.BadRequest("validation_error", "invalid priority"))
		return
	}
	if input.Status != "" && !model.IsValidStatus(input.Status) {
		writeError(c, apperrors.BadRequest("validation_error", "invalid status"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUserID(c)
	task := model.BuildTask(input, time.Now(), s.newTaskID)
	s.tasks[userID] = append(s.tasks[userID], task)
	c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var changes model.TaskChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		invalidJSON(c)
		return
	}
	if changes.Status != nil && !model.IsValidStatus(*changes.Status) {
		writeError(c, apperrors.BadRequest("validation_error", "invalid status"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUserID(c)
	id := c.Param("id")
	for i, task := range s.tasks[userID] {
		if task.ID != id {
			continue
		}
		next, _ := model.NormalizeTask(task.Apply(changes), time.Now(), s.newTaskID)
		s.tasks[userID][i] = next
		c.JSON(http.StatusOK, next)
		return
	}
	writeError(c, apperrors.NotFound("task_not_found", "task not found"))
}

func (s *Server) deleteTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUserID(c)
	id := c.Param("id")
	tasks := s.tasks[userID]
	for i, task := range tasks {
		if task.ID == id {
			s.tasks[userID] = append(tasks[:i:i], tasks[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	writeError(c, apperrors.NotFound("task_not_found", "task not found"))
}
