package service

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartlife/client/internal/apitest"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
	"smartlife/client/internal/session"
	"smartlife/client/internal/storage"
)

type harness struct {
	api      *apitest.Server
	storage  *storage.Notifier
	sessions *session.Store
	client   *httpclient.Client
	auth     *AuthService
	profiles *ProfileService
	tasks    *TaskService
	pomodoro *PomodoroService
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	api := apitest.New(t)
	backing := storage.NewNotifier(storage.NewMemory())
	sessions := session.NewStore(backing, logger)
	client := httpclient.New(api.URL, nil, sessions, logger)
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}

	profiles := NewProfileService(client, sessions, repository.NewProfileRepository(backing, logger), logger)
	auth := NewAuthService(client, sessions, repository.NewUserRepository(backing, logger), profiles, logger)
	auth.hashCost = bcrypt.MinCost

	tasks := NewTaskService(
		repository.NewRemoteTaskRepository(client),
		repository.NewLocalTaskRepository(backing, sessions, logger),
		sessions,
		logger,
	)
	pomodoro := NewPomodoroService(repository.NewPomodoroRepository(backing, sessions, logger), model.DefaultModes(), logger)
	pomodoro.now = clock.Now

	return &harness{
		api:      api,
		storage:  backing,
		sessions: sessions,
		client:   client,
		auth:     auth,
		profiles: profiles,
		tasks:    tasks,
		pomodoro: pomodoro,
		clock:    clock,
	}
}

// signIn creates ana on the server and logs her in.
func (h *harness) signIn(t *testing.T) *model.Session {
	t.Helper()
	h.api.AddUser(model.User{Username: "ana", FirstName: "Ana", Email: "ana@example.com"}, "x")
	created, err := h.auth.Login(context.Background(), Credentials{Username: "ana", Password: "x"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return created
}

func (h *harness) storedTasks(t *testing.T, username string) []model.Task {
	t.Helper()
	var tasks []model.Task
	if _, err := storage.GetJSON(context.Background(), h.storage, storage.ScopedKey(storage.KeyTasksLegacy, username), &tasks); err != nil {
		t.Fatalf("read stored tasks: %v", err)
	}
	return tasks
}

// freshTasks is a TaskService with an empty cache over the same storage
// and API, like the one each new process starts with.
func (h *harness) freshTasks(remote repository.TaskRepository) *TaskService {
	logger := log.New(io.Discard, "", 0)
	if remote == nil {
		remote = repository.NewRemoteTaskRepository(h.client)
	}
	return NewTaskService(remote, repository.NewLocalTaskRepository(h.storage, h.sessions, logger), h.sessions, logger)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
