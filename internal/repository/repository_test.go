package repository_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
	"smartlife/client/internal/storage"
)

type fixedUser string

func (f fixedUser) ActiveUsername(context.Context) string { return string(f) }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestLocalTasksAdoptLegacyKeyAndUpgrade(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemory()
	_ = backing.Set(ctx, storage.KeyTasksLegacy, `[{"id":"a","title":"Old","priority":"Low","status":"Not Started","created":"2024-01-02T03:04:05Z"}]`)

	repo := repository.NewLocalTaskRepository(backing, fixedUser("ana"), quietLogger())
	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Deadline != "2024-01-02T03:04:05.000Z" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if _, ok, _ := backing.Get(ctx, storage.KeyTasksLegacy); ok {
		t.Fatal("expected legacy key removed")
	}
	raw, ok, _ := backing.Get(ctx, "tasks_ana")
	if !ok || strings.Contains(raw, "created") {
		t.Fatalf("expected upgraded scoped record, got %q", raw)
	}
}

func TestLocalTasksNormalizedListIsNotRewritten(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewNotifier(storage.NewMemory())
	repo := repository.NewLocalTaskRepository(backing, fixedUser("ana"), quietLogger())

	if _, err := repo.Create(ctx, model.TaskInput{Title: "Buy milk", Priority: model.PriorityLow}); err != nil {
		t.Fatalf("create: %v", err)
	}

	changes, cancel := backing.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := repo.List(ctx); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	select {
	case change := <-changes:
		t.Fatalf("unexpected write to %s", change.Key)
	default:
	}
}

func TestLocalTaskMutations(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocalTaskRepository(storage.NewMemory(), fixedUser("ana"), quietLogger())

	created, err := repo.Create(ctx, model.TaskInput{Title: "  Buy milk  ", Priority: model.PriorityLow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Buy milk" || created.Status != model.StatusNotStarted {
		t.Fatalf("unexpected created task %+v", created)
	}

	completed := model.StatusCompleted
	updated, err := repo.Update(ctx, created.ID, model.TaskChanges{Status: &completed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedAt == "" {
		t.Fatal("expected completedAt on completed task")
	}

	if _, err := repo.Update(ctx, "missing", model.TaskChanges{}); !repository.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !repository.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestNewLocalTaskID(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	id := repository.NewLocalTaskID(now)
	if !strings.HasPrefix(id, "loyw3v28") || len(id) != len("loyw3v28")+6 {
		t.Fatalf("unexpected id %q", id)
	}
	if other := repository.NewLocalTaskID(now); other == id {
		t.Fatalf("expected random suffix, got %q twice", id)
	}
}

func TestRemoteTaskListAcceptsAliases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("wrapped") != "" {
			_, _ = w.Write([]byte(`{"tasks":[{"id":"w1","title":"Wrapped"}]}`))
			return
		}
		_, _ = w.Write([]byte(`[{"_id":42,"name":"Call mom","description":"today","dueDate":"2024-05-01T10:00:00Z","status":"Completed","imageUrl":"x.png"}]`))
	}))
	defer server.Close()

	client := httpclient.New(server.URL, server.Client(), nil, quietLogger())
	repo := repository.NewRemoteTaskRepository(client)

	tasks, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.ID != "42" || task.Title != "Call mom" || task.Desc != "today" || task.CoverImage != "x.png" {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.Priority != model.PriorityModerate || task.CompletedAt == "" {
		t.Fatalf("expected defaults and completedAt, got %+v", task)
	}
}

func TestRemoteCreateRejectsUnreadableTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`["not","a","task"]`))
	}))
	defer server.Close()

	client := httpclient.New(server.URL, server.Client(), nil, quietLogger())
	repo := repository.NewRemoteTaskRepository(client)

	created, err := repo.Create(context.Background(), model.TaskInput{Title: "Pay rent"})
	if created != nil {
		t.Fatalf("expected no task, got %+v", created)
	}
	if !errors.Is(err, repository.ErrMalformedTask) {
		t.Fatalf("expected ErrMalformedTask, got %v", err)
	}
	if !apperrors.IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected a 502 APIError in the chain, got %v", err)
	}
}

func TestPomodoroStateAdoptsLegacyKey(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemory()
	_ = backing.Set(ctx, storage.KeyPomodoroLegacy, `{"status":"paused","mode":"short","remaining":120,"pomodoros":3}`)

	repo := repository.NewPomodoroRepository(backing, fixedUser("ana"), quietLogger())
	now := time.UnixMilli(1_700_000_000_000)
	state, err := repo.GetState(ctx, model.DefaultModes(), now)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != model.StatusPaused || state.Mode != model.ModeShortBreak || state.Remaining != 120 || state.Pomodoros != 3 {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Duration != model.DefaultFocusDurationSeconds {
		t.Fatalf("expected default duration carried from defaults, got %d", state.Duration)
	}
	if _, ok, _ := backing.Get(ctx, "sl_pomodoro_ana"); !ok {
		t.Fatal("expected scoped key written")
	}

	_ = backing.Set(ctx, storage.KeyPomodoroLegacy, `{}`)
	saved, err := repo.SaveState(ctx, state, now.Add(time.Second))
	if err != nil {
		t.Fatalf("save state: %v", err)
	}
	if saved.LastUpdated != now.Add(time.Second).UnixMilli() {
		t.Fatalf("unexpected lastUpdated %d", saved.LastUpdated)
	}
	if _, ok, _ := backing.Get(ctx, storage.KeyPomodoroLegacy); ok {
		t.Fatal("expected legacy key removed on save")
	}
}

func TestPomodoroCorruptStateReadsAsDefault(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemory()
	_ = backing.Set(ctx, "sl_pomodoro_ana", `{not json`)

	repo := repository.NewPomodoroRepository(backing, fixedUser("ana"), quietLogger())
	state, err := repo.GetState(ctx, model.DefaultModes(), time.Now())
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != model.StatusIdle || state.Mode != model.ModeFocus {
		t.Fatalf("expected default state, got %+v", state)
	}
}

func TestProfileRenameLeavesOneRecord(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemory()
	repo := repository.NewProfileRepository(backing, quietLogger())

	if err := repo.Put(ctx, model.Profile{Username: "ana", FirstName: "Ana"}, ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, model.Profile{Username: "anna", FirstName: "Ana"}, "ana"); err != nil {
		t.Fatalf("put renamed: %v", err)
	}

	if _, err := repo.Get(ctx, "ana"); !repository.IsNotFound(err) {
		t.Fatalf("expected old record removed, got %v", err)
	}
	profile, err := repo.Get(ctx, "anna")
	if err != nil || profile.FirstName != "Ana" {
		t.Fatalf("unexpected profile %+v err %v", profile, err)
	}
}

func TestUsernameTakenIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(storage.NewMemory(), quietLogger())
	if err := repo.Create(ctx, &model.LocalUser{User: model.User{ID: "1", Username: "Ana"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	taken, err := repo.UsernameTaken(ctx, " ana ")
	if err != nil || !taken {
		t.Fatalf("expected username taken, got %v err %v", taken, err)
	}
	if _, err := repo.GetByUsername(ctx, "ana"); !repository.IsNotFound(err) {
		t.Fatalf("expected exact match lookup, got %v", err)
	}
}

func TestZoomIsClamped(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNoteRepository(storage.NewMemory(), quietLogger())

	zoom, err := repo.Zoom(ctx)
	if err != nil || zoom != model.ZoomDefault {
		t.Fatalf("expected default zoom, got %v err %v", zoom, err)
	}
	if _, err := repo.SaveZoom(ctx, 3); err != nil {
		t.Fatalf("save zoom: %v", err)
	}
	zoom, _ = repo.Zoom(ctx)
	if zoom != model.ZoomMax {
		t.Fatalf("expected clamped zoom %v, got %v", model.ZoomMax, zoom)
	}
}
