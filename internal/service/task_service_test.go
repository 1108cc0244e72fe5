package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
)

func TestUpdateAfterNetworkLossIsServedLocally(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	created, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Buy milk", Priority: model.PriorityLow})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if h.tasks.Offline() {
		t.Fatal("expected online after add")
	}

	h.api.GoOffline()

	completed := model.StatusCompleted
	updated, err := h.tasks.UpdateTask(ctx, created.ID, model.TaskChanges{Status: &completed})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated == nil || updated.Status != model.StatusCompleted || updated.CompletedAt == "" {
		t.Fatalf("unexpected updated task %+v", updated)
	}
	if !h.tasks.Offline() {
		t.Fatal("expected offline after transport failure")
	}

	found, err := h.tasks.FindTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if found == nil || found.Status != model.StatusCompleted || found.CompletedAt == "" {
		t.Fatalf("unexpected task %+v", found)
	}
	stored := h.storedTasks(t, "ana")
	if len(stored) != 1 || stored[0].Status != model.StatusCompleted {
		t.Fatalf("expected completed task in local storage, got %+v", stored)
	}
}

func TestOfflineModeIsSticky(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	h.api.FailWith(http.StatusServiceUnavailable)
	tasks, err := h.tasks.GetTasks(ctx, false)
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 0 || !h.tasks.Offline() {
		t.Fatalf("expected empty local list in offline mode, got %+v", tasks)
	}

	h.api.FailWith(0)
	before := h.api.Requests()

	created, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Local only"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := h.tasks.ToggleTask(ctx, created.ID); err != nil {
		t.Fatalf("toggle task: %v", err)
	}
	if _, err := h.tasks.GetTasks(ctx, true); err != nil {
		t.Fatalf("refresh tasks: %v", err)
	}
	if _, err := h.tasks.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	if h.api.Requests() != before {
		t.Fatalf("expected no requests after going offline, got %d more", h.api.Requests()-before)
	}
	if len(h.api.Tasks("ana")) != 0 {
		t.Fatal("expected nothing created on the server")
	}
}

func TestOnlineMirrorMatchesServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	assertMirror := func(step string) {
		t.Helper()
		server := h.api.Tasks("ana")
		local := h.storedTasks(t, "ana")
		if len(server) == 0 && len(local) == 0 {
			return
		}
		if !reflect.DeepEqual(server, local) {
			t.Fatalf("%s: local mirror %+v differs from server %+v", step, local, server)
		}
	}

	first, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "First", Priority: model.PriorityExtreme})
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	assertMirror("add first")

	if _, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Second", Deadline: "2025-01-01"}); err != nil {
		t.Fatalf("add second: %v", err)
	}
	assertMirror("add second")

	if _, err := h.tasks.MoveTask(ctx, first.ID, model.StatusInProgress); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertMirror("move")

	if _, err := h.tasks.ToggleTask(ctx, first.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	assertMirror("toggle")

	changed, err := h.tasks.DeleteTask(ctx, first.ID)
	if err != nil || !changed {
		t.Fatalf("delete: changed=%v err=%v", changed, err)
	}
	assertMirror("delete")
}

func TestFreshServiceKeepsMirrorExact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	if _, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Existing"}); err != nil {
		t.Fatalf("add existing: %v", err)
	}

	added, err := h.freshTasks(nil).AddTask(ctx, model.TaskInput{Title: "Water plants"})
	if err != nil {
		t.Fatalf("add on fresh service: %v", err)
	}
	server, local := h.api.Tasks("ana"), h.storedTasks(t, "ana")
	if len(server) != 2 || !reflect.DeepEqual(server, local) {
		t.Fatalf("local mirror %+v differs from server %+v", local, server)
	}

	title := "Water all plants"
	if _, err := h.freshTasks(nil).UpdateTask(ctx, added.ID, model.TaskChanges{Title: &title}); err != nil {
		t.Fatalf("update on fresh service: %v", err)
	}
	server, local = h.api.Tasks("ana"), h.storedTasks(t, "ana")
	if !reflect.DeepEqual(server, local) {
		t.Fatalf("after update: local mirror %+v differs from server %+v", local, server)
	}

	changed, err := h.freshTasks(nil).DeleteTask(ctx, added.ID)
	if err != nil || !changed {
		t.Fatalf("delete on fresh service: changed=%v err=%v", changed, err)
	}
	server, local = h.api.Tasks("ana"), h.storedTasks(t, "ana")
	if len(server) != 1 || !reflect.DeepEqual(server, local) {
		t.Fatalf("after delete: local mirror %+v differs from server %+v", local, server)
	}
}

func TestListClientErrorFallsBackToStoredCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	created, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Stored"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	tasks := h.freshTasks(nil)
	h.api.FailWith(http.StatusForbidden)
	if _, err := tasks.GetTasks(ctx, false); !apperrors.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403, got %v", err)
	}
	if tasks.Offline() {
		t.Fatal("a 4xx must not switch to offline mode")
	}

	before := h.api.Requests()
	found, err := tasks.FindTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if found == nil || found.Title != "Stored" {
		t.Fatalf("expected the stored task, got %+v", found)
	}
	if h.api.Requests() != before {
		t.Fatal("expected the stored copy to be used without asking the server again")
	}
}

// unreadableCreates forwards to the API but reports every create response
// as unreadable.
type unreadableCreates struct {
	repository.TaskRepository
}

func (u unreadableCreates) Create(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	if _, err := u.TaskRepository.Create(ctx, input); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: bad body", repository.ErrMalformedTask)
}

func TestUnreadableCreateResponseReloadsFromServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	tasks := h.freshTasks(unreadableCreates{repository.NewRemoteTaskRepository(h.client)})
	_, err := tasks.AddTask(ctx, model.TaskInput{Title: "Pay rent"})
	if !errors.Is(err, repository.ErrMalformedTask) {
		t.Fatalf("expected ErrMalformedTask, got %v", err)
	}
	if tasks.Offline() {
		t.Fatal("an accepted write must not switch to offline mode")
	}

	server, local := h.api.Tasks("ana"), h.storedTasks(t, "ana")
	if len(server) != 1 || !reflect.DeepEqual(server, local) {
		t.Fatalf("local mirror %+v differs from server %+v", local, server)
	}
	listed, err := tasks.GetTasks(ctx, false)
	if err != nil || len(listed) != 1 || listed[0].ID != server[0].ID {
		t.Fatalf("expected the server's task in the cache, got %+v err %v", listed, err)
	}
}

func TestClientErrorsAreNotAbsorbed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	title := "x"
	_, err := h.tasks.UpdateTask(ctx, "missing", model.TaskChanges{Title: &title})
	if !apperrors.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
	if h.tasks.Offline() {
		t.Fatal("a 4xx must not switch to offline mode")
	}
}

func TestToggleTwiceRestoresStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	created, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Read"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	once, err := h.tasks.ToggleTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if once.Status != model.StatusCompleted || once.CompletedAt == "" {
		t.Fatalf("unexpected first toggle %+v", once)
	}

	twice, err := h.tasks.ToggleTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if twice.Status != created.Status || twice.CompletedAt != "" {
		t.Fatalf("expected original status without completedAt, got %+v", twice)
	}
}

func TestToggleLeavesInProgressForCompleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)

	created, err := h.tasks.AddTask(ctx, model.TaskInput{Title: "Write", Status: model.StatusInProgress})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	toggled, err := h.tasks.ToggleTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.Status != model.StatusCompleted {
		t.Fatalf("expected Completed, got %s", toggled.Status)
	}
}

func TestAddTaskValidatesEnums(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.api.Requests()

	_, err := h.tasks.AddTask(context.Background(), model.TaskInput{Title: "x", Priority: "Urgent"})
	var validationErr *apperrors.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "priority" {
		t.Fatalf("expected priority validation error, got %v", err)
	}
	if h.api.Requests() != before {
		t.Fatal("expected validation before any request")
	}
	if apperrors.IsFallbackEligible(err) {
		t.Fatal("validation errors must not be fallback eligible")
	}
}

func TestMissingTaskIsNil(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signIn(t)
	h.api.GoOffline()

	title := "x"
	updated, err := h.tasks.UpdateTask(ctx, "missing", model.TaskChanges{Title: &title})
	if err != nil || updated != nil {
		t.Fatalf("expected nil task, got %+v err %v", updated, err)
	}
	changed, err := h.tasks.DeleteTask(ctx, "missing")
	if err != nil || changed {
		t.Fatalf("expected unchanged, got %v err %v", changed, err)
	}
}
