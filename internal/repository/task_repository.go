package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/model"
	"smartlife/client/internal/storage"
)

// TaskRepository is one backend of the task collection.
type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	// Create and Update may return a nil task when the backend answered
	// without a body.
	Create(ctx context.Context, input model.TaskInput) (*model.Task, error)
	Update(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

// UsernameSource names the signed-in user that scopes local data.
type UsernameSource interface {
	ActiveUsername(ctx context.Context) string
}

// NewLocalTaskID is a base36 millisecond timestamp followed by six random
// characters. Unique enough for one user's device.
func NewLocalTaskID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strconv.FormatInt(now.UnixMilli(), 36) + suffix
}

type RemoteTaskRepository struct {
	client *httpclient.Client
	now    func() time.Time
}

func NewRemoteTaskRepository(client *httpclient.Client) *RemoteTaskRepository {
	return &RemoteTaskRepository{client: client, now: time.Now}
}

func (r *RemoteTaskRepository) List(ctx context.Context) ([]model.Task, error) {
	body, err := r.client.Fetch(ctx, "/tasks", httpclient.Options{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	items, err := decodeTaskList(body)
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, r.normalize(item))
	}
	return tasks, nil
}

func (r *RemoteTaskRepository) Create(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	return r.send(ctx, http.MethodPost, "/tasks", input)
}

func (r *RemoteTaskRepository) Update(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error) {
	return r.send(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), changes)
}

func (r *RemoteTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Fetch(ctx, "/tasks/"+url.PathEscape(id), httpclient.Options{Method: http.MethodDelete})
	return err
}

func (r *RemoteTaskRepository) send(ctx context.Context, method, path string, payload interface{}) (*model.Task, error) {
	body, err := r.client.Fetch(ctx, path, httpclient.Options{Method: method, Body: payload})
	if err != nil {
		return nil, err
	}
	if body.Kind != httpclient.BodyJSON {
		return nil, nil
	}
	var item model.APITask
	if err := body.Decode(&item); err != nil {
		apiErr := apperrors.FromResponse(http.StatusBadGateway, map[string]interface{}{
			"message": fmt.Sprintf("invalid task in response: %v", err),
		})
		return nil, fmt.Errorf("%w: %w", ErrMalformedTask, apiErr)
	}
	task := r.normalize(item)
	return &task, nil
}

func (r *RemoteTaskRepository) normalize(item model.APITask) model.Task {
	now := r.now()
	task, _ := model.NormalizeTask(item.Task(), now, func() string { return NewLocalTaskID(now) })
	return task
}

// decodeTaskList accepts a bare array or an object wrapping one under
// tasks, items or data. Anything else is an empty list.
func decodeTaskList(body *httpclient.Body) ([]model.APITask, error) {
	if body == nil || body.Kind != httpclient.BodyJSON {
		return nil, nil
	}
	var items []model.APITask
	if err := json.Unmarshal(body.Raw, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Tasks []model.APITask `json:"tasks"`
		Items []model.APITask `json:"items"`
		Data  []model.APITask `json:"data"`
	}
	if err := json.Unmarshal(body.Raw, &envelope); err != nil {
		return nil, nil
	}
	switch {
	case envelope.Tasks != nil:
		return envelope.Tasks, nil
	case envelope.Items != nil:
		return envelope.Items, nil
	default:
		return envelope.Data, nil
	}
}

// LocalTaskRepository keeps the task list under tasks_<username>, adopting
// the unscoped list older versions wrote.
type LocalTaskRepository struct {
	storage storage.Storage
	users   UsernameSource
	logger  *log.Logger
	now     func() time.Time
}

func NewLocalTaskRepository(s storage.Storage, users UsernameSource, logger *log.Logger) *LocalTaskRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &LocalTaskRepository{storage: s, users: users, logger: logger, now: time.Now}
}

func (r *LocalTaskRepository) key(ctx context.Context) string {
	return storage.ScopedKey(storage.KeyTasksLegacy, r.users.ActiveUsername(ctx))
}

// List reads and normalizes the stored list, writing it back only when
// normalization changed something.
func (r *LocalTaskRepository) List(ctx context.Context) ([]model.Task, error) {
	key := r.key(ctx)
	raw, ok, err := storage.MigrateLegacy(ctx, r.storage, storage.KeyTasksLegacy, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []model.Task{}, nil
	}

	var stored []model.StoredTask
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		r.logger.Printf("repository: parse tasks from storage: %v", err)
		return []model.Task{}, nil
	}

	now := r.now()
	newID := func() string { return NewLocalTaskID(now) }
	dirty := false
	tasks := make([]model.Task, 0, len(stored))
	for _, item := range stored {
		task, upgraded := item.Upgrade()
		normalized, changed := model.NormalizeTask(task, now, newID)
		if upgraded || changed {
			dirty = true
		}
		tasks = append(tasks, normalized)
	}

	if dirty {
		if err := storage.SetJSON(ctx, r.storage, key, tasks); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// ReplaceAll overwrites the stored list.
func (r *LocalTaskRepository) ReplaceAll(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	if err := storage.SetJSON(ctx, r.storage, r.key(ctx), tasks); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

func (r *LocalTaskRepository) Create(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	tasks, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now()
	task := model.BuildTask(input, now, func() string { return NewLocalTaskID(now) })
	if err := r.ReplaceAll(ctx, append(tasks, task)); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *LocalTaskRepository) Update(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error) {
	tasks, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now()
	for i, task := range tasks {
		if task.ID != id {
			continue
		}
		updated, _ := model.NormalizeTask(task.Apply(changes), now, func() string { return NewLocalTaskID(now) })
		tasks[i] = updated
		if err := r.ReplaceAll(ctx, tasks); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (r *LocalTaskRepository) Delete(ctx context.Context, id string) error {
	tasks, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i, task := range tasks {
		if task.ID == id {
			return r.ReplaceAll(ctx, append(tasks[:i:i], tasks[i+1:]...))
		}
	}
	return ErrNotFound
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
