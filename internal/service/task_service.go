package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
)

// TaskService serves the task collection from the API while it answers and
// from local storage once it has not. The switch is one-way for the life of
// the service. Every online mutation is mirrored to local storage.
//
// Calls are serialized; concurrent mutations run one after another.
type TaskService struct {
	remote repository.TaskRepository
	local  *repository.LocalTaskRepository
	users  repository.UsernameSource
	logger *log.Logger
	now    func() time.Time

	mu         sync.Mutex
	cache      []model.Task
	cacheOwner string
	offline    bool
}

func NewTaskService(
	remote repository.TaskRepository,
	local *repository.LocalTaskRepository,
	users repository.UsernameSource,
	logger *log.Logger,
) *TaskService {
	if logger == nil {
		logger = log.Default()
	}
	return &TaskService{
		remote: remote,
		local:  local,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Offline reports whether the service has stopped calling the API.
func (s *TaskService) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// GetTasks returns the cached collection, loading it on first use or when
// forceRefresh is set.
func (s *TaskService) GetTasks(ctx context.Context, forceRefresh bool) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	return cloneTasks(tasks), nil
}

func (s *TaskService) FindTask(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCache(ctx, false); err != nil {
		return nil, err
	}
	return s.find(id), nil
}

func (s *TaskService) AddTask(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	if input.Priority != "" && !model.IsValidPriority(input.Priority) {
		return nil, apperrors.Validation("priority", "unknown priority "+input.Priority)
	}
	if input.Status != "" && !model.IsValidStatus(input.Status) {
		return nil, apperrors.Validation("status", "unknown status "+input.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The cache must hold the collection as it was before the write, or a
	// first load would already contain the change.
	if err := s.ensureCache(ctx, false); err != nil {
		return nil, err
	}

	if !s.offline {
		created, err := s.remote.Create(ctx, input)
		switch {
		case err == nil:
			if created == nil {
				now := s.now()
				built := model.BuildTask(input, now, func() string { return repository.NewLocalTaskID(now) })
				created = &built
			}
			s.cache = append(s.cache, *created)
			if err := s.mirror(ctx); err != nil {
				return nil, err
			}
			task := *created
			return &task, nil
		case errors.Is(err, repository.ErrMalformedTask):
			return nil, s.resync(ctx, err)
		case !apperrors.IsFallbackEligible(err):
			return nil, err
		}
		s.markOffline(err)
	}

	if err := s.ensureCache(ctx, true); err != nil {
		return nil, err
	}
	created, err := s.local.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.reloadLocal(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTask applies changes to the task with id. It returns nil when no
// such task is held locally.
func (s *TaskService) UpdateTask(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error) {
	if changes.Priority != nil && !model.IsValidPriority(*changes.Priority) {
		return nil, apperrors.Validation("priority", "unknown priority "+*changes.Priority)
	}
	if changes.Status != nil && !model.IsValidStatus(*changes.Status) {
		return nil, apperrors.Validation("status", "unknown status "+*changes.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, changes)
}

// DeleteTask reports whether the cached collection changed.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCache(ctx, false); err != nil {
		return false, err
	}

	if !s.offline {
		err := s.remote.Delete(ctx, id)
		if err == nil {
			kept := s.cache[:0:0]
			for _, task := range s.cache {
				if task.ID != id {
					kept = append(kept, task)
				}
			}
			changed := len(kept) != len(s.cache)
			s.cache = kept
			if changed {
				if err := s.mirror(ctx); err != nil {
					return false, err
				}
			}
			return changed, nil
		}
		if !apperrors.IsFallbackEligible(err) {
			return false, err
		}
		s.markOffline(err)
	}

	if err := s.ensureCache(ctx, true); err != nil {
		return false, err
	}
	if err := s.local.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, s.reloadLocal(ctx)
}

// ToggleTask flips between Completed and Not Started. In Progress is only
// ever left, never entered.
func (s *TaskService) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCache(ctx, false); err != nil {
		return nil, err
	}
	current := s.find(id)
	if current == nil {
		return nil, nil
	}

	changes := model.TaskChanges{}
	if current.Status == model.StatusCompleted {
		status := model.StatusNotStarted
		changes.Status = &status
	} else {
		status := model.StatusCompleted
		completedAt := model.FormatTimestamp(s.now())
		changes.Status = &status
		changes.CompletedAt = &completedAt
	}
	return s.update(ctx, id, changes)
}

// MoveTask sets the board column of a task.
func (s *TaskService) MoveTask(ctx context.Context, id, status string) (*model.Task, error) {
	if !model.IsValidStatus(status) {
		return nil, apperrors.Validation("status", "unknown status "+status)
	}
	return s.UpdateTask(ctx, id, model.TaskChanges{Status: &status})
}

func (s *TaskService) update(ctx context.Context, id string, changes model.TaskChanges) (*model.Task, error) {
	if id == "" {
		return nil, nil
	}

	if err := s.ensureCache(ctx, false); err != nil {
		return nil, err
	}

	if !s.offline {
		updated, err := s.remote.Update(ctx, id, changes)
		if err == nil {
			if updated == nil {
				current := s.find(id)
				if current == nil {
					return nil, nil
				}
				now := s.now()
				merged, _ := model.NormalizeTask(current.Apply(changes), now, func() string { return repository.NewLocalTaskID(now) })
				updated = &merged
			}
			for i := range s.cache {
				if s.cache[i].ID == updated.ID {
					s.cache[i] = *updated
				}
			}
			if err := s.mirror(ctx); err != nil {
				return nil, err
			}
			task := *updated
			return &task, nil
		}
		if errors.Is(err, repository.ErrMalformedTask) {
			return nil, s.resync(ctx, err)
		}
		if !apperrors.IsFallbackEligible(err) {
			return nil, err
		}
		s.markOffline(err)
	}

	if err := s.ensureCache(ctx, true); err != nil {
		return nil, err
	}
	updated, err := s.local.Update(ctx, id, changes)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return updated, s.reloadLocal(ctx)
}

func (s *TaskService) load(ctx context.Context, forceRefresh bool) ([]model.Task, error) {
	s.dropCacheOfOtherUser(ctx)
	if !forceRefresh && s.cache != nil {
		return s.cache, nil
	}

	if !s.offline {
		tasks, err := s.remote.List(ctx)
		if err == nil {
			s.cache = tasks
			if err := s.mirror(ctx); err != nil {
				return nil, err
			}
			return s.cache, nil
		}
		if !apperrors.IsFallbackEligible(err) {
			if !apperrors.IsCanceled(err) {
				// Later calls work from the local copy instead of asking again.
				if err := s.reloadLocal(ctx); err != nil {
					return nil, err
				}
			}
			return nil, err
		}
		s.markOffline(err)
	}

	if err := s.reloadLocal(ctx); err != nil {
		return nil, err
	}
	return s.cache, nil
}

// resync re-reads the collection after a write the server accepted but
// answered with something that is not a task, then reports cause.
func (s *TaskService) resync(ctx context.Context, cause error) error {
	if _, err := s.load(ctx, true); err != nil {
		s.logger.Printf("tasks: reload after unreadable response: %v", err)
	}
	return cause
}

func (s *TaskService) ensureCache(ctx context.Context, forceLocal bool) error {
	s.dropCacheOfOtherUser(ctx)
	if s.cache != nil {
		return nil
	}
	if forceLocal || s.offline {
		return s.reloadLocal(ctx)
	}
	_, err := s.load(ctx, false)
	return err
}

func (s *TaskService) reloadLocal(ctx context.Context) error {
	tasks, err := s.local.List(ctx)
	if err != nil {
		return err
	}
	s.cache = tasks
	return nil
}

func (s *TaskService) mirror(ctx context.Context) error {
	return s.local.ReplaceAll(ctx, s.cache)
}

func (s *TaskService) markOffline(err error) {
	if !s.offline {
		s.logger.Printf("tasks api unavailable, falling back to local storage: %v", err)
	}
	s.offline = true
}

// dropCacheOfOtherUser forgets the cache when the signed-in user changed.
func (s *TaskService) dropCacheOfOtherUser(ctx context.Context) {
	owner := s.users.ActiveUsername(ctx)
	if owner != s.cacheOwner {
		s.cache = nil
		s.cacheOwner = owner
	}
}

func (s *TaskService) find(id string) *model.Task {
	for _, task := range s.cache {
		if task.ID == id {
			found := task
			return &found
		}
	}
	return nil
}

func cloneTasks(tasks []model.Task) []model.Task {
	return append([]model.Task{}, tasks...)
}
