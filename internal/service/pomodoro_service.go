package service

import (
	"context"
	"log"
	"sync"
	"time"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/event"
	"smartlife/client/internal/model"
	"smartlife/client/internal/repository"
)

// PomodoroService drives the timer state machine. No ticker owns the time:
// every read derives what is true now from the persisted end time.
type PomodoroService struct {
	repo   *repository.PomodoroRepository
	modes  model.Modes
	bus    *event.Bus[model.PomodoroState]
	logger *log.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewPomodoroService(repo *repository.PomodoroRepository, modes model.Modes, logger *log.Logger) *PomodoroService {
	if modes == nil {
		modes = model.DefaultModes()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PomodoroService{
		repo:   repo,
		modes:  modes,
		bus:    event.NewBus[model.PomodoroState](),
		logger: logger,
		now:    time.Now,
	}
}

func (s *PomodoroService) Modes() model.Modes {
	return s.modes
}

// State returns the observed state. An elapsed running timer reads as ended
// but stays persisted as running until a transition is made.
func (s *PomodoroService) State(ctx context.Context) (model.PomodoroState, error) {
	now := s.now()
	persisted, err := s.repo.GetState(ctx, s.modes, now)
	if err != nil {
		return model.DefaultPomodoroState(s.modes, now), err
	}
	return model.DeriveObservedState(persisted, s.modes, now), nil
}

// Subscribe delivers the snapshot written by every transition.
func (s *PomodoroService) Subscribe() (<-chan model.PomodoroState, func()) {
	return s.bus.Subscribe()
}

func (s *PomodoroService) SetMode(ctx context.Context, mode string) (model.PomodoroState, error) {
	if !model.IsValidMode(mode) {
		return model.PomodoroState{}, apperrors.Validation("mode", "unknown mode "+mode)
	}
	return s.update(ctx, func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool) {
		cfg := s.modes.Config(mode)
		next := prev
		next.Mode = mode
		next.Duration = cfg.Duration
		next.Remaining = cfg.Duration
		next.Status = model.StatusIdle
		next.EndTime = nil
		return next, true
	})
}

// Start runs the countdown from the remaining time, or the full duration when
// none is left. From ended it advances the cycle and starts the next mode.
func (s *PomodoroService) Start(ctx context.Context) (model.PomodoroState, error) {
	return s.update(ctx, func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool) {
		switch prev.Status {
		case model.StatusRunning:
			return prev, false
		case model.StatusEnded:
			return s.advance(prev, true, now), true
		}
		cfg := s.modes.Config(prev.Mode)
		remaining := prev.Remaining
		if remaining <= 0 {
			remaining = cfg.Duration
		}
		next := prev
		next.Duration = cfg.Duration
		next.Remaining = remaining
		next.Status = model.StatusRunning
		next.EndTime = endTime(now, remaining)
		return next, true
	})
}

func (s *PomodoroService) Pause(ctx context.Context) (model.PomodoroState, error) {
	return s.update(ctx, func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool) {
		if prev.Status != model.StatusRunning || prev.EndTime == nil {
			return prev, false
		}
		next := prev
		next.Status = model.StatusPaused
		next.Remaining = model.RemainingUntil(*prev.EndTime, now)
		next.EndTime = nil
		return next, true
	})
}

func (s *PomodoroService) Reset(ctx context.Context) (model.PomodoroState, error) {
	return s.update(ctx, func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool) {
		cfg := s.modes.Config(prev.Mode)
		next := prev
		next.Status = model.StatusIdle
		next.Duration = cfg.Duration
		next.Remaining = cfg.Duration
		next.EndTime = nil
		return next, true
	})
}

// MarkEnded persists the expiry of a running timer.
func (s *PomodoroService) MarkEnded(ctx context.Context) (model.PomodoroState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	persisted, err := s.repo.GetState(ctx, s.modes, now)
	if err != nil {
		return model.PomodoroState{}, err
	}
	if persisted.Status != model.StatusRunning {
		return model.DeriveObservedState(persisted, s.modes, now), nil
	}
	next := model.DeriveObservedState(persisted, s.modes, now)
	next.Status = model.StatusEnded
	next.Remaining = 0
	next.EndTime = nil
	return s.save(ctx, next, now)
}

// Advance moves an ended timer to the next mode: every LongBreakEvery-th
// completed focus earns a long break, other focus sessions a short one, and
// any break returns to focus. autoStart starts the next mode right away.
func (s *PomodoroService) Advance(ctx context.Context, autoStart bool) (model.PomodoroState, error) {
	return s.update(ctx, func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool) {
		if prev.Status != model.StatusEnded {
			return prev, false
		}
		return s.advance(prev, autoStart, now), true
	})
}

// Clear drops the stored timer of the active user and the legacy record.
func (s *PomodoroService) Clear(ctx context.Context) (model.PomodoroState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteState(ctx); err != nil {
		return model.PomodoroState{}, err
	}
	state := model.DefaultPomodoroState(s.modes, s.now())
	s.bus.Publish(state)
	return state, nil
}

// Watch sends the observed state immediately, after every transition made
// through this service, and every interval so writes from other processes
// and the countdown itself show up. The channel closes when ctx is done.
func (s *PomodoroService) Watch(ctx context.Context, interval time.Duration) <-chan model.PomodoroState {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan model.PomodoroState, 1)
	updates, cancel := s.Subscribe()

	go func() {
		defer close(out)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		send := func(state model.PomodoroState) bool {
			select {
			case out <- state:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if state, err := s.State(ctx); err == nil {
			if !send(state) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-updates:
				if !ok {
					return
				}
				if !send(model.DeriveObservedState(state, s.modes, s.now())) {
					return
				}
			case <-ticker.C:
				state, err := s.State(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Printf("pomodoro: poll state: %v", err)
					continue
				}
				if !send(state) {
					return
				}
			}
		}
	}()

	return out
}

func (s *PomodoroService) update(
	ctx context.Context,
	transition func(prev model.PomodoroState, now time.Time) (model.PomodoroState, bool),
) (model.PomodoroState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	persisted, err := s.repo.GetState(ctx, s.modes, now)
	if err != nil {
		return model.PomodoroState{}, err
	}
	prev := model.DeriveObservedState(persisted, s.modes, now)
	next, changed := transition(prev, now)
	if !changed {
		return prev, nil
	}
	return s.save(ctx, next, now)
}

func (s *PomodoroService) save(ctx context.Context, next model.PomodoroState, now time.Time) (model.PomodoroState, error) {
	saved, err := s.repo.SaveState(ctx, next, now)
	if err != nil {
		return model.PomodoroState{}, err
	}
	s.bus.Publish(saved.Clone())
	return saved, nil
}

func (s *PomodoroService) advance(prev model.PomodoroState, autoStart bool, now time.Time) model.PomodoroState {
	pomodoros := prev.Pomodoros
	nextMode := model.ModeFocus
	if prev.Mode == model.ModeFocus {
		pomodoros++
		nextMode = model.ModeShortBreak
		if pomodoros%model.LongBreakEvery == 0 {
			nextMode = model.ModeLongBreak
		}
	}

	cfg := s.modes.Config(nextMode)
	next := prev
	next.Mode = nextMode
	next.Pomodoros = pomodoros
	next.Duration = cfg.Duration
	next.Remaining = cfg.Duration
	next.Status = model.StatusIdle
	next.EndTime = nil
	if autoStart {
		next.Status = model.StatusRunning
		next.EndTime = endTime(now, cfg.Duration)
	}
	return next
}

func endTime(now time.Time, remaining int) *int64 {
	end := now.UnixMilli() + int64(remaining)*1000
	return &end
}
