package model

import (
	"fmt"
	"math"
	"time"
)

const (
	ModeFocus      = "focus"
	ModeShortBreak = "short"
	ModeLongBreak  = "long"

	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusPaused  = "paused"
	StatusEnded   = "ended"
)

const (
	DefaultFocusDurationSeconds      = 25 * 60
	DefaultShortBreakDurationSeconds = 5 * 60
	DefaultLongBreakDurationSeconds  = 15 * 60

	// LongBreakEvery is how many completed focus sessions earn a long break.
	LongBreakEvery = 4
)

type ModeConfig struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Duration int    `json:"duration"`
}

// Modes maps a mode id to its label and duration in seconds.
type Modes map[string]ModeConfig

func DefaultModes() Modes {
	return Modes{
		ModeFocus:      {ID: ModeFocus, Label: "Focus Time", Duration: DefaultFocusDurationSeconds},
		ModeShortBreak: {ID: ModeShortBreak, Label: "Short Break", Duration: DefaultShortBreakDurationSeconds},
		ModeLongBreak:  {ID: ModeLongBreak, Label: "Long Break", Duration: DefaultLongBreakDurationSeconds},
	}
}

// Config returns the settings for mode, falling back to focus.
func (m Modes) Config(mode string) ModeConfig {
	if cfg, ok := m[mode]; ok {
		return cfg
	}
	return m[ModeFocus]
}

func IsValidMode(mode string) bool {
	return mode == ModeFocus || mode == ModeShortBreak || mode == ModeLongBreak
}

// PomodoroState is the persisted timer. While running, EndTime is the only
// authority on time left; Remaining is a snapshot valid in other statuses.
type PomodoroState struct {
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	Duration    int    `json:"duration"`
	Remaining   int    `json:"remaining"`
	EndTime     *int64 `json:"endTime"`
	Pomodoros   int    `json:"pomodoros"`
	LastUpdated int64  `json:"lastUpdated"`
}

func DefaultPomodoroState(modes Modes, now time.Time) PomodoroState {
	focus := modes.Config(ModeFocus)
	return PomodoroState{
		Status:      StatusIdle,
		Mode:        ModeFocus,
		Duration:    focus.Duration,
		Remaining:   focus.Duration,
		Pomodoros:   0,
		LastUpdated: now.UnixMilli(),
	}
}

func (s PomodoroState) Clone() PomodoroState {
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}

// DeriveObservedState reports what is true at now for a persisted state
// without touching it: defaults are filled in, a running timer gets its
// remaining seconds from EndTime, and an elapsed running timer reads as ended.
func DeriveObservedState(persisted PomodoroState, modes Modes, now time.Time) PomodoroState {
	state := persisted.Clone()
	if state.Status == "" {
		state.Status = StatusIdle
	}
	if !IsValidMode(state.Mode) {
		state.Mode = ModeFocus
	}
	cfg := modes.Config(state.Mode)
	if state.Duration <= 0 {
		state.Duration = cfg.Duration
	}
	if state.Remaining < 0 {
		state.Remaining = cfg.Duration
	}

	if state.Status == StatusRunning && state.EndTime != nil {
		remaining := RemainingUntil(*state.EndTime, now)
		state.Remaining = remaining
		if remaining <= 0 {
			state.Status = StatusEnded
			state.Remaining = 0
			state.EndTime = nil
		}
	}
	return state
}

// RemainingUntil is the whole seconds left before endTime (epoch ms), never negative.
func RemainingUntil(endTime int64, now time.Time) int {
	delta := float64(endTime-now.UnixMilli()) / 1000
	remaining := int(math.Round(delta))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatSeconds renders a countdown as MM:SS.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
