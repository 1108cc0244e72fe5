// Package tui renders the pomodoro timer as a small terminal view that stays
// in step with every other process sharing the same storage.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"smartlife/client/internal/model"
)

// Timer is the part of service.PomodoroService the view drives.
type Timer interface {
	Modes() model.Modes
	State(ctx context.Context) (model.PomodoroState, error)
	Subscribe() (<-chan model.PomodoroState, func())
	SetMode(ctx context.Context, mode string) (model.PomodoroState, error)
	Start(ctx context.Context) (model.PomodoroState, error)
	Pause(ctx context.Context) (model.PomodoroState, error)
	Reset(ctx context.Context) (model.PomodoroState, error)
	MarkEnded(ctx context.Context) (model.PomodoroState, error)
	Advance(ctx context.Context, autoStart bool) (model.PomodoroState, error)
}

type Options struct {
	// Interval is how often storage is re-read. Defaults to one second.
	Interval time.Duration
	// Theme is the stored theme preference, "light" or "dark".
	Theme string
}

type stateMsg model.PomodoroState

type tickMsg struct{}

type errMsg struct{ err error }

type broadcastMsg model.PomodoroState

type pomodoroModel struct {
	ctx      context.Context
	timer    Timer
	updates  <-chan model.PomodoroState
	interval time.Duration

	keys  keyMap
	help  help.Model
	state model.PomodoroState
	err   error
}

func newPomodoroModel(ctx context.Context, timer Timer, updates <-chan model.PomodoroState, interval time.Duration) pomodoroModel {
	if interval <= 0 {
		interval = time.Second
	}
	return pomodoroModel{
		ctx:      ctx,
		timer:    timer,
		updates:  updates,
		interval: interval,
		keys:     defaultKeyMap(),
		help:     help.New(),
		state:    model.DefaultPomodoroState(timer.Modes(), time.Now()),
	}
}

// Run shows the timer until the user quits or ctx is done.
func Run(ctx context.Context, timer Timer, opts Options) error {
	applyColorProfile()
	applyTheme(opts.Theme)

	updates, cancel := timer.Subscribe()
	defer cancel()

	m := newPomodoroModel(ctx, timer, updates, opts.Interval)
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m pomodoroModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick(), m.waitForUpdate())
}

func (m pomodoroModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.err = nil
		cmd := m.observe(model.PomodoroState(msg))
		return m, cmd

	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case broadcastMsg:
		observed := model.DeriveObservedState(model.PomodoroState(msg), m.timer.Modes(), time.Now())
		cmd := m.observe(observed)
		return m, tea.Batch(cmd, m.waitForUpdate())

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// observe records state and persists the expiry the first time it is seen.
func (m *pomodoroModel) observe(state model.PomodoroState) tea.Cmd {
	previous := m.state.Status
	m.state = state
	if state.Status == model.StatusEnded && previous != model.StatusEnded {
		return m.run(m.timer.MarkEnded)
	}
	return nil
}

func (m pomodoroModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if m.state.Status == model.StatusRunning {
			return m, m.run(m.timer.Pause)
		}
		return m, m.run(m.timer.Start)
	case key.Matches(msg, m.keys.Reset):
		return m, m.run(m.timer.Reset)
	case key.Matches(msg, m.keys.Next):
		return m, m.run(func(ctx context.Context) (model.PomodoroState, error) {
			return m.timer.Advance(ctx, false)
		})
	case key.Matches(msg, m.keys.Focus):
		return m, m.setMode(model.ModeFocus)
	case key.Matches(msg, m.keys.Short):
		return m, m.setMode(model.ModeShortBreak)
	case key.Matches(msg, m.keys.Long):
		return m, m.setMode(model.ModeLongBreak)
	}
	return m, nil
}

func (m pomodoroModel) View() string {
	cfg := m.timer.Modes().Config(m.state.Mode)

	modeColor := colorFocus
	if m.state.Mode != model.ModeFocus {
		modeColor = colorBreak
	}

	var tabs []string
	for _, mode := range []string{model.ModeFocus, model.ModeShortBreak, model.ModeLongBreak} {
		label := m.timer.Modes().Config(mode).Label
		if mode == m.state.Mode {
			tabs = append(tabs, activeStyle.Foreground(modeColor).Render(label))
			continue
		}
		tabs = append(tabs, mutedStyle.Render(label))
	}

	lines := []string{
		strings.Join(tabs, "  "),
		"",
		clockStyle.Foreground(modeColor).Render(model.FormatSeconds(m.state.Remaining)),
		labelStyle.Render(cfg.Label) + mutedStyle.Render(" · "+statusLabel(m.state.Status)),
		mutedStyle.Render(fmt.Sprintf("completed pomodoros: %d", m.state.Pomodoros)),
	}
	if m.err != nil {
		lines = append(lines, "", errorStyle.Render(m.err.Error()))
	}

	body := frameStyle.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	return lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys)) + "\n"
}

func statusLabel(status string) string {
	switch status {
	case model.StatusRunning:
		return "running"
	case model.StatusPaused:
		return "paused"
	case model.StatusEnded:
		return "time is up"
	default:
		return "ready"
	}
}

func (m pomodoroModel) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return nil
		}
		return broadcastMsg(state)
	}
}

func (m pomodoroModel) load() tea.Cmd {
	return m.run(m.timer.State)
}

func (m pomodoroModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m pomodoroModel) setMode(mode string) tea.Cmd {
	return m.run(func(ctx context.Context) (model.PomodoroState, error) {
		return m.timer.SetMode(ctx, mode)
	})
}

func (m pomodoroModel) run(op func(context.Context) (model.PomodoroState, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		state, err := op(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return stateMsg(state)
	}
}
