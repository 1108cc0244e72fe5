package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"smartlife/client/internal/model"
	"smartlife/client/internal/tui"
)

func pomodoroCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pomodoro",
		Aliases: []string{"timer"},
		Short:   "Control the pomodoro timer",
	}

	transition := func(use, short string, op func(ctx context.Context) (model.PomodoroState, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				state, err := op(cmd.Context())
				if err != nil {
					return err
				}
				printPomodoro(cmd.OutOrStdout(), a.pomodoro.Modes(), state)
				return nil
			},
		}
	}

	cmd.AddCommand(transition("status", "Show the timer", func(ctx context.Context) (model.PomodoroState, error) {
		return a.pomodoro.State(ctx)
	}))
	cmd.AddCommand(transition("start", "Start or resume the countdown", func(ctx context.Context) (model.PomodoroState, error) {
		return a.pomodoro.Start(ctx)
	}))
	cmd.AddCommand(transition("pause", "Pause the countdown", func(ctx context.Context) (model.PomodoroState, error) {
		return a.pomodoro.Pause(ctx)
	}))
	cmd.AddCommand(transition("reset", "Reset the current mode", func(ctx context.Context) (model.PomodoroState, error) {
		return a.pomodoro.Reset(ctx)
	}))
	cmd.AddCommand(transition("clear", "Forget the stored timer", func(ctx context.Context) (model.PomodoroState, error) {
		return a.pomodoro.Clear(ctx)
	}))
	cmd.AddCommand(pomodoroModeCmd(a))
	cmd.AddCommand(pomodoroNextCmd(a))
	cmd.AddCommand(pomodoroWatchCmd(a))
	return cmd
}

func pomodoroModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <focus|short|long>",
		Short:     "Switch mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{model.ModeFocus, model.ModeShortBreak, model.ModeLongBreak},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.pomodoro.SetMode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printPomodoro(cmd.OutOrStdout(), a.pomodoro.Modes(), state)
			return nil
		},
	}
}

func pomodoroNextCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Move a finished timer on to the next mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetBool("start")
			if _, err := a.pomodoro.MarkEnded(cmd.Context()); err != nil {
				return err
			}
			state, err := a.pomodoro.Advance(cmd.Context(), start)
			if err != nil {
				return err
			}
			printPomodoro(cmd.OutOrStdout(), a.pomodoro.Modes(), state)
			return nil
		},
	}
	cmd.Flags().Bool("start", false, "Start the next mode right away")
	return cmd
}

func pomodoroWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the timer live",
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, _ := cmd.Flags().GetBool("plain")
			if plain {
				for state := range a.pomodoro.Watch(cmd.Context(), a.cfg.PollInterval) {
					printPomodoro(cmd.OutOrStdout(), a.pomodoro.Modes(), state)
				}
				return nil
			}

			theme, err := a.prefs.Theme(cmd.Context())
			if err != nil {
				a.logger.Printf("read theme: %v", err)
			}
			return tui.Run(cmd.Context(), a.pomodoro, tui.Options{Interval: a.cfg.PollInterval, Theme: theme})
		},
	}
	cmd.Flags().Bool("plain", false, "Print one line per update instead of the full-screen view")
	return cmd
}

func printPomodoro(w io.Writer, modes model.Modes, state model.PomodoroState) {
	fmt.Fprintf(w, "%s  %s  %s  (%d pomodoros)\n",
		modes.Config(state.Mode).Label,
		model.FormatSeconds(state.Remaining),
		state.Status,
		state.Pomodoros,
	)
}
