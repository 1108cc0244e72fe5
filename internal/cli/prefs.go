package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/service"
)

func prefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Display preferences",
	}
	cmd.AddCommand(prefsThemeCmd(a))
	cmd.AddCommand(prefsNewYearCmd(a))
	cmd.AddCommand(prefsWatchCmd(a))
	return cmd
}

func prefsThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{service.ThemeLight, service.ThemeDark},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := a.prefs.SetTheme(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			theme, err := a.prefs.Theme(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme)
			return nil
		},
	}
}

func prefsNewYearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "newyear [on|off]",
		Short:     "Show or set New Year mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				switch args[0] {
				case "on", "off":
				default:
					return apperrors.Validation("newyear", "expected on or off")
				}
				if err := a.prefs.SetNewYearMode(cmd.Context(), args[0] == "on"); err != nil {
					return err
				}
			}
			on, err := a.prefs.NewYearMode(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), onOff(on))
			return nil
		},
	}
}

func prefsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print preferences whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.prefs.Current(cmd.Context())
			if err != nil {
				return err
			}
			printPrefs(cmd.OutOrStdout(), current)
			for prefs := range a.prefs.WatchChanges(cmd.Context()) {
				printPrefs(cmd.OutOrStdout(), prefs)
			}
			return nil
		},
	}
}

func printPrefs(w io.Writer, prefs service.Preferences) {
	fmt.Fprintf(w, "theme=%s newyear=%s\n", prefs.Theme, onOff(prefs.NewYear))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
