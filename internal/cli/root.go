package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the smartlife command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "smartlife",
		Short:         "SmartLife - tasks, pomodoro and notes that keep working offline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (overrides SMARTLIFE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path of the local storage database")

	rootCmd.AddCommand(loginCmd(a))
	rootCmd.AddCommand(registerCmd(a))
	rootCmd.AddCommand(logoutCmd(a))
	rootCmd.AddCommand(whoamiCmd(a))
	rootCmd.AddCommand(profileCmd(a))
	rootCmd.AddCommand(tasksCmd(a))
	rootCmd.AddCommand(pomodoroCmd(a))
	rootCmd.AddCommand(notesCmd(a))
	rootCmd.AddCommand(prefsCmd(a))

	return rootCmd
}
