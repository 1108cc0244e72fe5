package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smartlife/client/internal/media"
	"smartlife/client/internal/service"
)

func loginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in; falls back to the local user directory when offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := a.readLine(cmd)
				if err != nil {
					return err
				}
				password = line
			}

			created, err := a.auth.Login(cmd.Context(), service.Credentials{Username: username, Password: password})
			if err != nil {
				return err
			}
			if created.AccessToken == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (offline)\n", created.User.Username)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", created.User.Username)
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "Username (required)")
	cmd.Flags().StringP("password", "p", "", "Password; read from input when omitted")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func registerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.RegisterInput{}
			input.Username, _ = cmd.Flags().GetString("username")
			input.Password, _ = cmd.Flags().GetString("password")
			input.Confirm, _ = cmd.Flags().GetString("confirm")
			input.FirstName, _ = cmd.Flags().GetString("first-name")
			input.LastName, _ = cmd.Flags().GetString("last-name")
			input.Email, _ = cmd.Flags().GetString("email")
			if input.Confirm == "" {
				input.Confirm = input.Password
			}

			if avatar, _ := cmd.Flags().GetString("avatar"); avatar != "" {
				url, err := media.EncodeDataURL(avatar, 0)
				if err != nil {
					return err
				}
				input.Avatar = url
			}

			result, err := a.auth.Register(cmd.Context(), input)
			if err != nil {
				return err
			}
			if result.Source == service.SourceLocal {
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s on this device (server unreachable)\n", result.User.Username)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", result.User.Username)
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "Username (required)")
	cmd.Flags().StringP("password", "p", "", "Password (required)")
	cmd.Flags().String("confirm", "", "Password confirmation (defaults to --password)")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("email", "", "Email")
	cmd.Flags().String("avatar", "", "Path of an avatar image")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.auth.FetchCurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			name := strings.TrimSpace(user.FirstName + " " + user.LastName)
			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), user.Username)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Username, name)
			return nil
		},
	}
}
