package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/media"
	"smartlife/client/internal/model"
)

func profileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the profile",
	}
	cmd.AddCommand(profileShowCmd(a))
	cmd.AddCommand(profileSetCmd(a))
	return cmd
}

func profileShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")

			var profile model.Profile
			var err error
			if refresh {
				profile, err = a.profiles.FetchFromServer(cmd.Context())
			} else {
				profile, err = a.profiles.Get(cmd.Context())
			}
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		},
	}
	cmd.Flags().Bool("refresh", false, "Fetch the profile from the server first")
	return cmd
}

func profileSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.profiles.Get(cmd.Context())
			if err != nil {
				return err
			}

			fields := map[string]*string{
				"first-name": &profile.FirstName,
				"last-name":  &profile.LastName,
				"username":   &profile.Username,
				"email":      &profile.Email,
			}
			for name, field := range fields {
				if cmd.Flags().Changed(name) {
					*field, _ = cmd.Flags().GetString(name)
				}
			}
			if cmd.Flags().Changed("avatar") {
				path, _ := cmd.Flags().GetString("avatar")
				url, err := media.EncodeDataURL(path, 0)
				if err != nil {
					return err
				}
				profile.Avatar = url
			}

			saved, err := a.profiles.Save(cmd.Context(), profile)
			if err != nil {
				if apperrors.IsFallbackEligible(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Server unavailable; changes kept on this device only")
				}
				return err
			}
			printProfile(cmd.OutOrStdout(), *saved)
			return nil
		},
	}

	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("username", "", "Username")
	cmd.Flags().String("email", "", "Email")
	cmd.Flags().String("avatar", "", "Path of an avatar image")
	return cmd
}

func printProfile(w io.Writer, p model.Profile) {
	fmt.Fprintf(w, "Username:   %s\n", p.Username)
	fmt.Fprintf(w, "Name:       %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(w, "Email:      %s\n", p.Email)
	avatar := p.Avatar
	if len(avatar) > 48 {
		avatar = avatar[:45] + "..."
	}
	fmt.Fprintf(w, "Avatar:     %s\n", avatar)
}
