package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update a user profile",
	}
	cmd.AddCommand(newProfileShowCmd(), newProfileUpdateCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [user-id]",
		Short: "Show a profile (defaults to your own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			var userID string
			if len(args) == 1 {
				userID = args[0]
			} else {
				id, ok := rt.session.Current()
				if !ok {
					return fmt.Errorf("not logged in; pass a user id")
				}
				userID = id.ID
			}
			user, err := rt.client.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(user)
			}
			fmt.Printf("id       %s\n", user.ID)
			fmt.Printf("username %s\n", user.Username)
			fmt.Printf("name     %s\n", user.FullName)
			if user.Email != "" {
				fmt.Printf("email    %s\n", user.Email)
			}
			if user.Bio != "" {
				fmt.Printf("bio      %s\n", user.Bio)
			}
			return nil
		},
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var fullName, email, bio, avatarURL string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())
			id, ok := rt.session.Current()
			if !ok {
				return fmt.Errorf("not logged in")
			}

			fields := map[string]any{}
			if cmd.Flags().Changed("name") {
				fields["fullName"] = fullName
			}
			if cmd.Flags().Changed("email") {
				fields["email"] = email
			}
			if cmd.Flags().Changed("bio") {
				fields["bio"] = bio
			}
			if cmd.Flags().Changed("avatar-url") {
				fields["avatarUrl"] = avatarURL
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update; pass at least one field flag")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			user, err := rt.client.UpdateProfile(ctx, id.ID, fields)
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(user)
			}
			fmt.Printf("profile updated: %s (%s)\n", user.FullName, user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "avatar image URL")
	return cmd
}
