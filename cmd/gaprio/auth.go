package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			fmt.Fprint(os.Stderr, "Password: ")
			password, err := readPassword()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := rt.session.Login(ctx, args[0], password); err != nil {
				return err
			}
			id, _ := rt.session.Current()
			fmt.Printf("logged in as %s (%s)\n", id.Username, id.ID)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())
			rt.session.Logout()
			fmt.Println("logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())
			id, ok := rt.session.Current()
			if !ok || !rt.session.IsAuthenticated() {
				return fmt.Errorf("not logged in")
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(id)
			}
			fmt.Printf("%s (%s) role=%s\n", id.Username, id.ID, id.Role)
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var fullName, email, bio string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			fmt.Fprint(os.Stderr, "Password: ")
			password, err := readPassword()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			err = rt.client.Register(ctx, &api.RegisterRequest{
				Username: args[0],
				Password: password,
				FullName: fullName,
				Email:    email,
				Bio:      bio,
			})
			if err != nil {
				return err
			}
			fmt.Printf("account %s created, run `gaprio login %s`\n", args[0], args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&bio, "bio", "", "profile bio")
	return cmd
}

func readPassword() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
