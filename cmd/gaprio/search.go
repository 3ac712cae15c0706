package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			users, err := rt.client.SearchUsers(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(users)
			}
			if len(users) == 0 {
				fmt.Println("no users found")
				return nil
			}
			for _, u := range users {
				name := u.FullName
				if name == "" {
					name = u.Username
				}
				fmt.Printf("%-24s %s (%s)\n", u.Username, name, u.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}
