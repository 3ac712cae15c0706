package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <message>...",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := rt.engine.Open(ctx, args[0]); err != nil {
				return err
			}
			if err := rt.engine.Send(ctx, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
