package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gaprio/chatkit/internal/profile"
	"github.com/gaprio/chatkit/internal/store"
	intsync "github.com/gaprio/chatkit/internal/sync"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var offline bool
	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show a conversation's messages",
		Long:  "Fetches the latest message page from the gateway, or reads the local cache with --offline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline {
				return offlineHistory(activeProfile(), args[0], limit)
			}

			rt := newRuntime(activeProfile())
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := rt.engine.Open(ctx, args[0]); err != nil {
				return err
			}
			msgs := rt.engine.Messages()
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(msgs)
			}
			printSections(intsync.GroupByDay(msgs, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum messages")
	cmd.Flags().BoolVar(&offline, "offline", false, "read from the local cache")
	return cmd
}

func offlineHistory(profileName, conversationID string, limit int) error {
	db, err := store.Open(profile.CacheDBPath(profileName))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		return err
	}

	rows, err := db.ListMessages(conversationID, 0, limit)
	if err != nil {
		return err
	}

	// Cached rows come newest-first; the projection wants ascending.
	msgs := make([]intsync.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		msgs = append(msgs, intsync.Message{
			ID:             r.MsgID,
			ClientID:       r.ClientID,
			ConversationID: r.ConversationID,
			SenderID:       r.SenderID,
			SenderName:     r.SenderName,
			Content:        r.Content,
			Edited:         r.Edited,
			Timestamp:      time.UnixMilli(r.Timestamp),
			Status:         intsync.StatusSent,
		})
	}
	if jsonFlag {
		return json.NewEncoder(os.Stdout).Encode(msgs)
	}
	printSections(intsync.GroupByDay(msgs, time.Now()))
	return nil
}

func printSections(sections []intsync.DaySection) {
	for _, sec := range sections {
		fmt.Printf("--- %s ---\n", sec.Label)
		for _, m := range sec.Messages {
			name := m.SenderName
			if name == "" {
				name = m.SenderID
			}
			suffix := ""
			if m.Edited {
				suffix = " (edited)"
			}
			fmt.Printf("%s %-16s %s%s\n", m.Timestamp.Local().Format("15:04"), name, m.Content, suffix)
		}
	}
}
