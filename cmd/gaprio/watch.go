package main

import (
	"context"
	"fmt"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/app"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/realtime"
	"github.com/gaprio/chatkit/internal/session"
	intsync "github.com/gaprio/chatkit/internal/sync"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversation-id>",
		Short: "Follow a conversation and mirror it into the local cache",
		Long: "Holds the profile lock, opens the conversation's push " +
			"subscription and prints incoming messages while mirroring " +
			"them into cache.db for offline history.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conversationID := args[0]

			fxApp := fx.New(
				app.Module(app.Params{Profile: activeProfile(), BaseURL: baseURLFlag}),
				fx.Invoke(func(lc fx.Lifecycle, engine *intsync.Engine, sess *session.Store, b *bus.Bus, logger *zap.Logger) {
					lc.Append(fx.Hook{
						OnStart: func(ctx context.Context) error {
							if !sess.IsAuthenticated() {
								return fmt.Errorf("not logged in, run `gaprio login` first")
							}
							if _, err := engine.LoadConversations(ctx); err != nil {
								return err
							}
							if err := engine.Open(ctx, conversationID); err != nil {
								return err
							}
							go printIncoming(b, logger)
							return nil
						},
					})
				}),
			)

			fxApp.Run()
			return nil
		},
	}
}

// printIncoming echoes incoming message events to stdout as they
// arrive on the push channel.
func printIncoming(b *bus.Bus, logger *zap.Logger) {
	ch, unsub := b.Subscribe("message.", 256)
	defer unsub()

	for evt := range ch {
		if line, ok := formatEvent(evt); ok {
			fmt.Println(line)
			continue
		}
		if evt.Kind == bus.KindMessageSendFailed {
			logger.Warn("message delivery failed", zap.Any("client_id", evt.Payload))
		}
	}
}

// formatEvent renders one push event as an output line. The event's
// own payload carries the affected message; the local list may already
// have moved on by the time the event is printed.
func formatEvent(evt bus.Event) (string, bool) {
	switch evt.Kind {
	case bus.KindMessageCreated, bus.KindMessageEdited:
		msg, ok := evt.Payload.(api.Message)
		if !ok {
			return "", false
		}
		name := msg.SenderName
		if name == "" {
			name = msg.SenderID
		}
		suffix := ""
		if evt.Kind == bus.KindMessageEdited {
			suffix = " (edited)"
		}
		return fmt.Sprintf("%s %-16s %s%s", msg.Timestamp.Local().Format("15:04:05"), name, msg.Content, suffix), true
	case bus.KindMessageDeleted:
		p, ok := evt.Payload.(realtime.DeletedPayload)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("message %s deleted", p.MessageID), true
	}
	return "", false
}
