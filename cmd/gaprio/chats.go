package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	intsync "github.com/gaprio/chatkit/internal/sync"
	"github.com/spf13/cobra"
)

func newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Conversation management",
	}
	cmd.AddCommand(
		newChatsListCmd(),
		newChatsInfoCmd(),
		newChatsStartCmd(),
		newChatsGroupsCmd(),
		newChatsCreateGroupCmd(),
		newChatsUpdateGroupCmd(),
		newChatsDeleteCmd(),
		newChatsLeaveCmd(),
		newChatsMembersCmd(),
	)
	return cmd
}

func newChatsListCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := rt.engine.LoadConversations(ctx); err != nil {
				return err
			}
			convs := rt.engine.FilterConversations(filter)
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(convs)
			}
			id, _ := rt.session.Current()
			for _, c := range convs {
				preview := ""
				if c.LastMessage != nil {
					preview = c.LastMessage.Content
				}
				marker := " "
				if c.Unread > 0 {
					marker = fmt.Sprintf("%d", c.Unread)
				}
				fmt.Printf("%-36s %-6s %1s %-24s %s\n", c.ID, c.Kind, marker, c.DisplayName(id.ID), preview)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "filter by name")
	return cmd
}

func newChatsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <conversation-id>",
		Short: "Show one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conv, err := rt.client.GetConversation(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(conv)
			}
			id, _ := rt.session.Current()
			fmt.Printf("id   %s\n", conv.ID)
			fmt.Printf("kind %s\n", conv.Kind)
			view := intsync.Conversation{
				ID:           conv.ID,
				Kind:         intsync.ConversationKind(conv.Kind),
				Participants: conv.Participants,
				Name:         conv.Name,
			}
			fmt.Printf("name %s\n", view.DisplayName(id.ID))
			if conv.Description != "" {
				fmt.Printf("desc %s\n", conv.Description)
			}
			for _, m := range conv.Members {
				fmt.Printf("  %-24s %-10s %s\n", m.User.Username, m.Role, m.User.ID)
			}
			return nil
		},
	}
}

func newChatsGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())
			id, ok := rt.session.Current()
			if !ok {
				return fmt.Errorf("not logged in")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			groups, err := rt.client.ListGroups(ctx, id.ID)
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(groups)
			}
			for _, g := range groups {
				fmt.Printf("%-36s %-24s %d members\n", g.ID, g.Name, len(g.Members))
			}
			return nil
		},
	}
}

func newChatsStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <user-id>",
		Short: "Start (or resume) a direct conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conv, err := rt.engine.CreateDirect(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("conversation %s\n", conv.ID)
			return nil
		},
	}
}

func newChatsCreateGroupCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create-group <name> <member-id>...",
		Short: "Create a group conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conv, err := rt.engine.CreateGroup(ctx, args[0], description, args[1:])
			if err != nil {
				return err
			}
			fmt.Printf("group %s (%s)\n", conv.Name, conv.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "group description")
	return cmd
}

func newChatsUpdateGroupCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update-group <group-id>",
		Short: "Rename a group or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())
			id, ok := rt.session.Current()
			if !ok {
				return fmt.Errorf("not logged in")
			}

			fields := map[string]any{}
			if cmd.Flags().Changed("name") {
				fields["name"] = name
			}
			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update; pass --name or --description")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conv, err := rt.client.UpdateGroup(ctx, args[0], id.ID, fields)
			if err != nil {
				return err
			}
			fmt.Printf("group %s (%s)\n", conv.Name, conv.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new group name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func newChatsDeleteCmd() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation or group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			loadConversationsQuiet(ctx, rt.engine)
			var err error
			if group {
				err = rt.engine.DeleteGroup(ctx, args[0])
			} else {
				err = rt.engine.DeleteConversation(ctx, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "delete a group")
	return cmd
}

func newChatsLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <group-id>",
		Short: "Leave a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			loadConversationsQuiet(ctx, rt.engine)
			if err := rt.engine.LeaveGroup(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("left group")
			return nil
		},
	}
}

func newChatsMembersCmd() *cobra.Command {
	var add, remove, role, roleUser string
	cmd := &cobra.Command{
		Use:   "members <group-id>",
		Short: "List or mutate group membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(activeProfile())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			groupID := args[0]
			switch {
			case add != "":
				if err := rt.engine.AddMember(ctx, groupID, add); err != nil {
					return err
				}
				fmt.Println("member added")
			case remove != "":
				if err := rt.engine.RemoveMember(ctx, groupID, remove); err != nil {
					return err
				}
				fmt.Println("member removed")
			case role != "":
				if roleUser == "" {
					return fmt.Errorf("--role requires --user")
				}
				if err := rt.engine.UpdateMemberRole(ctx, groupID, roleUser, role); err != nil {
					return err
				}
				fmt.Println("role updated")
			default:
				members, err := rt.client.GetGroupMembers(ctx, groupID)
				if err != nil {
					return err
				}
				if jsonFlag {
					return json.NewEncoder(os.Stdout).Encode(members)
				}
				for _, m := range members {
					fmt.Printf("%-24s %-10s %s\n", m.User.Username, m.Role, m.User.ID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&add, "add", "", "user id to add")
	cmd.Flags().StringVar(&remove, "remove", "", "user id to remove")
	cmd.Flags().StringVar(&role, "role", "", "new role (with --user)")
	cmd.Flags().StringVar(&roleUser, "user", "", "user id for --role")
	return cmd
}

// loadConversationsQuiet primes the local list so removals can reconcile
// selection state; list failures don't block the mutation itself.
func loadConversationsQuiet(ctx context.Context, engine *intsync.Engine) {
	_, _ = engine.LoadConversations(ctx)
}
