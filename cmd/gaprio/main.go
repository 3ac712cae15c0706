// Command gaprio is the Gaprio chat client: login, user search, direct
// and group conversations, message send/history, and a watch mode that
// mirrors push traffic into the local cache.
package main

import (
	"fmt"
	"os"

	"github.com/gaprio/chatkit/internal/profile"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	baseURLFlag string
	jsonFlag    bool
)

func main() {
	root := &cobra.Command{
		Use:           "gaprio",
		Short:         "Gaprio chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return profile.ValidateName(activeProfile())
		},
	}

	root.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	root.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "gateway base URL (overrides config)")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newRegisterCmd(),
		newProfileCmd(),
		newSearchCmd(),
		newChatsCmd(),
		newSendCmd(),
		newHistoryCmd(),
		newWatchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func activeProfile() string {
	return profile.Resolve(profileFlag)
}
