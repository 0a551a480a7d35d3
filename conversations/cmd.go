package conversations

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
	"github.com/siralabs/sira/internal/configuration"
	"github.com/siralabs/sira/store"
)

// NewCmd instantiates and returns the conversations command.
func NewCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage conversations",
		Long:  "Manage conversations",
	}
	cmd.AddCommand(newListCmd(client, config))
	cmd.AddCommand(newRenameCmd(client))
	cmd.AddCommand(newDeleteCmd(client))
	cmd.AddCommand(newSearchCmd(config))
	return cmd
}

// newListCmd instantiates and returns the conversation list command.
func newListCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	var opts struct {
		Filter string
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations by recency",
		Long:  "List conversations by recency",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			list, err := client.ListConversations(cmd.Context(), config.API.UserID)
			if err != nil {
				// Fall back to the offline cache, reporting the network
				// error when the cache cannot serve either.
				s, cacheErr := store.New(config.Chat.Database)
				if cacheErr != nil {
					cobra.CheckErr(err)
				}
				defer s.Close()
				list, cacheErr = s.ListSummaries(config.API.UserID, 200)
				if cacheErr != nil {
					cobra.CheckErr(err)
				}
				cli.Notice("backend unreachable, showing cached conversations\n")
			}
			list = Filter(list, opts.Filter)

			cli.Title("SIRA CONVERSATIONS")
			for _, group := range GroupByRecency(list, time.Now()) {
				cli.AIOutput("%s\n", group.Label)
				for _, c := range group.Conversations {
					cli.UserInput("  %s  %s  %s\n", c.ID, c.ActivityTime().Format("2006-01-02 15:04"), c.Title)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Case-insensitive title filter")
	return cmd
}

// newRenameCmd instantiates and returns the conversation rename command.
func newRenameCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "rename [conversation-id] [title]",
		Short: "Rename a conversation",
		Long:  "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				cli.Notice("empty title, nothing to do")
				return
			}
			err := client.RenameConversation(cmd.Context(), args[0], title)
			cobra.CheckErr(err)
			cli.AIOutput("renamed %s\n", args[0])
		},
	}
}

// newDeleteCmd instantiates and returns the conversation delete command.
func newDeleteCmd(client *api.Client) *cobra.Command {
	var opts struct {
		Force bool
	}

	cmd := &cobra.Command{
		Use:   "delete [conversation-id]",
		Short: "Delete a conversation",
		Long:  "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !opts.Force {
				confirmed, err := cli.PromptConfirmation("Delete conversation " + args[0] + "?")
				cobra.CheckErr(err)
				if !confirmed {
					return
				}
			}
			err := client.DeleteConversation(cmd.Context(), args[0])
			cobra.CheckErr(err)
			cli.AIOutput("deleted %s\n", args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Skip confirmation")
	return cmd
}

// newSearchCmd instantiates and returns the conversation search command,
// backed by the local full-text cache.
func newSearchCmd(config *configuration.Config) *cobra.Command {
	var opts struct {
		PageSize int
	}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search cached conversations",
		Long:  "Full-text search cached conversations",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s, err := store.New(config.Chat.Database)
			cobra.CheckErr(err)
			defer s.Close()

			matches, err := s.Search(strings.Join(args, " "), opts.PageSize)
			cobra.CheckErr(err)

			cli.Title("SIRA SEARCH")
			if len(matches) == 0 {
				cli.Notice("no matches")
				return
			}
			for _, c := range matches {
				cli.AIOutput("%s  %s\n", c.ID, c.Title)
			}
		},
	}

	cmd.Flags().IntVarP(&opts.PageSize, "page-size", "p", 50, "Page size")
	return cmd
}
