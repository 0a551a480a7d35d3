// Package memory exposes the backend's research memory on the command
// line.
package memory

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
	"github.com/siralabs/sira/internal/configuration"
)

// NewCmd instantiates and returns the memory command.
func NewCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Query and extend research memory",
		Long:  "Query and extend research memory",
	}
	cmd.AddCommand(newSearchCmd(client, config))
	cmd.AddCommand(newAddCmd(client, config))
	return cmd
}

// newSearchCmd instantiates and returns the memory search command.
func newSearchCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search research memory",
		Long:  "Search research memory",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			matches, err := client.SearchMemory(cmd.Context(), config.API.UserID, strings.Join(args, " "))
			cobra.CheckErr(err)

			cli.Title("SIRA MEMORY SEARCH")
			if len(matches) == 0 {
				cli.Notice("no matches")
				return
			}
			for _, match := range matches {
				cli.AIOutput("%.2f  %s\n", match.Score, match.Title)
				if match.Text != "" {
					cli.UserInput("      %s\n", match.Text)
				}
				if match.URL != "" {
					cli.UserInput("      %s\n", match.URL)
				}
			}
		},
	}
}

// newAddCmd instantiates and returns the memory add command.
func newAddCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	var opts struct {
		URL    string
		Title  string
		Source string
	}

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a document to research memory",
		Long:  "Add a document to research memory",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doc := api.MemoryDoc{
				Title:    opts.Title,
				Abstract: strings.Join(args, " "),
				URL:      opts.URL,
				Source:   opts.Source,
			}
			id, err := client.AddMemory(cmd.Context(), config.API.UserID, doc)
			cobra.CheckErr(err)
			cli.AIOutput("added memory %s\n", id)
		},
	}

	cmd.Flags().StringVarP(&opts.URL, "url", "u", "", "Source URL")
	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "Document title")
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Source name")
	return cmd
}
