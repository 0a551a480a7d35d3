package kgraph

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
	"github.com/siralabs/sira/internal/configuration"
	"github.com/siralabs/sira/internal/debug"
)

// NewCmd instantiates and returns the graph command.
func NewCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	var opts struct {
		ConversationID string
		Width          int
		Height         int
	}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the knowledge graph",
		Long:  "Render the current knowledge graph, or the one attached to a conversation's latest answer",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			var graph *api.KnowledgeGraph
			if opts.ConversationID != "" {
				_, messages, err := client.GetConversation(cmd.Context(), opts.ConversationID, config.Chat.PageSize)
				cobra.CheckErr(err)
				for i := len(messages) - 1; i >= 0 && graph == nil; i-- {
					if messages[i].Meta != nil {
						graph = messages[i].Meta.KnowledgeGraph
					}
				}
				if graph == nil {
					cli.Notice("conversation has no knowledge graph")
					return
				}
			} else {
				var err error
				graph, err = client.CurrentGraph(cmd.Context())
				cobra.CheckErr(err)
			}

			sanitized, err := Sanitize(graph, Limits{
				MaxNodes: config.Graph.MaxNodes,
				MaxEdges: config.Graph.MaxEdges,
			})
			cobra.CheckErr(err)

			renderer := NewRenderer(debug.GetLogger())
			renderer.Mount(sanitized)
			fmt.Println(renderer.View(opts.Width, opts.Height))
		},
	}

	cmd.Flags().StringVarP(&opts.ConversationID, "conversation", "c", "", "Render this conversation's latest graph")
	cmd.Flags().IntVar(&opts.Width, "width", 120, "Canvas width in cells")
	cmd.Flags().IntVar(&opts.Height, "height", 40, "Canvas height in cells")
	return cmd
}
