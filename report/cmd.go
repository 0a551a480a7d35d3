// Package report generates and downloads research reports compiled from a
// conversation.
package report

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
)

// NewCmd instantiates and returns the report command.
func NewCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and download research reports",
		Long:  "Generate and download research reports",
	}
	cmd.AddCommand(newGenerateCmd(client))
	cmd.AddCommand(newDownloadCmd(client))
	return cmd
}

// newGenerateCmd instantiates and returns the report generate command.
func newGenerateCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [conversation-id]",
		Short: "Generate a report for a conversation",
		Long:  "Generate a report for a conversation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reportID, err := client.GenerateReport(cmd.Context(), args[0])
			cobra.CheckErr(err)
			cli.AIOutput("generated report %s\n", reportID)
		},
	}
}

// newDownloadCmd instantiates and returns the report download command.
func newDownloadCmd(client *api.Client) *cobra.Command {
	var opts struct {
		Output string
	}

	cmd := &cobra.Command{
		Use:   "download [conversation-id]",
		Short: "Download a conversation's report",
		Long:  "Download a conversation's report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			blob, contentType, err := client.DownloadReport(cmd.Context(), args[0])
			cobra.CheckErr(err)

			output := opts.Output
			if output == "" {
				output = "report-" + args[0] + extensionFor(contentType)
			}
			err = os.WriteFile(output, blob, 0644)
			cobra.CheckErr(err)
			cli.AIOutput("wrote %s (%d bytes)\n", output, len(blob))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file path")
	return cmd
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	case strings.Contains(contentType, "markdown"):
		return ".md"
	case strings.Contains(contentType, "html"):
		return ".html"
	default:
		return ".txt"
	}
}
