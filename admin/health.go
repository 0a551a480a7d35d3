// Package admin holds operator-facing commands.
package admin

import (
	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
)

// NewHealthCmd instantiates and returns the health command.
func NewHealthCmd(client *api.Client) *cobra.Command {
	var opts struct {
		Pipeline bool
	}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Long:  "Check backend health, optionally including the research pipeline's providers",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			err := client.Health(cmd.Context())
			cobra.CheckErr(err)
			cli.AIOutput("backend ok (%s)\n", client.BaseURL())

			if !opts.Pipeline {
				return
			}
			status, err := client.PipelineHealth(cmd.Context())
			cobra.CheckErr(err)
			cli.AIOutput("serpapi: %s\n", status.Serpapi)
			cli.AIOutput("brave:   %s\n", status.Brave)
			cli.AIOutput("ddg:     %s\n", status.DDG)
			cli.AIOutput("offline: %s\n", status.Offline)
		},
	}

	cmd.Flags().BoolVarP(&opts.Pipeline, "pipeline", "p", false, "Also check research pipeline providers")
	return cmd
}
