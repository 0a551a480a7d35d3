package main

import (
	"github.com/spf13/cobra"

	"github.com/siralabs/sira/admin"
	"github.com/siralabs/sira/cli/chat"
	"github.com/siralabs/sira/conversations"
	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/configuration"
	"github.com/siralabs/sira/internal/debug"
	"github.com/siralabs/sira/kgraph"
	"github.com/siralabs/sira/memory"
	"github.com/siralabs/sira/report"
	"github.com/siralabs/sira/schedule"
)

const configFilepath = "~/.config/sira/config.json"

var rootCmd = &cobra.Command{
	Use:     "sira",
	Short:   "A CLI for the SIRA research assistant",
	Version: "1.0",
}

func main() {
	config, err := configuration.Parse(configFilepath)
	if err != nil {
		panic(err)
	}

	client := api.NewClient(api.Options{
		BaseURL: config.API.BaseURL,
		Token:   config.API.Token,
		Timeout: config.API.RequestTimeout(),
		Logger:  debug.GetLogger(),
	})

	rootCmd.AddCommand(chat.NewCmd(client, config))
	rootCmd.AddCommand(conversations.NewCmd(client, config))
	rootCmd.AddCommand(kgraph.NewCmd(client, config))
	rootCmd.AddCommand(schedule.NewCmd(client, config))
	rootCmd.AddCommand(memory.NewCmd(client, config))
	rootCmd.AddCommand(report.NewCmd(client))
	rootCmd.AddCommand(admin.NewHealthCmd(client))
	rootCmd.Execute()
}
