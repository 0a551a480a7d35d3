package chat

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/auth"
	"github.com/siralabs/sira/internal/configuration"
	"github.com/siralabs/sira/internal/realtime"
	"github.com/siralabs/sira/session"
	"github.com/siralabs/sira/store"
)

// NewCmd instantiates and returns the chat command.
func NewCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	var opts struct {
		ConversationID string
		Deep           bool
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive research chat",
		Long:  "Interactive research chat",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.Deep {
				config.Chat.DeepResearch = true
			}

			provider := auth.NewStaticProvider(auth.Identity{
				UserID: config.API.UserID,
				Token:  config.API.Token,
			})
			identity, signedIn := provider.Current()
			if !signedIn {
				return errors.New("no user configured, set api.user_id in the config file")
			}

			cache, err := store.New(config.Chat.Database)
			if err != nil {
				log.Warn().Err(err).Msg("offline cache unavailable")
				cache = nil
			} else {
				defer cache.Close()
			}

			var channel *realtime.Channel
			if config.Realtime.Enabled {
				var err error
				channel, err = realtime.Dial(
					ctx,
					config.Realtime.WebsocketURL(config.API.BaseURL),
					identity.Token,
					identity.UserID,
					log,
				)
				if err != nil {
					log.Warn().Err(err).Msg("realtime unavailable, running without live refresh")
				}
			}

			m, err := New(ctx, config, client, channel, provider, cache)
			if err != nil {
				return errors.Wrap(err, "creating chat surface")
			}
			defer m.Teardown()

			p := tea.NewProgram(
				m,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithMouseCellMotion(),
			)
			m.SetProgram(p)

			if opts.ConversationID != "" {
				go func() {
					if err := m.session.Initialize(opts.ConversationID); err != nil &&
						err != session.ErrInitializationInFlight {
						p.Send(initDoneMsg{err: err})
						return
					}
					p.Send(initDoneMsg{})
				}()
			}

			if _, err := p.Run(); err != nil {
				return errors.Wrap(err, "running chat")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ConversationID, "id", "", "Open a specific conversation")
	cmd.Flags().BoolVar(&opts.Deep, "deep", false, "Use the deep research pipeline")
	return cmd
}
