package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	natsClient "social-service/nats"
	"social-service/subscriber"
)

// NewWatchEventsCommand creates the watch-events command.
func NewWatchEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-events",
		Short: "Log every domain event published on NATS",
		Long: `Subscribe to post.created, post.liked, post.replied and user.followed
and log each event until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(rootOpts)
			if err != nil {
				return err
			}

			client, err := natsClient.NewClient(natsClient.Config{
				URL:           cfg.NATS.URL,
				MaxReconnects: cfg.NATS.MaxReconnects,
				ReconnectWait: cfg.NATS.ReconnectWait,
				ClientID:      cfg.NATS.ClientID + "-watcher",
			}, log)
			if err != nil {
				return err
			}
			defer client.Close()

			sub := subscriber.NewEventLogger(client, log)
			if err := sub.Start(); err != nil {
				return err
			}
			defer sub.Stop()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-sigChan:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
}
