package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"social-service/internal/store"
)

// NewEnsureIndexesCommand creates the ensure-indexes command.
func NewEnsureIndexesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the service relies on",
		Long: `Create the MongoDB indexes the service relies on.

Unique indexes on users.email and users.username back the duplicate checks
of sign-up and profile updates; the posts and replies indexes serve the feed
and reply listings. Existing indexes are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(rootOpts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout*3)
			defer cancel()

			db, err := store.NewConnection(ctx, store.Config{
				URI:            cfg.Mongo.URI,
				Database:       cfg.Mongo.Database,
				ConnectTimeout: cfg.Mongo.ConnectTimeout,
				MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			})
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			names, err := store.EnsureIndexes(ctx, db)
			if err != nil {
				return err
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			log.WithField("count", len(names)).Info("Indexes ensured")
			return nil
		},
	}
}
