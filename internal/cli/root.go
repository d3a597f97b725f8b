package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"social-service/config"
	"social-service/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Verbose bool
}

// NewRootCommand creates the root command for the social service.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "social-service",
		Short: "Social media API: posts, feeds, likes, replies and follows",
		Long: `Social media API server.

Serves posts with audio, the global and followed feeds, likes, replies,
follows and email/password and Google sign-in over HTTP, backed by MongoDB,
S3, Redis and NATS.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment from this file instead of .env")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewEnsureIndexesCommand(opts))
	cmd.AddCommand(NewWatchEventsCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger shared by every command.
func setup(opts *RootOptions) (*config.Config, *logrus.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logger.New(cfg.Log), nil
}
