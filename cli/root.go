// Package cli defines the teambot command-line interface.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/onnwee/teambot/config"
	"github.com/onnwee/teambot/logging"
)

// Version is stamped at build time with -ldflags "-X github.com/onnwee/teambot/cli.Version=...".
var Version = "dev"

// Options stores global CLI options shared between commands.
type Options struct {
	EnvFile  string
	LogLevel string

	closeLog func() error
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	opts := &Options{EnvFile: ".env"}

	rootCmd := newRootCommand(opts, logger)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	if opts.closeLog != nil {
		_ = opts.closeLog()
	}
	return err
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "teambot",
		Short:         "teambot is a chat bot that builds random teams and re-posts videos",
		Long:          "teambot connects to Slack (Socket Mode) and Twitch chat, splits people into balanced random teams and re-uploads linked videos into the conversation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.LogLevel
			}
			l, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile, Out: os.Stderr})
			if err != nil {
				return err
			}
			logger = l
			opts.closeLog = closeLog
			slog.SetDefault(logger)

			ctx := context.WithValue(cmd.Context(), loggerKey{}, logger)
			ctx = context.WithValue(ctx, configKey{}, cfg)
			cmd.SetContext(ctx)
			logger.Debug("logger initialized", slog.String("level", cfg.LogLevel), slog.String("format", cfg.LogFormat))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "Optional dotenv file loaded before the environment")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(
		newServeCommand(),
		newTeamsCommand(),
		newFetchCommand(),
		newYouTubeTokenCommand(),
		newVersionCommand(),
	)

	return cmd
}

type loggerKey struct{}

type configKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ConfigFromContext returns the configuration loaded by the root command.
func ConfigFromContext(ctx context.Context) *config.Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*config.Config); ok && c != nil {
			return c
		}
	}
	return &config.Config{}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(Version + "\n"))
			return err
		},
	}
}
