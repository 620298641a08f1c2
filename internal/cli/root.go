package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurekit/pkg/config"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel  string
	LogFormat string
	Pretty    bool
}

// NewRootCommand creates the flagcheck root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flagcheck",
		Short: "Inspect and serve feature flag definitions",
		Long: `flagcheck evaluates feature flag definitions offline.

Definitions are read from a JSON or YAML file in the local-evaluation shape
(flags, cohorts and group_type_mapping). Nothing is sent to the remote service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), defaults to LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text), defaults to LOG_FORMAT")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "indent JSON output")

	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// logger builds the command logger on stderr so JSON output on stdout stays clean.
func (o *RootOptions) logger(cmd *cobra.Command, opts ...logger.Option) (*slog.Logger, error) {
	var cfg logger.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Format = o.LogFormat
	}
	cfg.Service = "flagcheck"
	return logger.FromConfig(cfg, append([]logger.Option{logger.WithOutput(cmd.ErrOrStderr())}, opts...)...)
}
