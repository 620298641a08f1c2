package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/featurekit/pkg/config"
	"github.com/dmitrymomot/featurekit/pkg/filesource"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/httpserver"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
	"github.com/dmitrymomot/featurekit/pkg/redisstore"
)

// ServeOptions holds the serve command flags.
type ServeOptions struct {
	Addr         string
	Redis        bool
	Watch        bool
	PollInterval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve <definitions-file>",
		Short: "Serve flag evaluations over HTTP",
		Long: `Serve flag evaluations from a definitions file over HTTP.

The file is reloaded when it changes and on every poll interval. With --redis
each loaded snapshot is also written to Redis (REDIS_URL) and read back when
the file cannot be loaded at startup. Listener settings come from HTTP_* variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address, defaults to HTTP_ADDR")
	cmd.Flags().BoolVar(&opts.Redis, "redis", false, "persist snapshots in Redis")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "reload when the file changes")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", time.Minute, "reload interval")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := rootOpts.logger(cmd, logger.WithContextExtractors(httpserver.RequestIDExtractor()))
	if err != nil {
		return err
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	if opts.Addr != "" {
		httpCfg.Addr = opts.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("flagcheck")
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	src, err := filesource.New(path, filesource.WithLogger(log))
	if err != nil {
		return err
	}

	storeOpts := []flagstore.Option{
		flagstore.WithPollInterval(opts.PollInterval),
		flagstore.WithLogger(log),
		flagstore.WithOnRefresh(m.ObserveRefresh),
	}
	var checks []func(context.Context) error
	if opts.Redis {
		var redisCfg redisstore.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redisstore.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		storeOpts = append(storeOpts, flagstore.WithPersister(redisstore.NewSnapshotStoreFromConfig(client, redisCfg)))
		checks = append(checks, redisstore.Healthcheck(client))
	}

	store, err := flagstore.New(src, storeOpts...)
	if err != nil {
		return err
	}
	if _, err := store.Await(ctx); err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}

	router := NewRouter(store, flags.NewEvaluator(flags.WithLogger(log)), log, m, reg, checks...)
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(store.Run(ctx))
	if opts.Watch {
		g.Go(func() error {
			return src.Watch(ctx, func() {
				// Refresh failures keep the last snapshot and are reported by the store.
				_ = store.Refresh(ctx)
			})
		})
	}
	g.Go(func() error { return srv.Run(ctx, router) })

	return g.Wait()
}
