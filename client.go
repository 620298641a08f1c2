package featurekit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/featurekit/pkg/async"
	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/cache"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// Version is reported as $lib_version on every event.
const Version = "1.0.0"

const libName = "featurekit-go"

// Client evaluates feature flags and records analytics events.
// It is safe for concurrent use.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   batch.Clock

	store     *flagstore.Store // nil when local evaluation is off
	evaluator *flags.Evaluator
	remote    Remote
	batcher   *batch.Batcher[transport.Event]
	sent      *cache.SentEvents

	started atomic.Bool
	closed  atomic.Bool
}

// New creates a Client. Nothing runs in the background until Start; without it
// definitions are loaded on the first evaluation and events are only sent by
// Flush and Shutdown.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ProjectAPIKey == "" {
		return nil, ErrMissingProjectKey
	}
	cfg = cfg.withDefaults()

	o := &options{
		logger: slog.Default(),
		clock:  batch.SystemClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
		clock:   o.clock,
		remote:  o.remote,
	}

	var tc *transport.Client
	if o.remote == nil || o.sender == nil || (o.fetcher == nil && cfg.PersonalAPIKey != "") {
		var err error
		tc, err = transport.New(cfg.ProjectAPIKey,
			transport.WithHost(cfg.Host),
			transport.WithPersonalAPIKey(cfg.PersonalAPIKey),
			transport.WithTimeout(cfg.RequestTimeout),
			transport.WithDecideRateLimit(cfg.DecideRateLimit),
			transport.WithUserAgent(libName+"/"+Version),
			transport.WithLogger(o.logger),
			transport.WithOnAttempt(o.metrics.ObserveAttempt),
		)
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}
	}
	if c.remote == nil {
		c.remote = tc
	}

	fetcher := o.fetcher
	if fetcher == nil && cfg.PersonalAPIKey != "" {
		fetcher = tc
	}
	if fetcher != nil {
		storeOpts := []flagstore.Option{
			flagstore.WithPollInterval(cfg.FeatureFlagPollInterval),
			flagstore.WithLogger(o.logger),
			flagstore.WithOnRefresh(o.metrics.ObserveRefresh),
			flagstore.WithNow(o.clock.Now),
		}
		if o.persister != nil {
			storeOpts = append(storeOpts, flagstore.WithPersister(o.persister))
		}
		store, err := flagstore.New(fetcher, storeOpts...)
		if err != nil {
			return nil, fmt.Errorf("create flag store: %w", err)
		}
		c.store = store
	}

	c.evaluator = flags.NewEvaluator(
		flags.WithNow(o.clock.Now),
		flags.WithLogger(o.logger),
	)

	sender := o.sender
	if sender == nil {
		sender = tc.SendBatch
	}
	batchOpts := append(cfg.Config.Options(),
		batch.WithClock(o.clock),
		batch.WithLogger(o.logger),
		batch.WithOnDrop(o.metrics.ObserveDropped),
		batch.WithOnFlush(o.metrics.ObserveFlush),
	)
	batcher, err := batch.New(sender, batchOpts...)
	if err != nil {
		return nil, fmt.Errorf("create batcher: %w", err)
	}
	c.batcher = batcher

	c.sent = cache.NewSentEvents(
		cache.WithSizeLimit(cfg.FeatureFlagSentCacheSizeLimit),
		cache.WithCompactionPercentage(cfg.FeatureFlagSentCacheCompactionPercentage),
		cache.WithSlidingExpiration(cfg.FeatureFlagSentCacheSlidingExpiration),
		cache.WithNow(o.clock.Now),
	)

	return c, nil
}

// Start launches the definitions poller and the event flush loop. Both stop on
// Shutdown or when ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if c.store != nil {
		if err := c.store.Start(ctx); err != nil {
			return fmt.Errorf("start flag store: %w", err)
		}
	}
	if err := c.batcher.Start(ctx); err != nil {
		return fmt.Errorf("start batcher: %w", err)
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "featurekit client started",
		logger.Component("featurekit"),
		slog.Bool("local_evaluation", c.store != nil),
		slog.Bool("only_evaluate_locally", c.cfg.OnlyEvaluateLocally),
	)
	return nil
}

// Run starts the client and returns a function suitable for errgroup. The
// client shuts down when ctx is cancelled.
func (c *Client) Run(ctx context.Context) func() error {
	return func() error {
		if err := c.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return c.Shutdown(context.WithoutCancel(ctx))
	}
}

// Flush sends every queued event now.
func (c *Client) Flush(ctx context.Context) error {
	return c.batcher.Flush(ctx)
}

// Shutdown stops the poller and the batcher, which sends the queued events one
// last time. It is bounded by ShutdownTimeout and by ctx. Calling it again is a
// no-op.
func (c *Client) Shutdown(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ShutdownTimeout)
	defer cancel()

	futures := []*async.Future[struct{}]{async.Run(ctx, c.batcher.Shutdown)}
	if c.store != nil {
		futures = append(futures, async.Run(ctx, func(ctx context.Context) error {
			if err := c.store.Stop(ctx); err != nil && !errors.Is(err, flagstore.ErrNotStarted) {
				return err
			}
			return nil
		}))
	}

	if _, err := async.WaitAll(ctx, futures...); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "featurekit client shutdown failed",
			logger.Component("featurekit"),
			logger.Error(err),
		)
		return err
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "featurekit client stopped", logger.Component("featurekit"))
	return nil
}

// EvaluateFlag decides one flag for distinctID, locally when possible and
// remotely otherwise. A result that is not Definitive carries no answer; the
// error says why unless remote evaluation was disabled.
func (c *Client) EvaluateFlag(ctx context.Context, key, distinctID string, opts ...EvalOption) (FlagResult, error) {
	if distinctID == "" {
		return undetermined(key), ErrMissingDistinctID
	}
	o := evalOptionsFrom(opts)
	ectx := o.context(distinctID)

	local := c.evaluator.Evaluate(c.snapshot(ctx), key, ectx)
	res, err := c.resolve(ctx, local, ectx, c.onlyLocal(o))
	c.metrics.ObserveEvaluation(string(res.Source), outcomeLabel(res))
	if err != nil {
		return res, err
	}

	c.captureFlagCalled(ctx, distinctID, res, o)
	return res, nil
}

// EvaluateAllFlags decides every known flag for distinctID with at most one
// remote call. When that call fails, the locally decided flags are returned
// along with the error.
func (c *Client) EvaluateAllFlags(ctx context.Context, distinctID string, opts ...EvalOption) (map[string]FlagResult, error) {
	if distinctID == "" {
		return nil, ErrMissingDistinctID
	}
	o := evalOptionsFrom(opts)
	ectx := o.context(distinctID)

	local, inconclusive := c.evaluator.EvaluateAll(c.snapshot(ctx), ectx)
	out, err := c.resolveAll(ctx, local, inconclusive, ectx, c.onlyLocal(o))
	for _, res := range out {
		c.metrics.ObserveEvaluation(string(res.Source), outcomeLabel(res))
	}
	return out, err
}

// IsEnabled reports whether the flag is on for distinctID. An undetermined flag
// is reported as off together with the reason, if any.
func (c *Client) IsEnabled(ctx context.Context, key, distinctID string, opts ...EvalOption) (bool, error) {
	res, err := c.EvaluateFlag(ctx, key, distinctID, opts...)
	return res.Enabled, err
}

// FlagPayload returns the payload attached to the value the flag resolves to.
func (c *Client) FlagPayload(ctx context.Context, key, distinctID string, opts ...EvalOption) (json.RawMessage, error) {
	res, err := c.EvaluateFlag(ctx, key, distinctID, opts...)
	return res.Payload, err
}

// ReloadFlags fetches the flag definitions now.
func (c *Client) ReloadFlags(ctx context.Context) error {
	if c.store == nil {
		return ErrLocalEvaluationOff
	}
	return c.store.Refresh(ctx)
}

// snapshot returns the definitions to evaluate against. The first call waits for
// the initial fetch, bounded by ctx; after a failure the store answers at once until
// the next poll interval. nil means no local evaluation is possible.
func (c *Client) snapshot(ctx context.Context) *flags.Snapshot {
	if c.store == nil {
		return nil
	}
	if snap := c.store.Snapshot(); snap != nil {
		return snap
	}

	snap, err := c.store.Await(ctx)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, flagstore.ErrColdStartFailed) {
			level = slog.LevelDebug
		}
		c.logger.LogAttrs(ctx, level, "flag definitions unavailable",
			logger.Component("featurekit"),
			logger.Error(err),
		)
		return nil
	}
	return snap
}

func (c *Client) onlyLocal(o evalOptions) bool {
	return c.cfg.OnlyEvaluateLocally || o.onlyLocal
}

func evalOptionsFrom(opts []EvalOption) evalOptions {
	var o evalOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func outcomeLabel(r FlagResult) string {
	switch {
	case !r.Definitive:
		return "undetermined"
	case r.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}
