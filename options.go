package featurekit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// Remote evaluates flags on the remote service. *transport.Client implements it.
type Remote interface {
	Decide(ctx context.Context, req transport.DecideRequest) (*transport.DecideResponse, error)
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	fetcher   flagstore.Fetcher
	remote    Remote
	sender    batch.Sender[transport.Event]
	persister flagstore.Persister
	clock     batch.Clock
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records client activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithFetcher replaces the remote definitions endpoint, for example with a
// filesource.Source. It enables local evaluation without a personal API key.
func WithFetcher(f flagstore.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithRemote replaces the remote decide endpoint.
func WithRemote(r Remote) Option {
	return func(o *options) { o.remote = r }
}

// WithSender replaces the batch endpoint used to deliver events.
func WithSender(s batch.Sender[transport.Event]) Option {
	return func(o *options) { o.sender = s }
}

// WithPersister stores definition snapshots, for example in Redis, and uses them
// when the first fetch fails.
func WithPersister(p flagstore.Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithClock sets the time source for batching, dedupe expiry, relative date
// operators and event timestamps.
func WithClock(c batch.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// EvalOption describes the actor of one evaluation.
type EvalOption func(*evalOptions)

type evalOptions struct {
	person     flags.Properties
	groups     map[string]flags.Group
	onlyLocal  bool
	skipEvents bool
}

// WithPersonProperties sets the person properties used by conditions.
func WithPersonProperties(props flags.Properties) EvalOption {
	return func(o *evalOptions) { o.person = props }
}

// WithGroup adds the group of type typeName the actor belongs to.
func WithGroup(typeName, key string, props flags.Properties) EvalOption {
	return func(o *evalOptions) {
		if o.groups == nil {
			o.groups = make(map[string]flags.Group)
		}
		o.groups[typeName] = flags.Group{Key: key, Properties: props}
	}
}

// OnlyLocally never calls the remote service for this evaluation, even when the
// client allows it.
func OnlyLocally() EvalOption {
	return func(o *evalOptions) { o.onlyLocal = true }
}

// WithoutFlagEvents skips the $feature_flag_called event for this evaluation.
func WithoutFlagEvents() EvalOption {
	return func(o *evalOptions) { o.skipEvents = true }
}

func (o evalOptions) context(distinctID string) flags.Context {
	return flags.Context{
		DistinctID:       distinctID,
		PersonProperties: o.person,
		Groups:           o.groups,
	}
}

func (o evalOptions) groupKeys() map[string]string {
	if len(o.groups) == 0 {
		return nil
	}
	keys := make(map[string]string, len(o.groups))
	for name, g := range o.groups {
		keys[name] = g.Key
	}
	return keys
}
