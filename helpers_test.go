package featurekit_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit"
	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

const definitions = `{
  "flags": [
    {"id": 1, "key": "always-on", "active": true,
     "filters": {"groups": [{"properties": [], "rollout_percentage": 100}],
                 "payloads": {"true": {"theme": "dark"}}}},
    {"id": 2, "key": "pro-only", "active": true,
     "filters": {"groups": [{"properties": [{"key": "plan", "type": "person", "operator": "exact", "value": ["pro"]}],
                             "rollout_percentage": 100}]}},
    {"id": 3, "key": "off", "active": false,
     "filters": {"groups": [{"properties": [], "rollout_percentage": 100}]}}
  ],
  "group_type_mapping": {"0": "company"}
}`

// MockRemote is a mock implementation of featurekit.Remote
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Decide(ctx context.Context, req transport.DecideRequest) (*transport.DecideResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transport.DecideResponse), args.Error(1)
}

type neverTicker struct{ ch chan time.Time }

func (t neverTicker) C() <-chan time.Time { return t.ch }
func (t neverTicker) Stop()               {}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time                        { return c.now }
func (c fixedClock) NewTicker(time.Duration) batch.Ticker { return neverTicker{ch: make(chan time.Time)} }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// sink collects delivered events.
type sink struct {
	mu     sync.Mutex
	events []transport.Event
	err    error
}

func (s *sink) send(_ context.Context, events []transport.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *sink) named(name string) []transport.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transport.Event
	for _, ev := range s.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticFetcher(t *testing.T) flagstore.Fetcher {
	t.Helper()
	snap, err := flags.DecodeSnapshot([]byte(definitions))
	require.NoError(t, err)
	return flagstore.FetcherFunc(func(context.Context, string) (flagstore.FetchResult, error) {
		return flagstore.FetchResult{Snapshot: snap, ETag: "v1"}, nil
	})
}

func testConfig() featurekit.Config {
	cfg := featurekit.DefaultConfig()
	cfg.ProjectAPIKey = "phc_test"
	return cfg
}

type setup struct {
	client *featurekit.Client
	remote *MockRemote
	sink   *sink
}

func newTestClient(t *testing.T, cfg featurekit.Config, opts ...featurekit.Option) setup {
	t.Helper()
	s := setup{remote: &MockRemote{}, sink: &sink{}}
	base := []featurekit.Option{
		featurekit.WithLogger(quietLogger()),
		featurekit.WithRemote(s.remote),
		featurekit.WithSender(s.sink.send),
		featurekit.WithClock(fixedClock{now: testNow}),
	}
	client, err := featurekit.New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	s.client = client
	return s
}
