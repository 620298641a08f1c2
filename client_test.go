package featurekit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires project key", func(t *testing.T) {
		t.Parallel()
		_, err := featurekit.New(featurekit.DefaultConfig())
		assert.ErrorIs(t, err, featurekit.ErrMissingProjectKey)
	})

	t.Run("rejects invalid host", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Host = "ftp://example.com"
		_, err := featurekit.New(cfg, featurekit.WithLogger(quietLogger()))
		assert.ErrorIs(t, err, transport.ErrInvalidHost)
	})

	t.Run("without definitions source local evaluation is off", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig())
		assert.ErrorIs(t, s.client.ReloadFlags(context.Background()), featurekit.ErrLocalEvaluationOff)
	})
}

func TestClient_EvaluateFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("definitive local result skips remote", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))

		res, err := s.client.EvaluateFlag(ctx, "always-on", "user-1")
		require.NoError(t, err)
		assert.True(t, res.Definitive)
		assert.True(t, res.Enabled)
		assert.Equal(t, featurekit.SourceLocal, res.Source)
		assert.JSONEq(t, `{"theme":"dark"}`, string(res.Payload))
		assert.Equal(t, true, res.Value())

		res, err = s.client.EvaluateFlag(ctx, "off", "user-1")
		require.NoError(t, err)
		assert.True(t, res.Definitive)
		assert.False(t, res.Enabled)

		s.remote.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})

	t.Run("inconclusive local result falls back to remote", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))
		s.remote.On("Decide", mock.Anything, mock.MatchedBy(func(req transport.DecideRequest) bool {
			return req.DistinctID == "user-1" && req.Groups["company"] == "acme"
		})).Return(&transport.DecideResponse{
			FeatureFlags: map[string]transport.DecideFlag{"pro-only": {Enabled: true, Variant: "gold"}},
			FeatureFlagPayloads: map[string]json.RawMessage{
				"pro-only": json.RawMessage(`"{\"seats\":5}"`),
			},
		}, nil).Once()

		res, err := s.client.EvaluateFlag(ctx, "pro-only", "user-1",
			featurekit.WithGroup("company", "acme", nil))
		require.NoError(t, err)
		assert.True(t, res.Definitive)
		assert.True(t, res.Enabled)
		assert.Equal(t, "gold", res.Variant)
		assert.Equal(t, featurekit.SourceRemote, res.Source)
		assert.JSONEq(t, `{"seats":5}`, string(res.Payload))
		assert.Equal(t, "gold", res.Value())
		s.remote.AssertExpectations(t)
	})

	t.Run("person properties decide locally", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))

		res, err := s.client.EvaluateFlag(ctx, "pro-only", "user-1",
			featurekit.WithPersonProperties(flags.Properties{"plan": "free"}))
		require.NoError(t, err)
		assert.True(t, res.Definitive)
		assert.False(t, res.Enabled)
		assert.Equal(t, featurekit.SourceLocal, res.Source)
		s.remote.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})

	t.Run("flag missing from remote answer is disabled", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig())
		s.remote.On("Decide", mock.Anything, mock.Anything).
			Return(&transport.DecideResponse{FeatureFlags: map[string]transport.DecideFlag{}}, nil)

		res, err := s.client.EvaluateFlag(ctx, "unknown", "user-1")
		require.NoError(t, err)
		assert.True(t, res.Definitive)
		assert.False(t, res.Enabled)
		assert.Equal(t, featurekit.SourceRemote, res.Source)
	})

	t.Run("flag missing after remote errors is undetermined", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig())
		s.remote.On("Decide", mock.Anything, mock.Anything).Return(&transport.DecideResponse{
			FeatureFlags:              map[string]transport.DecideFlag{},
			ErrorsWhileComputingFlags: true,
		}, nil)

		res, err := s.client.EvaluateFlag(ctx, "unknown", "user-1")
		assert.ErrorIs(t, err, featurekit.ErrRemoteIncomplete)
		assert.False(t, res.Definitive)
		assert.Nil(t, res.Value())
	})

	t.Run("remote failure is never reported as disabled", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))
		s.remote.On("Decide", mock.Anything, mock.Anything).Return(nil, transport.ErrCircuitOpen)

		res, err := s.client.EvaluateFlag(ctx, "pro-only", "user-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, featurekit.ErrRemoteEvaluation)
		assert.ErrorIs(t, err, transport.ErrCircuitOpen)
		assert.False(t, res.Definitive)
		assert.Equal(t, featurekit.SourceNone, res.Source)

		enabled, err := s.client.IsEnabled(ctx, "pro-only", "user-1")
		assert.Error(t, err)
		assert.False(t, enabled)
	})

	t.Run("local only per call", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))

		res, err := s.client.EvaluateFlag(ctx, "pro-only", "user-1", featurekit.OnlyLocally())
		require.NoError(t, err)
		assert.False(t, res.Definitive)
		assert.Equal(t, featurekit.SourceNone, res.Source)
		s.remote.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})

	t.Run("local only from config", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.OnlyEvaluateLocally = true
		s := newTestClient(t, cfg)

		res, err := s.client.EvaluateFlag(ctx, "always-on", "user-1")
		require.NoError(t, err)
		assert.False(t, res.Definitive)
		s.remote.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})

	t.Run("failed definitions fetch falls back to remote", func(t *testing.T) {
		t.Parallel()
		var fetches atomic.Int32
		fetcher := flagstore.FetcherFunc(func(context.Context, string) (flagstore.FetchResult, error) {
			fetches.Add(1)
			return flagstore.FetchResult{}, transport.ErrUnauthorized
		})
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(fetcher))
		s.remote.On("Decide", mock.Anything, mock.Anything).Return(&transport.DecideResponse{
			FeatureFlags: map[string]transport.DecideFlag{"always-on": {Enabled: true}},
		}, nil)

		for range 5 {
			res, err := s.client.EvaluateFlag(ctx, "always-on", "user-1")
			require.NoError(t, err)
			assert.True(t, res.Enabled)
			assert.Equal(t, featurekit.SourceRemote, res.Source)
		}
		assert.Equal(t, int32(1), fetches.Load(), "failed cold start is not repeated on every evaluation")
	})

	t.Run("requires distinct id", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig())
		_, err := s.client.EvaluateFlag(ctx, "always-on", "")
		assert.ErrorIs(t, err, featurekit.ErrMissingDistinctID)
	})
}

func TestClient_ColdStartSharesFetch(t *testing.T) {
	t.Parallel()

	snap, err := flags.DecodeSnapshot([]byte(definitions))
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := flagstore.FetcherFunc(func(context.Context, string) (flagstore.FetchResult, error) {
		calls.Add(1)
		<-release
		return flagstore.FetchResult{Snapshot: snap}, nil
	})
	s := newTestClient(t, testConfig(), featurekit.WithFetcher(fetcher))

	const callers = 8
	results := make(chan featurekit.FlagResult, callers)
	for range callers {
		go func() {
			res, _ := s.client.EvaluateFlag(context.Background(), "always-on", "user-1")
			results <- res
		}()
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)

	for range callers {
		res := <-results
		assert.True(t, res.Enabled)
		assert.Equal(t, featurekit.SourceLocal, res.Source)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_EvaluateAllFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("remote fills inconclusive flags", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))
		s.remote.On("Decide", mock.Anything, mock.Anything).Return(&transport.DecideResponse{
			FeatureFlags: map[string]transport.DecideFlag{
				"pro-only":    {Enabled: true},
				"remote-only": {Enabled: true, Variant: "b"},
			},
		}, nil).Once()

		all, err := s.client.EvaluateAllFlags(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, featurekit.SourceLocal, all["always-on"].Source)
		assert.True(t, all["always-on"].Enabled)
		assert.Equal(t, featurekit.SourceRemote, all["pro-only"].Source)
		assert.True(t, all["pro-only"].Enabled)
		assert.Equal(t, "b", all["remote-only"].Variant)
		s.remote.AssertExpectations(t)
	})

	t.Run("all local needs no remote call", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))

		all, err := s.client.EvaluateAllFlags(ctx, "user-1",
			featurekit.WithPersonProperties(flags.Properties{"plan": "pro"}))
		require.NoError(t, err)
		require.Len(t, all, 3)
		for key, res := range all {
			assert.True(t, res.Definitive, key)
		}
		s.remote.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})

	t.Run("remote failure keeps local answers", func(t *testing.T) {
		t.Parallel()
		s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))
		s.remote.On("Decide", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		all, err := s.client.EvaluateAllFlags(ctx, "user-1")
		assert.ErrorIs(t, err, featurekit.ErrRemoteEvaluation)
		assert.True(t, all["always-on"].Definitive)
		assert.True(t, all["always-on"].Enabled)
		assert.False(t, all["pro-only"].Definitive)
	})
}

func TestClient_FlagPayload(t *testing.T) {
	t.Parallel()
	s := newTestClient(t, testConfig(), featurekit.WithFetcher(staticFetcher(t)))

	payload, err := s.client.FlagPayload(context.Background(), "always-on", "user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(payload))
}

func TestClient_ReloadFlags(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	snap, err := flags.DecodeSnapshot([]byte(definitions))
	require.NoError(t, err)
	fetcher := flagstore.FetcherFunc(func(context.Context, string) (flagstore.FetchResult, error) {
		calls.Add(1)
		return flagstore.FetchResult{Snapshot: snap}, nil
	})
	s := newTestClient(t, testConfig(), featurekit.WithFetcher(fetcher))

	require.NoError(t, s.client.ReloadFlags(context.Background()))
	require.NoError(t, s.client.ReloadFlags(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}
