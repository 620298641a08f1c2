package featurekit

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/transport"
)

func TestCaptureFlagCalled_ForgetsUnrecordedEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.ProjectAPIKey = "phc_test"
	c, err := New(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSender(func(context.Context, []transport.Event) error { return nil }),
	)
	require.NoError(t, err)
	require.NoError(t, c.Shutdown(ctx))

	res := FlagResult{Key: "beta", Enabled: true, Definitive: true, Source: SourceLocal}
	c.captureFlagCalled(ctx, "user-1", res, evalOptions{})

	assert.Equal(t, 0, c.sent.Len(), "event could not be queued, combination is not remembered")
	assert.True(t, c.sent.ShouldCapture("user-1", "beta", "true"))
}
