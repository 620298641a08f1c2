package cli_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/internal/cli"
	"github.com/dmitrymomot/featurekit/pkg/filesource"
	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
)

type staticSource struct{ snap *flags.Snapshot }

func (s staticSource) Snapshot() *flags.Snapshot { return s.snap }

func newRouter(t *testing.T, snap *flags.Snapshot) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return cli.NewRouter(staticSource{snap: snap}, flags.NewEvaluator(flags.WithLogger(log)), log, metrics.New("test"), nil)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, cli.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(context.Background(), http.MethodGet, target, nil))
	var body cli.Response
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRouter(t *testing.T) {
	t.Parallel()

	snap, err := filesource.Decode([]byte(definitionsYAML), filesource.FormatYAML)
	require.NoError(t, err)
	h := newRouter(t, snap)

	tests := []struct {
		name    string
		target  string
		status  int
		code    string
		outcome string
	}{
		{name: "match", target: "/flags/beta?distinct_id=user-1", status: http.StatusOK, outcome: "match"},
		{name: "person property", target: "/flags/pro-only?distinct_id=user-1&person.plan=free", status: http.StatusOK, outcome: "no_match"},
		{name: "missing property", target: "/flags/pro-only?distinct_id=user-1", status: http.StatusOK, outcome: "inconclusive"},
		{
			name:    "group property",
			target:  "/flags/big-company?distinct_id=user-1&group.company=acme&group_prop.company.size=40",
			status:  http.StatusOK,
			outcome: "match",
		},
		{name: "unknown flag", target: "/flags/nope?distinct_id=user-1", status: http.StatusNotFound, code: "flag_not_found"},
		{name: "missing distinct id", target: "/flags/beta", status: http.StatusBadRequest, code: "missing_distinct_id"},
		{name: "bad group property", target: "/flags/beta?distinct_id=u&group_prop.company.size=1", status: http.StatusBadRequest, code: "invalid_actor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, body := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.code != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.code, body.Error.Code)
				return
			}
			data, ok := body.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.outcome, data["outcome"])
		})
	}

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()
		rec, body := get(t, h, "/flags?distinct_id=user-1&person.plan=pro")
		assert.Equal(t, http.StatusOK, rec.Code)
		list, ok := body.Data.([]any)
		require.True(t, ok)
		assert.Len(t, list, 3)
	})

	t.Run("probes", func(t *testing.T) {
		t.Parallel()
		rec, _ := get(t, h, "/livez")
		assert.Equal(t, http.StatusOK, rec.Code)
		rec, _ = get(t, h, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_NotReady(t *testing.T) {
	t.Parallel()
	h := newRouter(t, nil)

	rec, body := get(t, h, "/flags/beta?distinct_id=user-1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_ready", body.Error.Code)

	rec, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
