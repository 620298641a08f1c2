package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/httpserver"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
)

// ErrNoDefinitions is reported by the readiness probe before the first load.
var ErrNoDefinitions = errors.New("flag definitions not loaded")

// Query parameter prefixes describing the actor.
const (
	personParam    = "person."
	groupParam     = "group."
	groupPropParam = "group_prop."
)

// SnapshotSource returns the current definitions, nil when none are loaded.
type SnapshotSource interface {
	Snapshot() *flags.Snapshot
}

// Response is the JSON envelope of every flag endpoint.
type Response struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type flagsHandler struct {
	source  SnapshotSource
	eval    *flags.Evaluator
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewRouter serves flag evaluations from source:
//
//	GET /flags/{key}?distinct_id=user-1&person.plan=pro&group.company=acme&group_prop.company.size=12
//	GET /flags?distinct_id=user-1
//	GET /livez, GET /readyz, GET /metrics
func NewRouter(source SnapshotSource, eval *flags.Evaluator, log *slog.Logger, m *metrics.Metrics, reg prometheus.Gatherer, checks ...func(context.Context) error) http.Handler {
	h := &flagsHandler{source: source, eval: eval, log: log, metrics: m}

	r := chi.NewRouter()
	r.Use(httpserver.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/livez", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, append(checks, h.ready)...))
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Get("/flags", h.all)
	r.Get("/flags/{key}", h.one)
	return r
}

func (h *flagsHandler) ready(context.Context) error {
	if h.source.Snapshot() == nil {
		return ErrNoDefinitions
	}
	return nil
}

func (h *flagsHandler) one(w http.ResponseWriter, r *http.Request) {
	snap, ectx, ok := h.prepare(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if _, found := snap.Flag(key); !found {
		h.writeError(w, r, http.StatusNotFound, "flag_not_found", "unknown flag "+key)
		return
	}

	res := h.eval.Evaluate(snap, key, ectx)
	h.metrics.ObserveEvaluation("local", res.Outcome.String())
	h.write(w, r, http.StatusOK, Response{Data: newFlagOutput(res)})
}

func (h *flagsHandler) all(w http.ResponseWriter, r *http.Request) {
	snap, ectx, ok := h.prepare(w, r)
	if !ok {
		return
	}

	results, _ := h.eval.EvaluateAll(snap, ectx)
	for _, res := range results {
		h.metrics.ObserveEvaluation("local", res.Outcome.String())
	}
	h.write(w, r, http.StatusOK, Response{Data: sortedOutputs(results)})
}

// prepare validates the request and writes the error response when it fails.
func (h *flagsHandler) prepare(w http.ResponseWriter, r *http.Request) (*flags.Snapshot, flags.Context, bool) {
	snap := h.source.Snapshot()
	if snap == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "not_ready", ErrNoDefinitions.Error())
		return nil, flags.Context{}, false
	}

	query := r.URL.Query()
	distinctID := strings.TrimSpace(query.Get("distinct_id"))
	if distinctID == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_distinct_id", "distinct_id is required")
		return nil, flags.Context{}, false
	}

	ectx, err := actorFromQuery(query).context(distinctID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_actor", err.Error())
		return nil, flags.Context{}, false
	}
	return snap, ectx, true
}

func actorFromQuery(query url.Values) actor {
	var a actor
	for name, values := range query {
		for _, v := range values {
			switch {
			case strings.HasPrefix(name, personParam):
				a.person = append(a.person, strings.TrimPrefix(name, personParam)+"="+v)
			case strings.HasPrefix(name, groupPropParam):
				a.groupProps = append(a.groupProps, strings.TrimPrefix(name, groupPropParam)+"="+v)
			case strings.HasPrefix(name, groupParam):
				a.groups = append(a.groups, strings.TrimPrefix(name, groupParam)+"="+v)
			}
		}
	}
	return a
}

func (h *flagsHandler) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	h.log.LogAttrs(r.Context(), slog.LevelDebug, "flag request rejected",
		logger.Component("flagcheck"),
		logger.StatusCode(status),
		slog.String("code", code),
	)
	h.write(w, r, status, Response{Error: &ErrorDetail{Code: code, Message: msg}})
}

func (h *flagsHandler) write(w http.ResponseWriter, r *http.Request, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.LogAttrs(r.Context(), slog.LevelWarn, "write response failed",
			logger.Component("flagcheck"),
			logger.Error(err),
		)
	}
}
