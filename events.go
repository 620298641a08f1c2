package featurekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// FlagCalledEvent is recorded the first time an actor sees a flag value.
const FlagCalledEvent = "$feature_flag_called"

// Event is an analytics event to record.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
	Groups     map[string]string // group type name to group key
	Timestamp  time.Time         // zero means now
}

// RecordEvent queues ev for delivery. It never blocks on the network; when the
// queue is full the oldest event is dropped.
func (c *Client) RecordEvent(ctx context.Context, ev Event) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if ev.DistinctID == "" {
		return ErrMissingDistinctID
	}
	if ev.Name == "" {
		return ErrMissingEventName
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = c.clock.Now()
	}

	props := make(map[string]any, len(ev.Properties)+3)
	maps.Copy(props, ev.Properties)
	props["$lib"] = libName
	props["$lib_version"] = Version
	if len(ev.Groups) > 0 {
		props["$groups"] = maps.Clone(ev.Groups)
	}

	err = c.batcher.Enqueue(transport.Event{
		UUID:       id.String(),
		Event:      ev.Name,
		DistinctID: ev.DistinctID,
		Properties: props,
		Timestamp:  ts.UTC(),
	})
	if errors.Is(err, batch.ErrClosed) {
		return ErrClientClosed
	}
	if err != nil {
		return err
	}

	c.metrics.ObserveEnqueued(1)
	c.logger.LogAttrs(ctx, slog.LevelDebug, "event queued",
		logger.Component("featurekit"),
		logger.Event(ev.Name),
		logger.DistinctID(ev.DistinctID),
	)
	return nil
}

// captureFlagCalled records FlagCalledEvent once per actor, flag and value while
// the combination stays in the sent events cache. A combination whose event could
// not be queued is forgotten so a later evaluation reports it.
func (c *Client) captureFlagCalled(ctx context.Context, distinctID string, res FlagResult, o evalOptions) {
	if !c.cfg.SendFeatureFlagEvents || o.skipEvents || !res.Definitive {
		return
	}
	response := responseString(res)
	if !c.sent.ShouldCapture(distinctID, res.Key, response) {
		return
	}

	props := map[string]any{
		"$feature_flag":          res.Key,
		"$feature_flag_response": res.Value(),
		"$feature/" + res.Key:    res.Value(),
		"locally_evaluated":      res.Source == SourceLocal,
	}
	if len(res.Payload) > 0 {
		props["$feature_flag_payload"] = res.Payload
	}

	err := c.RecordEvent(ctx, Event{
		Name:       FlagCalledEvent,
		DistinctID: distinctID,
		Properties: props,
		Groups:     o.groupKeys(),
	})
	if err != nil {
		c.sent.Forget(distinctID, res.Key, response)
		c.logger.LogAttrs(ctx, slog.LevelDebug, "flag called event not recorded",
			logger.Component("featurekit"),
			logger.FlagKey(res.Key),
			logger.Error(err),
		)
	}
}

func responseString(res FlagResult) string {
	if res.Enabled && res.Variant != "" {
		return res.Variant
	}
	return strconv.FormatBool(res.Enabled)
}
