package featurekit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// Source tells where a FlagResult was decided.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceNone   Source = "none" // undetermined
)

// FlagResult is the answer for one flag. When Definitive is false the flag could
// not be decided and Enabled carries no information.
type FlagResult struct {
	Key        string
	Enabled    bool
	Variant    string
	Payload    json.RawMessage
	Definitive bool
	Source     Source
}

// Value is the variant for multivariate flags, a bool otherwise, or nil when
// the result is not definitive.
func (r FlagResult) Value() any {
	if !r.Definitive {
		return nil
	}
	if r.Enabled && r.Variant != "" {
		return r.Variant
	}
	return r.Enabled
}

func undetermined(key string) FlagResult {
	return FlagResult{Key: key, Source: SourceNone}
}

func fromLocal(r flags.Result) FlagResult {
	return FlagResult{
		Key:        r.Key,
		Enabled:    r.Enabled(),
		Variant:    r.Variant,
		Payload:    r.Payload,
		Definitive: r.Outcome != flags.Inconclusive,
		Source:     SourceLocal,
	}
}

// fromRemote reads key out of a decide response. A flag the remote service did not
// return is disabled, unless the service reported errors while computing flags.
func fromRemote(key string, resp *transport.DecideResponse) (FlagResult, error) {
	f, ok := resp.FeatureFlags[key]
	if !ok {
		if resp.ErrorsWhileComputingFlags {
			return undetermined(key), ErrRemoteIncomplete
		}
		return FlagResult{Key: key, Definitive: true, Source: SourceRemote}, nil
	}

	res := FlagResult{
		Key:        key,
		Enabled:    f.Enabled,
		Variant:    f.Variant,
		Definitive: true,
		Source:     SourceRemote,
	}
	if f.Enabled {
		res.Payload = resp.Payload(key)
	}
	return res, nil
}

// resolve turns a local result into the final answer, asking the remote service
// when the local one is inconclusive.
func (c *Client) resolve(ctx context.Context, local flags.Result, ectx flags.Context, onlyLocal bool) (FlagResult, error) {
	key := local.Key
	if local.Outcome != flags.Inconclusive {
		return fromLocal(local), nil
	}

	if onlyLocal {
		c.logger.LogAttrs(ctx, slog.LevelDebug, "flag undetermined locally, remote evaluation disabled",
			logger.Component("featurekit"),
			logger.FlagKey(key),
			logger.DistinctID(ectx.DistinctID),
		)
		return undetermined(key), nil
	}

	resp, err := c.decide(ctx, ectx)
	if err != nil {
		return undetermined(key), err
	}
	return fromRemote(key, resp)
}

// resolveAll merges local results with one remote call when any of them is
// inconclusive or local evaluation is unavailable.
func (c *Client) resolveAll(ctx context.Context, local map[string]flags.Result, needRemote bool, ectx flags.Context, onlyLocal bool) (map[string]FlagResult, error) {
	out := make(map[string]FlagResult, len(local))
	var pending []string
	for key, r := range local {
		if r.Outcome == flags.Inconclusive {
			pending = append(pending, key)
			out[key] = undetermined(key)
			continue
		}
		out[key] = fromLocal(r)
	}

	if !needRemote || onlyLocal {
		return out, nil
	}

	resp, err := c.decide(ctx, ectx)
	if err != nil {
		return out, err
	}

	for key := range resp.FeatureFlags {
		res, _ := fromRemote(key, resp)
		out[key] = res
	}

	var missing int
	for _, key := range pending {
		if _, ok := resp.FeatureFlags[key]; ok {
			continue
		}
		res, err := fromRemote(key, resp)
		if err != nil {
			missing++
		}
		out[key] = res
	}
	if missing > 0 {
		return out, fmt.Errorf("%w: %d flags undetermined", ErrRemoteIncomplete, missing)
	}
	return out, nil
}

func (c *Client) decide(ctx context.Context, ectx flags.Context) (*transport.DecideResponse, error) {
	resp, err := c.remote.Decide(ctx, transport.DecideRequestFromContext(ectx))
	c.metrics.ObserveRemoteFallback(err)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "remote flag evaluation failed",
			logger.Component("featurekit"),
			logger.DistinctID(ectx.DistinctID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrRemoteEvaluation, err)
	}
	return resp, nil
}
