package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/flags"
)

// Event is one analytics event as sent to the batch endpoint.
type Event struct {
	UUID       string         `json:"uuid"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Type       string         `json:"type,omitempty"`
}

type batchRequest struct {
	APIKey string    `json:"api_key"`
	Batch  []Event   `json:"batch"`
	SentAt time.Time `json:"sent_at"`
}

// DecideRequest asks the remote service to evaluate every flag for one actor.
type DecideRequest struct {
	DistinctID       string                      `json:"distinct_id"`
	Groups           map[string]string           `json:"groups,omitempty"`
	PersonProperties flags.Properties            `json:"person_properties,omitempty"`
	GroupProperties  map[string]flags.Properties `json:"group_properties,omitempty"`
}

// DecideRequestFromContext builds a request from an evaluation context.
func DecideRequestFromContext(ectx flags.Context) DecideRequest {
	req := DecideRequest{
		DistinctID:       ectx.DistinctID,
		PersonProperties: ectx.PersonProperties,
	}
	if len(ectx.Groups) == 0 {
		return req
	}
	req.Groups = make(map[string]string, len(ectx.Groups))
	req.GroupProperties = make(map[string]flags.Properties, len(ectx.Groups))
	for name, g := range ectx.Groups {
		req.Groups[name] = g.Key
		if len(g.Properties) > 0 {
			req.GroupProperties[name] = g.Properties
		}
	}
	return req
}

type decideBody struct {
	APIKey string `json:"api_key"`
	DecideRequest
}

// DecideFlag is a remotely computed flag value: a boolean, or a variant key which
// implies the flag is enabled.
type DecideFlag struct {
	Enabled bool
	Variant string
}

// UnmarshalJSON accepts true, false or a variant string.
func (f *DecideFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = DecideFlag{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = DecideFlag{Enabled: s != "", Variant: s}
		return nil
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decide flag: %w", err)
		}
		*f = DecideFlag{Enabled: b}
		return nil
	}
}

// MarshalJSON writes the variant when set, otherwise the boolean.
func (f DecideFlag) MarshalJSON() ([]byte, error) {
	if f.Variant != "" {
		return json.Marshal(f.Variant)
	}
	return json.Marshal(f.Enabled)
}

// DecideResponse is the remote evaluation of all flags for one actor.
type DecideResponse struct {
	FeatureFlags              map[string]DecideFlag      `json:"featureFlags"`
	FeatureFlagPayloads       map[string]json.RawMessage `json:"featureFlagPayloads"`
	ErrorsWhileComputingFlags bool                       `json:"errorsWhileComputingFlags"`
	QuotaLimited              []string                   `json:"quotaLimited,omitempty"`
}

// Payload returns the payload of key. Payloads that arrive JSON-encoded inside a
// string are unwrapped.
func (r *DecideResponse) Payload(key string) json.RawMessage {
	if r == nil {
		return nil
	}
	raw, ok := r.FeatureFlagPayloads[key]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil && json.Valid([]byte(inner)) {
		return json.RawMessage(inner)
	}
	return raw
}

func (r *DecideResponse) flagsQuotaLimited() bool {
	for _, name := range r.QuotaLimited {
		if name == "feature_flags" {
			return true
		}
	}
	return false
}
