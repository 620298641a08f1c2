package cli

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/dmitrymomot/featurekit/pkg/filesource"
	"github.com/dmitrymomot/featurekit/pkg/flags"
)

// FlagOutput is the JSON shape of one evaluated flag.
type FlagOutput struct {
	Key     string          `json:"key"`
	Value   any             `json:"value"`
	Outcome string          `json:"outcome"`
	Variant string          `json:"variant,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Reason  flags.Reason    `json:"reason,omitempty"`
}

func newFlagOutput(r flags.Result) FlagOutput {
	return FlagOutput{
		Key:     r.Key,
		Value:   r.Value(),
		Outcome: r.Outcome.String(),
		Variant: r.Variant,
		Payload: r.Payload,
		Reason:  r.Reason,
	}
}

// sortedOutputs orders results by key for stable output.
func sortedOutputs(results map[string]flags.Result) []FlagOutput {
	out := make([]FlagOutput, 0, len(results))
	for _, r := range results {
		out = append(out, newFlagOutput(r))
	}
	slices.SortFunc(out, func(a, b FlagOutput) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// loadSnapshot reads a definitions file once.
func loadSnapshot(ctx context.Context, path string) (*flags.Snapshot, error) {
	src, err := filesource.New(path)
	if err != nil {
		return nil, err
	}
	res, err := src.Fetch(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return res.Snapshot, nil
}
