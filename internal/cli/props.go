package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrymomot/featurekit/pkg/flags"
)

// ErrInvalidPair is returned for a property or group argument that is not key=value.
var ErrInvalidPair = errors.New("expected key=value")

// actor is everything needed to evaluate flags for one caller.
type actor struct {
	person     []string // k=v
	groups     []string // type=key
	groupProps []string // type.k=v
}

func (a actor) context(distinctID string) (flags.Context, error) {
	person, err := parseProperties(a.person)
	if err != nil {
		return flags.Context{}, fmt.Errorf("person property: %w", err)
	}
	groups, err := parseGroups(a.groups, a.groupProps)
	if err != nil {
		return flags.Context{}, err
	}
	return flags.Context{
		DistinctID:       distinctID,
		PersonProperties: person,
		Groups:           groups,
	}, nil
}

func splitPair(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPair, pair)
	}
	return key, value, nil
}

func parseProperties(pairs []string) (flags.Properties, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(flags.Properties, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		props[key] = parseValue(value)
	}
	return props, nil
}

func parseGroups(groups, groupProps []string) (map[string]flags.Group, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	out := make(map[string]flags.Group, len(groups))
	for _, pair := range groups {
		typeName, key, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
		out[typeName] = flags.Group{Key: key}
	}

	for _, pair := range groupProps {
		path, value, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("group property: %w", err)
		}
		typeName, key, ok := strings.Cut(path, ".")
		if !ok || key == "" {
			return nil, fmt.Errorf("group property: %w: %q is not type.key", ErrInvalidPair, path)
		}
		g, ok := out[typeName]
		if !ok {
			return nil, fmt.Errorf("group property: unknown group type %q", typeName)
		}
		if g.Properties == nil {
			g.Properties = flags.Properties{}
		}
		g.Properties[key] = parseValue(value)
		out[typeName] = g
	}
	return out, nil
}

// parseValue keeps booleans and numbers typed so numeric operators compare numerically.
func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
