package flags

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Definition is a feature flag as delivered by the local-evaluation endpoint.
// Definitions are immutable once part of a Snapshot.
type Definition struct {
	ID                         int64   `json:"id"`
	Key                        string  `json:"key"`
	Name                       string  `json:"name,omitempty"`
	Active                     bool    `json:"active"`
	EnsureExperienceContinuity bool    `json:"ensure_experience_continuity"`
	Filters                    Filters `json:"filters"`
}

// Filters holds the targeting rules of a flag.
type Filters struct {
	AggregationGroupTypeIndex *int                       `json:"aggregation_group_type_index,omitempty"`
	Groups                    []ConditionGroup           `json:"groups"`
	Multivariate              *Multivariate              `json:"multivariate,omitempty"`
	Payloads                  map[string]json.RawMessage `json:"payloads,omitempty"`
}

// ConditionGroup is a set of conditions combined with AND, gated by a rollout percentage.
// A nil RolloutPercentage means 100.
type ConditionGroup struct {
	Properties        []PropertyCondition `json:"properties"`
	RolloutPercentage *float64            `json:"rollout_percentage"`
	Variant           *string             `json:"variant,omitempty"`
}

// VariantOverride returns the variant forced by this group, if any.
func (g ConditionGroup) VariantOverride() string {
	if g.Variant == nil {
		return ""
	}
	return *g.Variant
}

// Rollout returns the effective rollout percentage of the group.
func (g ConditionGroup) Rollout() float64 {
	if g.RolloutPercentage == nil {
		return 100
	}
	return *g.RolloutPercentage
}

// Multivariate lists the variants of a multivariate flag in declaration order.
type Multivariate struct {
	Variants []Variant `json:"variants"`
}

// Variant is one outcome of a multivariate flag.
type Variant struct {
	Key               string  `json:"key"`
	Name              string  `json:"name,omitempty"`
	RolloutPercentage float64 `json:"rollout_percentage"`
}

// PropertyType tells where a condition reads its value from.
type PropertyType string

const (
	PropertyTypePerson PropertyType = "person"
	PropertyTypeGroup  PropertyType = "group"
	PropertyTypeCohort PropertyType = "cohort"
)

// Operator is a comparison applied by a property condition.
type Operator string

const (
	OpExact          Operator = "exact"
	OpIsNot          Operator = "is_not"
	OpIsSet          Operator = "is_set"
	OpIsNotSet       Operator = "is_not_set"
	OpIContains      Operator = "icontains"
	OpNotIContains   Operator = "not_icontains"
	OpRegex          Operator = "regex"
	OpNotRegex       Operator = "not_regex"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpIsDateBefore   Operator = "is_date_before"
	OpIsDateAfter    Operator = "is_date_after"
)

// PropertyCondition is a single typed comparison.
// For cohort conditions Value holds the cohort id.
type PropertyCondition struct {
	Key            string       `json:"key"`
	Type           PropertyType `json:"type,omitempty"`
	Operator       Operator     `json:"operator,omitempty"`
	Value          Value        `json:"value"`
	GroupTypeIndex *int         `json:"group_type_index,omitempty"`
	Negation       bool         `json:"negation,omitempty"`
}

// Logic combines the members of a PropertyGroup.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// PropertyGroup is a node of a cohort filter tree.
type PropertyGroup struct {
	Type   Logic          `json:"type"`
	Values []PropertyNode `json:"values"`
}

// PropertyNode is either a nested PropertyGroup or a leaf PropertyCondition.
type PropertyNode struct {
	Group     *PropertyGroup
	Condition *PropertyCondition
}

// MarshalJSON implements json.Marshaler.
func (n PropertyNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Condition != nil:
		return json.Marshal(n.Condition)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// Objects carrying a "values" member are nested groups, everything else is a condition.
func (n *PropertyNode) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidPropertyNode)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPropertyNode, err)
	}

	if _, ok := probe["values"]; ok {
		var g PropertyGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*n = PropertyNode{Group: &g}
		return nil
	}

	var c PropertyCondition
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*n = PropertyNode{Condition: &c}
	return nil
}

// Properties maps property names to caller-supplied values.
type Properties map[string]any

// Group identifies a non-person actor and carries its properties.
type Group struct {
	Key        string
	Properties Properties
}

// Context is everything known about the actor being evaluated.
// Groups is keyed by group type name (for example "company").
type Context struct {
	DistinctID       string
	PersonProperties Properties
	Groups           map[string]Group
}
