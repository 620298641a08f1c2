package flags

import (
	"slices"
	"strconv"
	"time"
)

// Snapshot is an immutable set of flag definitions, cohorts and group type names.
// A refresh builds a new Snapshot and swaps it in; a Snapshot is never mutated.
type Snapshot struct {
	flags            []Definition
	byKey            map[string]*compiledFlag
	cohorts          map[string]PropertyGroup
	groupTypeMapping map[string]string
	fetchedAt        time.Time
}

type compiledFlag struct {
	def *Definition
	// groups are ordered with variant overrides first, original order kept within each subset.
	groups []ConditionGroup
}

// NewSnapshot builds a snapshot from decoded definitions.
// groupTypeMapping maps a group type index (as decimal string) to its name.
func NewSnapshot(defs []Definition, cohorts map[string]PropertyGroup, groupTypeMapping map[string]string) *Snapshot {
	s := &Snapshot{
		flags:            slices.Clone(defs),
		byKey:            make(map[string]*compiledFlag, len(defs)),
		cohorts:          make(map[string]PropertyGroup, len(cohorts)),
		groupTypeMapping: make(map[string]string, len(groupTypeMapping)),
		fetchedAt:        time.Now(),
	}
	for k, v := range cohorts {
		s.cohorts[k] = v
	}
	for k, v := range groupTypeMapping {
		s.groupTypeMapping[k] = v
	}

	for i := range s.flags {
		def := &s.flags[i]
		groups := slices.Clone(def.Filters.Groups)
		slices.SortStableFunc(groups, func(a, b ConditionGroup) int {
			return overrideRank(a) - overrideRank(b)
		})
		s.byKey[def.Key] = &compiledFlag{def: def, groups: groups}
	}

	return s
}

func overrideRank(g ConditionGroup) int {
	if g.VariantOverride() != "" {
		return 0
	}
	return 1
}

// Flag returns the definition for key.
func (s *Snapshot) Flag(key string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	cf, ok := s.byKey[key]
	if !ok {
		return Definition{}, false
	}
	return *cf.def, true
}

// Flags returns the definitions in the order they were delivered.
func (s *Snapshot) Flags() []Definition {
	if s == nil {
		return nil
	}
	return slices.Clone(s.flags)
}

// Len returns the number of flags in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.flags)
}

// Cohort returns the filter tree of a cohort.
func (s *Snapshot) Cohort(id string) (PropertyGroup, bool) {
	g, ok := s.cohorts[id]
	return g, ok
}

// GroupTypeName resolves a group type index to its name.
func (s *Snapshot) GroupTypeName(index int) (string, bool) {
	name, ok := s.groupTypeMapping[strconv.Itoa(index)]
	return name, ok
}

// FetchedAt returns when the snapshot was built.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

func (s *Snapshot) compiled(key string) (*compiledFlag, bool) {
	cf, ok := s.byKey[key]
	return cf, ok
}
