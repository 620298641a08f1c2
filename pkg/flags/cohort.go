package flags

import "time"

// maxCohortDepth bounds nested cohort references; deeper trees (including cycles) are Inconclusive.
const maxCohortDepth = 32

// resolver evaluates conditions and cohort trees against one actor.
type resolver struct {
	snap *Snapshot
	now  time.Time
}

// MatchCohort evaluates the cohort with the given id against props.
// Unknown cohorts and nesting deeper than the supported depth are Inconclusive.
func MatchCohort(snap *Snapshot, cohortID string, props Properties, now time.Time) Outcome {
	r := resolver{snap: snap, now: now}
	return r.cohort(cohortID, props, 0)
}

// MatchGroup evaluates a property group tree against props, resolving cohort
// references through snap.
func MatchGroup(snap *Snapshot, group PropertyGroup, props Properties, now time.Time) Outcome {
	r := resolver{snap: snap, now: now}
	return r.group(group, props, 0)
}

func (r resolver) cohort(id string, props Properties, depth int) Outcome {
	if depth >= maxCohortDepth || r.snap == nil {
		return Inconclusive
	}
	g, ok := r.snap.Cohort(id)
	if !ok {
		return Inconclusive
	}
	return r.group(g, props, depth+1)
}

// group combines its members with AND unless the type is OR.
// A definite result that decides the group returns immediately; Inconclusive members
// are deferred and only surface when nothing short-circuited.
func (r resolver) group(g PropertyGroup, props Properties, depth int) Outcome {
	if len(g.Values) == 0 {
		return Match
	}

	isOr := g.Type == LogicOr
	inconclusive := false
	for _, node := range g.Values {
		var o Outcome
		switch {
		case node.Group != nil:
			o = r.group(*node.Group, props, depth)
		case node.Condition != nil:
			o = r.leaf(*node.Condition, props, depth)
		default:
			o = Inconclusive
		}

		switch {
		case o == Inconclusive:
			inconclusive = true
		case isOr && o == Match:
			return Match
		case !isOr && o == NoMatch:
			return NoMatch
		}
	}

	if inconclusive {
		return Inconclusive
	}
	return outcomeOf(!isOr)
}

func (r resolver) leaf(cond PropertyCondition, props Properties, depth int) Outcome {
	var o Outcome
	if cond.Type == PropertyTypeCohort {
		o = r.cohort(cond.Value.String(), props, depth)
	} else {
		o = MatchProperty(cond, props, r.now)
	}
	if cond.Negation {
		return negate(o)
	}
	return o
}

func negate(o Outcome) Outcome {
	switch o {
	case Match:
		return NoMatch
	case NoMatch:
		return Match
	default:
		return o
	}
}
