package flags

// Outcome is the tri-state result of local matching.
type Outcome uint8

const (
	// NoMatch is a definitive negative answer.
	NoMatch Outcome = iota
	// Match is a definitive positive answer.
	Match
	// Inconclusive means the local data cannot decide; the remote service must be asked.
	Inconclusive
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case Match:
		return "match"
	case Inconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

func outcomeOf(b bool) Outcome {
	if b {
		return Match
	}
	return NoMatch
}

// Reason explains how an evaluation reached its outcome.
type Reason string

const (
	// ReasonConditionMatch means a condition group matched and the rollout included the actor.
	ReasonConditionMatch Reason = "condition_match"
	// ReasonNoConditionMatch means every condition group was definitively ruled out.
	ReasonNoConditionMatch Reason = "no_condition_match"
	// ReasonDisabled means the flag is inactive.
	ReasonDisabled Reason = "disabled"
	// ReasonContinuity means the flag needs experience continuity, which only the server tracks.
	ReasonContinuity Reason = "continuity"
	// ReasonUnknownGroupType means the flag's group type index has no mapping.
	ReasonUnknownGroupType Reason = "unknown_group_type"
	// ReasonGroupNotSupplied means a group flag was evaluated without that group.
	ReasonGroupNotSupplied Reason = "group_not_supplied"
	// ReasonInconclusive means at least one condition could not be decided locally.
	ReasonInconclusive Reason = "inconclusive"
	// ReasonFlagMissing means the key is not in the loaded definitions.
	ReasonFlagMissing Reason = "flag_missing"
)
