package flags

import (
	"encoding/json"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/bucket"
)

// Property keys injected into actor properties when the caller did not set them.
const (
	DistinctIDProperty = "distinct_id"
	GroupKeyProperty   = "$group_key"
)

// Result is the local answer for one flag.
type Result struct {
	Key     string
	Outcome Outcome
	Variant string
	Payload json.RawMessage
	Reason  Reason
}

// Enabled reports whether the flag matched.
func (r Result) Enabled() bool {
	return r.Outcome == Match
}

// Value returns the variant key for multivariate matches, a bool for definitive
// boolean answers and nil when the result is Inconclusive.
func (r Result) Value() any {
	switch r.Outcome {
	case Match:
		if r.Variant != "" {
			return r.Variant
		}
		return true
	case NoMatch:
		return false
	default:
		return nil
	}
}

// Evaluator evaluates flags of a Snapshot. It holds no per-call state and is safe for
// concurrent use.
type Evaluator struct {
	now    func() time.Time
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithNow sets the time source used by relative date operators.
func WithNow(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger for evaluation diagnostics.
func WithLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the local result of the flag named key.
// A nil snapshot or an unknown key yields Inconclusive so the caller can ask the remote service.
func (e *Evaluator) Evaluate(snap *Snapshot, key string, ectx Context) Result {
	if snap == nil {
		return Result{Key: key, Outcome: Inconclusive, Reason: ReasonFlagMissing}
	}
	cf, ok := snap.compiled(key)
	if !ok {
		return Result{Key: key, Outcome: Inconclusive, Reason: ReasonFlagMissing}
	}
	return e.evaluate(snap, cf, newActors(ectx), e.now())
}

// EvaluateAll evaluates every flag of the snapshot. The second return value reports
// whether any flag was Inconclusive.
func (e *Evaluator) EvaluateAll(snap *Snapshot, ectx Context) (map[string]Result, bool) {
	if snap == nil {
		return map[string]Result{}, true
	}

	act := newActors(ectx)
	now := e.now()
	results := make(map[string]Result, len(snap.flags))
	inconclusive := false
	for i := range snap.flags {
		cf := snap.byKey[snap.flags[i].Key]
		res := e.evaluate(snap, cf, act, now)
		if res.Outcome == Inconclusive {
			inconclusive = true
		}
		results[res.Key] = res
	}
	return results, inconclusive
}

func (e *Evaluator) evaluate(snap *Snapshot, cf *compiledFlag, act actors, now time.Time) Result {
	def := cf.def
	res := Result{Key: def.Key}

	if !def.Active {
		res.Outcome, res.Reason = NoMatch, ReasonDisabled
		return res
	}
	if def.EnsureExperienceContinuity {
		res.Outcome, res.Reason = Inconclusive, ReasonContinuity
		return res
	}

	actorKey := act.distinctID
	props := act.person
	aggregated := def.Filters.AggregationGroupTypeIndex
	if aggregated != nil {
		name, ok := snap.GroupTypeName(*aggregated)
		if !ok {
			e.logger.Warn("unknown group type index",
				slog.String("flag_key", def.Key),
				slog.Int("group_type_index", *aggregated),
			)
			res.Outcome, res.Reason = Inconclusive, ReasonUnknownGroupType
			return res
		}
		g, ok := act.groups[name]
		if !ok {
			e.logger.Debug("group not supplied for group flag",
				slog.String("flag_key", def.Key),
				slog.String("group_type", name),
			)
			res.Outcome, res.Reason = NoMatch, ReasonGroupNotSupplied
			return res
		}
		actorKey = g.Key
		props = g.Properties
	}

	sc := scope{
		resolver:   resolver{snap: snap, now: now},
		act:        act,
		props:      props,
		aggregated: aggregated,
	}

	inconclusive := false
	for _, group := range cf.groups {
		switch sc.conditionGroup(def.Key, actorKey, group) {
		case Match:
			res.Outcome, res.Reason = Match, ReasonConditionMatch
			res.Variant = pickVariant(def, actorKey, group)
			res.Payload = payloadFor(def, res.Variant)
			return res
		case Inconclusive:
			inconclusive = true
		}
	}

	if inconclusive {
		res.Outcome, res.Reason = Inconclusive, ReasonInconclusive
		return res
	}
	res.Outcome, res.Reason = NoMatch, ReasonNoConditionMatch
	return res
}

// scope is the evaluation state of one flag for one actor.
type scope struct {
	resolver
	act        actors
	props      Properties
	aggregated *int
}

// conditionGroup requires every condition to hold, then applies the rollout gate.
func (sc scope) conditionGroup(flagKey, actorKey string, group ConditionGroup) Outcome {
	inconclusive := false
	for _, cond := range group.Properties {
		switch sc.condition(cond) {
		case NoMatch:
			return NoMatch
		case Inconclusive:
			inconclusive = true
		}
	}
	if inconclusive {
		return Inconclusive
	}

	pct := group.Rollout()
	if pct >= 100 {
		return Match
	}
	return outcomeOf(bucket.Hash(flagKey, actorKey, bucket.RolloutSalt) < pct/100)
}

func (sc scope) condition(cond PropertyCondition) Outcome {
	props := sc.props
	if cond.Type == PropertyTypeGroup {
		var ok bool
		if props, ok = sc.groupProps(cond); !ok {
			return Inconclusive
		}
	}
	return sc.leaf(cond, props, 0)
}

// groupProps returns the properties a group condition reads. A group flag reads its own
// group unless the condition names a different group type.
func (sc scope) groupProps(cond PropertyCondition) (Properties, bool) {
	idx := cond.GroupTypeIndex
	if idx == nil || (sc.aggregated != nil && *idx == *sc.aggregated) {
		if sc.aggregated == nil {
			return nil, false
		}
		return sc.props, true
	}
	name, ok := sc.snap.GroupTypeName(*idx)
	if !ok {
		return nil, false
	}
	g, ok := sc.act.groups[name]
	if !ok {
		return nil, false
	}
	return g.Properties, true
}

// pickVariant honors a valid override and otherwise walks cumulative variant ranges.
// An empty result means a boolean match.
func pickVariant(def *Definition, actorKey string, group ConditionGroup) string {
	mv := def.Filters.Multivariate
	if mv == nil || len(mv.Variants) == 0 {
		return ""
	}

	if override := group.VariantOverride(); override != "" {
		for _, v := range mv.Variants {
			if v.Key == override {
				return override
			}
		}
	}

	h := bucket.Hash(def.Key, actorKey, bucket.VariantSalt)
	lower := 0.0
	for _, v := range mv.Variants {
		upper := lower + v.RolloutPercentage/100
		if h >= lower && h < upper {
			return v.Key
		}
		lower = upper
	}
	return ""
}

func payloadFor(def *Definition, variant string) json.RawMessage {
	if len(def.Filters.Payloads) == 0 {
		return nil
	}
	key := variant
	if key == "" {
		key = strconv.FormatBool(true)
	}
	return def.Filters.Payloads[key]
}

// actors holds the caller context with injected identity properties.
type actors struct {
	distinctID string
	person     Properties
	groups     map[string]Group
}

func newActors(ectx Context) actors {
	act := actors{
		distinctID: ectx.DistinctID,
		person:     withDefault(ectx.PersonProperties, DistinctIDProperty, ectx.DistinctID),
		groups:     make(map[string]Group, len(ectx.Groups)),
	}
	for name, g := range ectx.Groups {
		act.groups[name] = Group{
			Key:        g.Key,
			Properties: withDefault(g.Properties, GroupKeyProperty, g.Key),
		}
	}
	return act
}

func withDefault(props Properties, key, value string) Properties {
	out := make(Properties, len(props)+1)
	maps.Copy(out, props)
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}
