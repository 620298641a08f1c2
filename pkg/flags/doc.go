// Package flags evaluates feature flag definitions locally.
//
// Definitions arrive in the local-evaluation wire shape (flags, cohorts and the group
// type mapping) and are decoded once into an immutable Snapshot. Reference values of
// property conditions are decoded into the tagged Value union at that point, so the
// hot path never inspects loosely typed JSON.
//
// Every decision is tri-state. Match and NoMatch are definitive; Inconclusive means
// the local data is insufficient (a missing property, an unknown cohort, a bad regex,
// an experience continuity flag) and the remote decision service must be consulted.
//
// # Usage
//
//	snap, err := flags.DecodeSnapshot(body)
//	if err != nil {
//		return err
//	}
//
//	ev := flags.NewEvaluator(flags.WithLogger(log))
//	res := ev.Evaluate(snap, "new-checkout", flags.Context{
//		DistinctID:       "user-1",
//		PersonProperties: flags.Properties{"plan": "pro"},
//	})
//
//	switch res.Outcome {
//	case flags.Match:
//		// enabled, res.Variant holds the variant of multivariate flags
//	case flags.NoMatch:
//		// disabled
//	case flags.Inconclusive:
//		// ask the remote service
//	}
//
// # Bucketing
//
// Rollout percentages and variants use pkg/bucket, which is bit-compatible with the
// other SDKs: the same flag key and distinct id land in the same bucket everywhere.
//
// # Ordering
//
// Condition groups carrying a variant override are evaluated before groups without
// one, keeping declaration order inside each subset. The order is computed when the
// Snapshot is built.
package flags
