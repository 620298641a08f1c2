// Package bucket maps an actor onto a deterministic point of the rollout space.
//
// The hash is shared with every other client of the flag service: the same flag key,
// actor identifier and salt must land on the same value in every implementation,
// otherwise percentage rollouts and variant assignment would disagree between services
// that evaluate the same flag.
//
// # Algorithm
//
// The input string is flagKey + "." + distinctID + salt. Its SHA-1 digest is computed,
// the first 15 hex characters (the top 60 bits) are read as an unsigned integer and
// divided by 2^60 - 1:
//
//	h := bucket.Hash("beta", "user-1", bucket.RolloutSalt) // 0.3976...
//	in := bucket.InRollout("beta", "user-1", 40)           // true
//
// Rollout checks use RolloutSalt, multivariate assignment uses VariantSalt so that the
// two decisions are independent for the same actor.
package bucket
