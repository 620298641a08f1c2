package bucket

import (
	"crypto/sha1" //nolint:gosec // bucketing hash, shared with other client implementations
	"encoding/binary"
)

const (
	// RolloutSalt is used when deciding whether an actor falls inside a rollout percentage.
	RolloutSalt = ""
	// VariantSalt is used when assigning a multivariate variant.
	VariantSalt = "variant"
)

// scale is 2^60 - 1, the largest value representable by 15 hex characters.
const scale = float64(1<<60 - 1)

// Hash returns the bucketing value for the given flag, actor and salt.
// The result lies in [0, 1]; reaching exactly 1 requires an all-ones digest prefix.
func Hash(flagKey, distinctID, salt string) float64 {
	sum := sha1.Sum([]byte(flagKey + "." + distinctID + salt)) //nolint:gosec

	// The first 15 hex characters are the top 60 bits of the digest.
	v := binary.BigEndian.Uint64(sum[:8]) >> 4

	return float64(v&(1<<60-1)) / scale
}

// InRollout reports whether the actor is inside a rollout of the given percentage.
// Percentages of 100 and above always include the actor without hashing.
func InRollout(flagKey, distinctID string, percentage float64) bool {
	if percentage >= 100 {
		return true
	}
	if percentage <= 0 {
		return false
	}
	return Hash(flagKey, distinctID, RolloutSalt) < percentage/100
}
