package flags

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/dmitrymomot/featurekit/pkg/cache"
)

// MatchProperty evaluates a single person or group condition against props.
// Negation is not applied here; callers combining conditions apply it.
// Malformed input (bad regex, unparsable date, unknown operator) yields Inconclusive.
func MatchProperty(cond PropertyCondition, props Properties, now time.Time) Outcome {
	supplied, ok := props[cond.Key]
	if !ok {
		return Inconclusive
	}

	op := cond.Operator
	if op == "" {
		op = OpExact
	}

	switch op {
	case OpIsSet:
		return Match
	case OpIsNotSet:
		return Inconclusive
	}

	if supplied == nil {
		return outcomeOf(op == OpIsNot)
	}

	ref := cond.Value
	switch op {
	case OpExact:
		return outcomeOf(matchesExact(ref, supplied))
	case OpIsNot:
		return outcomeOf(!matchesExact(ref, supplied))
	case OpIContains:
		return outcomeOf(containsFold(ref, supplied))
	case OpNotIContains:
		return outcomeOf(!containsFold(ref, supplied))
	case OpRegex, OpNotRegex:
		if ref.IsList() || ref.Kind() == KindNull {
			return Inconclusive
		}
		re, err := compileRegex(ref.String())
		if err != nil {
			return Inconclusive
		}
		matched := re.MatchString(textOf(supplied))
		return outcomeOf(matched == (op == OpRegex))
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareOrdered(op, ref, supplied)
	case OpIsDateBefore, OpIsDateAfter:
		return compareDates(op, ref, supplied, now)
	default:
		return Inconclusive
	}
}

func matchesExact(ref Value, supplied any) bool {
	if ref.IsList() {
		for _, item := range ref.Strings() {
			if equalText(item, supplied) {
				return true
			}
		}
		return false
	}
	return equalText(ref.String(), supplied)
}

func equalText(ref string, supplied any) bool {
	if rn, ok := parseNumber(ref); ok {
		if sn, ok := numberOf(supplied); ok {
			return rn == sn
		}
	}
	return fold(ref) == fold(textOf(supplied))
}

func containsFold(ref Value, supplied any) bool {
	text := fold(textOf(supplied))
	for _, item := range ref.Strings() {
		if strings.Contains(text, fold(item)) {
			return true
		}
	}
	return false
}

func compareOrdered(op Operator, ref Value, supplied any) Outcome {
	if ref.IsList() || ref.Kind() == KindNull {
		return Inconclusive
	}

	var cmp int
	rn, refNumeric := ref.Float()
	sn, suppliedNumeric := numberOf(supplied)
	if refNumeric && suppliedNumeric {
		switch {
		case sn < rn:
			cmp = -1
		case sn > rn:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(textOf(supplied), ref.String())
	}

	switch op {
	case OpGreaterThan:
		return outcomeOf(cmp > 0)
	case OpGreaterOrEqual:
		return outcomeOf(cmp >= 0)
	case OpLessThan:
		return outcomeOf(cmp < 0)
	default:
		return outcomeOf(cmp <= 0)
	}
}

// fold returns the case-folded form of s. Casers are stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

const regexCacheSize = 512

// regexCache holds compiled patterns across snapshots. Patterns dropped from the
// definitions age out, and the size limit caps the rest.
var regexCache = cache.NewExpiring[string, *regexp.Regexp](
	cache.WithSizeLimit(regexCacheSize),
	cache.WithSlidingExpiration(time.Hour),
)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Set(pattern, re)
	return re, nil
}

// textOf renders a supplied property value the way it is compared as text.
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}
	if n, ok := numberOf(v); ok {
		return formatNumber(n)
	}
	return fmt.Sprint(v)
}

// numberOf coerces a supplied value to float64. Strings are parsed.
func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		return parseNumber(strings.TrimSpace(t))
	default:
		return 0, false
	}
}
