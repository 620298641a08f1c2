package flags

import (
	"regexp"
	"strconv"
	"time"
)

var relativeDatePattern = regexp.MustCompile(`^-?([0-9]+)([hdwmy])$`)

// maxRelativeAmount bounds relative date expressions; larger amounts are rejected.
const maxRelativeAmount = 10000

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func compareDates(op Operator, ref Value, supplied any, now time.Time) Outcome {
	if ref.Kind() != KindString {
		return Inconclusive
	}
	refTime, ok := parseReferenceDate(ref.String(), now)
	if !ok {
		return Inconclusive
	}
	suppliedTime, ok := parseSuppliedDate(supplied)
	if !ok {
		return Inconclusive
	}
	if op == OpIsDateBefore {
		return outcomeOf(suppliedTime.Before(refTime))
	}
	return outcomeOf(suppliedTime.After(refTime))
}

// parseReferenceDate accepts "-<N><unit>" relative to now (unit h, d, w, m or y)
// and absolute timestamps.
func parseReferenceDate(s string, now time.Time) (time.Time, bool) {
	if m := relativeDatePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n >= maxRelativeAmount {
			return time.Time{}, false
		}
		switch m[2] {
		case "h":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "d":
			return now.AddDate(0, 0, -n), true
		case "w":
			return now.AddDate(0, 0, -7*n), true
		case "m":
			return now.AddDate(0, -n, 0), true
		default:
			return now.AddDate(-n, 0, 0), true
		}
	}
	return parseDateString(s)
}

func parseSuppliedDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return parseDateString(t)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
