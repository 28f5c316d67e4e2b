package engine

import (
	"github.com/aetherlab/aether/internal/store"
)

// Applicable returns every rule whose condition holds for the profile, in
// store order. This is the exact, unranked matcher the correction path
// depends on: a rule whose parameter is absent from the profile, whose
// operand types don't line up, or whose comparison is false is excluded;
// nothing here ever errors. Re-querying an identical profile yields an
// identical sequence.
func Applicable(rules []store.PhysioRule, profile UserProfile) []store.PhysioRule {
	values := profile.Values()

	var applicable []store.PhysioRule
	for _, rule := range rules {
		if conditionHolds(rule.Condition, values) {
			applicable = append(applicable, rule)
		}
	}
	return applicable
}

// conditionHolds evaluates a single predicate against profile values.
// Type mismatches are a silent non-match, never an error.
func conditionHolds(cond store.Condition, values map[string]any) bool {
	userValue, ok := values[cond.Parameter]
	if !ok {
		return false
	}

	switch cond.Operator {
	case "<":
		uv, uok := asFloat(userValue)
		rv, rok := asFloat(cond.Value)
		return uok && rok && uv < rv
	case ">":
		uv, uok := asFloat(userValue)
		rv, rok := asFloat(cond.Value)
		return uok && rok && uv > rv
	case "==":
		return equalValues(userValue, cond.Value)
	case "contains":
		list, ok := asStringSlice(userValue)
		if !ok {
			return false
		}
		want, ok := cond.Value.(string)
		if !ok {
			return false
		}
		for _, item := range list {
			if item == want {
				return true
			}
		}
		return false
	}
	return false
}

// equalValues compares a profile value and a rule value. Numbers compare
// numerically regardless of their concrete type; everything else compares
// as strings. Uncomparable shapes are a non-match.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as == bs
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
