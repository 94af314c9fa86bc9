package rules

import (
	"fmt"
	"strings"
)

// Engine evaluates actions against a compiled rule set (spec §4.1).
// Evaluation is deterministic and never compiles on the hot path.
type Engine struct {
	store *Store
}

// NewEngine creates an Engine backed by the given Store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Evaluate runs the action against every enabled compiled rule, aggregating
// a Verdict per spec §4.1's algorithm: risk is the max observed risk level,
// recommendation is the join of matched rules' actions under the monotone
// promotion table, matched is the ordered list of matched rule names.
func (e *Engine) Evaluate(a Action) Verdict {
	compiled := e.store.Compiled()

	v := Verdict{
		Action:         a,
		Risk:           RiskInfo,
		Recommendation: RecommendLogOnly,
	}

	var explanations []string
	for _, rule := range compiled {
		if !rule.Spec.IsEnabled() {
			continue
		}
		if !rule.Matches(a) {
			continue
		}
		v.Matched = append(v.Matched, rule.Spec.Name)
		if rule.Risk > v.Risk {
			v.Risk = rule.Risk
		}
		v.Recommendation = Promote(v.Recommendation, rule.Action)
		explanations = append(explanations, fmt.Sprintf("Matched rule: %s - %s", rule.Spec.Name, rule.Spec.Description))
	}

	if len(explanations) == 0 {
		v.Explanation = "No rules matched"
	} else {
		v.Explanation = strings.Join(explanations, "; ")
	}

	return v
}
