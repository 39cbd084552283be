package enrichment

import (
	"strings"

	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/expr"
)

// evaluateConditionGroup implements §4.4's condition group: AND/OR
// short-circuit combination of sub-conditions. An evaluation error on a
// sub-condition counts as false under AND (stopping the group immediately,
// same as any other false) and as a skipped disjunct under OR. An empty
// group evaluates to true.
func evaluateConditionGroup(cg CompiledConditionGroup, ctx *expr.EvaluationContext) bool {
	if len(cg.Rules) == 0 {
		return true
	}
	if cg.Operator == config.OperatorOR {
		for _, p := range cg.Rules {
			v, err := p.Eval(ctx)
			if err != nil {
				continue
			}
			if v.Truthy() {
				return true
			}
		}
		return false
	}
	for _, p := range cg.Rules {
		v, err := p.Eval(ctx)
		if err != nil || !v.Truthy() {
			return false
		}
	}
	return true
}

// matchesTargetType implements §4.4's flexible targetType gating policy:
// exact (case-insensitive) match, substring match in either direction, or
// the documented wildcard alias (`*Trade*` matching `Trade`).
func matchesTargetType(pattern, typeName string) bool {
	if pattern == "" {
		return true
	}
	if typeName == "" {
		return false
	}
	if strings.EqualFold(pattern, typeName) {
		return true
	}
	if strings.Contains(pattern, "*") {
		inner := strings.Trim(pattern, "*")
		return strings.Contains(strings.ToLower(typeName), strings.ToLower(inner))
	}
	lowerPattern, lowerType := strings.ToLower(pattern), strings.ToLower(typeName)
	return strings.Contains(lowerType, lowerPattern) || strings.Contains(lowerPattern, lowerType)
}
