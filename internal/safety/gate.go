package safety

import (
	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/state"
)

// Policy is the action filter applied for a recommended action tag.
type Policy struct {
	AllowedTypes []action.WorkoutType
	MaxIntensity action.Intensity
}

var (
	policyRestOnly = Policy{
		AllowedTypes: []action.WorkoutType{action.WorkoutRest},
		MaxIntensity: action.IntensityNone,
	}
	policyRestOrLight = Policy{
		AllowedTypes: []action.WorkoutType{action.WorkoutRest, action.WorkoutRecovery},
		MaxIntensity: action.IntensityLow,
	}
	policyReduced = Policy{
		AllowedTypes: action.WorkoutTypes,
		MaxIntensity: action.IntensityMedium,
	}
	policyUnrestricted = Policy{
		AllowedTypes: action.WorkoutTypes,
		MaxIntensity: action.IntensityHigh,
	}
)

var policies = map[Tag]Policy{
	TagMandatoryRestDay:         policyRestOnly,
	TagRestDayOrLightActivity:   policyRestOrLight,
	TagRestDayOrRecoverySession: policyRestOrLight,
	TagActiveRecoveryOrRest:     policyRestOrLight,
	TagLightTrainingOrRest:      policyRestOrLight,
	TagReduceIntensity:          policyReduced,
	TagReduceIntensityOrRest:    policyReduced,
	TagModifyPlan:               policyReduced,
	TagProceed:                  policyUnrestricted,
	TagProceedWithPlan:          policyUnrestricted,
}

// PolicyFor returns the filter for a result. Safe results are unrestricted;
// unsafe results with an unknown tag get the rest or light policy.
func PolicyFor(r CheckResult) Policy {
	if r.IsSafe {
		return policyUnrestricted
	}
	if p, ok := policies[r.RecommendedAction]; ok {
		return p
	}
	return policyRestOrLight
}

// Gate checks states and filters candidate actions accordingly.
// Safe for concurrent use.
type Gate struct {
	guardrails *Guardrails
	space      *action.Space
}

// NewGate creates a gate over the given action space.
func NewGate(g *Guardrails, space *action.Space) *Gate {
	return &Gate{guardrails: g, space: space}
}

// Guardrails returns the underlying rule battery.
func (g *Gate) Guardrails() *Guardrails {
	return g.guardrails
}

// Check runs the rule battery.
func (g *Gate) Check(s state.State) CheckResult {
	return g.guardrails.Check(s)
}

// FilterActions returns the candidates allowed for the state, in candidate
// order. It never returns an empty list: when nothing survives, the rest
// action is returned alone.
func (g *Gate) FilterActions(s state.State, candidates []int) []int {
	return g.FilterFor(g.Check(s), candidates)
}

// FilterFor applies the policy of an already computed result.
func (g *Gate) FilterFor(r CheckResult, candidates []int) []int {
	p := PolicyFor(r)

	permitted := make(map[int]bool)
	for _, id := range g.space.Filter(p.AllowedTypes, p.MaxIntensity) {
		permitted[id] = true
	}

	out := make([]int, 0, len(candidates))
	for _, id := range candidates {
		if permitted[id] {
			out = append(out, id)
		}
	}

	if len(out) == 0 {
		return []int{action.RestID}
	}
	return out
}
