package safety

import (
	"strings"

	"github.com/haskel/pacer/internal/state"
)

// Exercise is one item of a concrete training plan.
type Exercise struct {
	Name string `json:"name"`
}

// Plan is a concrete training plan proposed for a day.
type Plan struct {
	Intensity string     `json:"intensity"`
	Volume    string     `json:"volume,omitempty"`
	Exercises []Exercise `json:"exercises,omitempty"`
}

// CheckPlan checks a concrete plan against the state. An exercise matching
// the injury history is critical; a high intensity plan on an elevated
// fatigue day is high.
func (g *Guardrails) CheckPlan(p Plan, s state.State) CheckResult {
	injuries := s.Strings(state.InjuryHistory)
	for _, ex := range p.Exercises {
		name := strings.ToLower(ex.Name)
		for _, injury := range injuries {
			injury = strings.ToLower(strings.TrimSpace(injury))
			if injury != "" && strings.Contains(name, injury) {
				return unsafe(RiskCritical, TagModifyPlan,
					"Plan includes exercise that may aggravate injury history: %s", name)
			}
		}
	}

	if strings.EqualFold(p.Intensity, "high") {
		if fatigue, ok := s.Lookup(state.Fatigue); ok && fatigue >= g.thresholds.PlanFatigue {
			return unsafe(RiskHigh, TagReduceIntensity,
				"High intensity plan requested but fatigue level is elevated")
		}
	}

	return CheckResult{
		IsSafe:            true,
		RiskLevel:         RiskLow,
		Message:           "Plan is safe given current state",
		RecommendedAction: TagProceed,
	}
}
