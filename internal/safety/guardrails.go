package safety

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haskel/pacer/internal/state"
)

// Thresholds configures the rule battery.
type Thresholds struct {
	MaxRestingHR           float64 `yaml:"max_resting_hr" json:"max_resting_hr"`
	MinHRV                 float64 `yaml:"min_hrv" json:"min_hrv"`
	MaxWeeklyHighIntensity float64 `yaml:"max_weekly_high_intensity" json:"max_weekly_high_intensity"`
	MaxFatigue             float64 `yaml:"max_fatigue" json:"max_fatigue"`
	MinSleepHours          float64 `yaml:"min_sleep_hours" json:"min_sleep_hours"`
	MinReadiness           float64 `yaml:"min_readiness" json:"min_readiness"`
	MaxSoreness            float64 `yaml:"max_soreness" json:"max_soreness"`
	PlanFatigue            float64 `yaml:"plan_fatigue" json:"plan_fatigue"`
}

// DefaultThresholds returns the standard rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRestingHR:           100,
		MinHRV:                 20,
		MaxWeeklyHighIntensity: 3,
		MaxFatigue:             8,
		MinSleepHours:          4,
		MinReadiness:           50,
		MaxSoreness:            8,
		PlanFatigue:            7,
	}
}

// Validate checks threshold ranges.
func (t Thresholds) Validate() error {
	var errs []error

	if t.MaxRestingHR <= 0 {
		errs = append(errs, fmt.Errorf("max_resting_hr must be positive"))
	}
	if t.MinHRV < 0 {
		errs = append(errs, fmt.Errorf("min_hrv must be non-negative"))
	}
	if t.MaxWeeklyHighIntensity < 1 || t.MaxWeeklyHighIntensity > 7 {
		errs = append(errs, fmt.Errorf("max_weekly_high_intensity must be between 1 and 7"))
	}
	if t.MaxFatigue < 0 || t.MaxFatigue > 10 {
		errs = append(errs, fmt.Errorf("max_fatigue must be between 0 and 10"))
	}
	if t.MinSleepHours < 0 || t.MinSleepHours > 24 {
		errs = append(errs, fmt.Errorf("min_sleep_hours must be between 0 and 24"))
	}
	if t.MinReadiness < 0 || t.MinReadiness > 100 {
		errs = append(errs, fmt.Errorf("min_readiness must be between 0 and 100"))
	}
	if t.MaxSoreness < 0 || t.MaxSoreness > 10 {
		errs = append(errs, fmt.Errorf("max_soreness must be between 0 and 10"))
	}
	if t.PlanFatigue < 0 || t.PlanFatigue > 10 {
		errs = append(errs, fmt.Errorf("plan_fatigue must be between 0 and 10"))
	}

	return errors.Join(errs...)
}

// Rule is one check of the battery. It reports whether it fired.
type Rule struct {
	Name  string
	Check func(s state.State, t Thresholds) (CheckResult, bool)
}

// Guardrails evaluates the rule battery against a state.
// Safe for concurrent use.
type Guardrails struct {
	thresholds Thresholds
	rules      []Rule
}

// NewGuardrails creates guardrails with the default rule battery.
func NewGuardrails(t Thresholds) *Guardrails {
	return &Guardrails{
		thresholds: t,
		rules:      DefaultRules(),
	}
}

// Thresholds returns the thresholds in use.
func (g *Guardrails) Thresholds() Thresholds {
	return g.thresholds
}

// DefaultRules returns the ordered rule battery. Several rules may fire on
// one state; Check keeps the most severe.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "physiological", Check: checkPhysiological},
		{Name: "overtraining", Check: checkOvertraining},
		{Name: "fatigue", Check: checkFatigue},
		{Name: "sleep_recovery", Check: checkSleepRecovery},
		{Name: "injury", Check: checkInjury},
	}
}

// Check returns the first result at the highest risk level among the rules
// that fired, or Passed when none did.
func (g *Guardrails) Check(s state.State) CheckResult {
	var (
		best  CheckResult
		found bool
	)

	for _, rule := range g.rules {
		result, fired := rule.Check(s, g.thresholds)
		if !fired {
			continue
		}
		if !found || result.RiskLevel.Rank() > best.RiskLevel.Rank() {
			best = result
			found = true
		}
	}

	if !found {
		return Passed()
	}
	return best
}

func checkPhysiological(s state.State, t Thresholds) (CheckResult, bool) {
	var issues []string

	if hr, ok := s.Lookup(state.RestingHR); ok && hr > t.MaxRestingHR {
		issues = append(issues, fmt.Sprintf("Resting heart rate elevated (%g bpm)", hr))
	}
	if hrv, ok := s.Lookup(state.HRV); ok && hrv < t.MinHRV {
		issues = append(issues, fmt.Sprintf("HRV very low (%g ms)", hrv))
	}

	if len(issues) == 0 {
		return CheckResult{}, false
	}
	return unsafe(RiskHigh, TagRestDayOrLightActivity,
		"Abnormal physiological signals detected: %s", strings.Join(issues, "; ")), true
}

func checkOvertraining(s state.State, t Thresholds) (CheckResult, bool) {
	if s.Bool(state.OvertrainingRisk) {
		return unsafe(RiskCritical, TagMandatoryRestDay,
			"Overtraining risk detected. Multiple indicators suggest excessive training load."), true
	}

	if days, ok := s.Lookup(state.TrainingFrequencyWeek); ok && days >= t.MaxWeeklyHighIntensity {
		return unsafe(RiskHigh, TagReduceIntensityOrRest,
			"High training frequency detected (%g days/week)", days), true
	}

	return CheckResult{}, false
}

func checkFatigue(s state.State, t Thresholds) (CheckResult, bool) {
	if fatigue, ok := s.Lookup(state.Fatigue); ok && fatigue >= t.MaxFatigue {
		return unsafe(RiskHigh, TagRestDayOrRecoverySession,
			"High fatigue level (%g/10). Training may be counterproductive.", fatigue), true
	}
	return CheckResult{}, false
}

func checkSleepRecovery(s state.State, t Thresholds) (CheckResult, bool) {
	if hours, ok := s.Lookup(state.SleepDurationHours); ok && hours < t.MinSleepHours {
		return unsafe(RiskMedium, TagLightTrainingOrRest,
			"Insufficient sleep (%g hours). Recovery may be compromised.", hours), true
	}

	if readiness, ok := s.Lookup(state.ReadinessScore); ok && readiness < t.MinReadiness {
		return unsafe(RiskMedium, TagReduceIntensity,
			"Low readiness score (%g/100). Consider lighter training.", readiness), true
	}

	return CheckResult{}, false
}

func checkInjury(s state.State, t Thresholds) (CheckResult, bool) {
	if soreness, ok := s.Lookup(state.Soreness); ok && soreness >= t.MaxSoreness {
		return unsafe(RiskHigh, TagActiveRecoveryOrRest,
			"High muscle soreness (%g/10). Risk of injury if training intensively.", soreness), true
	}
	return CheckResult{}, false
}
