package safety

import (
	"encoding/json"
	"fmt"
)

// RiskLevel grades how dangerous training would be.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels, low being 0. Unknown levels rank below low.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return -1
}

// IsValid checks if the risk level is known.
func (r RiskLevel) IsValid() bool {
	return r.Rank() >= 0
}

// Tag is the recommended action attached to a check result. The gate maps it
// to an action filter.
type Tag string

const (
	TagProceed                  Tag = "proceed"
	TagProceedWithPlan          Tag = "proceed_with_plan"
	TagMandatoryRestDay         Tag = "mandatory_rest_day"
	TagRestDayOrLightActivity   Tag = "rest_day_or_light_activity"
	TagRestDayOrRecoverySession Tag = "rest_day_or_recovery_session"
	TagActiveRecoveryOrRest     Tag = "active_recovery_or_rest"
	TagLightTrainingOrRest      Tag = "light_training_or_rest"
	TagReduceIntensity          Tag = "reduce_intensity"
	TagReduceIntensityOrRest    Tag = "reduce_intensity_or_rest"
	TagModifyPlan               Tag = "modify_plan"
)

// CheckResult is the outcome of a safety check.
type CheckResult struct {
	IsSafe            bool      `json:"is_safe"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Message           string    `json:"message"`
	RecommendedAction Tag       `json:"recommended_action"`
}

// Passed is the result returned when no rule fires.
func Passed() CheckResult {
	return CheckResult{
		IsSafe:            true,
		RiskLevel:         RiskLow,
		Message:           "All safety checks passed",
		RecommendedAction: TagProceedWithPlan,
	}
}

func unsafe(level RiskLevel, tag Tag, format string, args ...any) CheckResult {
	return CheckResult{
		IsSafe:            false,
		RiskLevel:         level,
		Message:           fmt.Sprintf(format, args...),
		RecommendedAction: tag,
	}
}

// String returns a compact description for logs.
func (c CheckResult) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return c.Message
	}
	return string(data)
}
