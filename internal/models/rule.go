package models

import (
	"time"
)

// ConditionKind selects which prediction field a rule compares.
type ConditionKind string

const (
	ConditionRiskLevel   ConditionKind = "risk_level"
	ConditionProbability ConditionKind = "probability"
)

// RuleCondition is a declarative >= predicate over one prediction field.
type RuleCondition struct {
	Kind        ConditionKind `json:"kind"`
	RiskLevel   RiskLevel     `json:"risk_level,omitempty"`  // for ConditionRiskLevel
	Probability float64       `json:"probability,omitempty"` // for ConditionProbability
}

// RuleAction is what the engine does when a rule matches. Only alert
// creation is supported today.
type RuleAction string

const (
	RuleActionCreateAlert RuleAction = "create_alert"
)

// AlertRule is evaluated against newly stored predictions.
type AlertRule struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Condition     RuleCondition `json:"condition"`
	Action        RuleAction    `json:"action"`
	Enabled       bool          `json:"enabled"`
	LastTriggered *time.Time    `json:"last_triggered,omitempty"`
	TriggerCount  int           `json:"trigger_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Matches reports whether the rule's condition holds for the
// prediction. Unknown condition kinds never match.
func (r *AlertRule) Matches(p *Prediction) bool {
	switch r.Condition.Kind {
	case ConditionRiskLevel:
		if !IsValidRiskLevel(r.Condition.RiskLevel) {
			return false
		}
		return p.RiskLevel.AtLeast(r.Condition.RiskLevel)
	case ConditionProbability:
		return p.Probability >= r.Condition.Probability
	default:
		return false
	}
}
