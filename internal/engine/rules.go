package engine

import (
	"context"

	"github.com/forestguard/internal/models"
)

// Default rule ids, seeded enabled at engine construction.
const (
	RuleHighRiskAuto         = "high-risk-auto"
	RuleProbabilityThreshold = "probability-threshold"
)

// DefaultRules returns the rules every engine starts with: auto-trigger
// on HIGH-or-above risk, and on probability at or above 0.7.
func DefaultRules() []models.AlertRule {
	return []models.AlertRule{
		{
			ID:      RuleHighRiskAuto,
			Name:    "High risk auto-trigger",
			Enabled: true,
			Action:  models.RuleActionCreateAlert,
			Condition: models.RuleCondition{
				Kind:      models.ConditionRiskLevel,
				RiskLevel: models.RiskLevelHigh,
			},
		},
		{
			ID:      RuleProbabilityThreshold,
			Name:    "Probability threshold",
			Enabled: true,
			Action:  models.RuleActionCreateAlert,
			Condition: models.RuleCondition{
				Kind:        models.ConditionProbability,
				Probability: 0.7,
			},
		},
	}
}

// EvaluateRules runs every enabled rule against the prediction and
// returns the ones that matched. Invalid conditions never match and
// never error.
func (e *Engine) EvaluateRules(p *models.Prediction) []models.AlertRule {
	var matched []models.AlertRule
	for _, r := range e.rules.Enabled() {
		rule := r
		if rule.Matches(p) {
			matched = append(matched, rule)
		}
	}
	return matched
}

// SetRule inserts or replaces a rule.
func (e *Engine) SetRule(r *models.AlertRule) *models.AlertRule {
	if r.Action == "" {
		r.Action = models.RuleActionCreateAlert
	}
	return e.rules.Set(r)
}

func (e *Engine) GetRule(id string) (*models.AlertRule, bool) {
	return e.rules.Get(id)
}

func (e *Engine) GetRules() []models.AlertRule {
	return e.rules.All()
}

func (e *Engine) DeleteRule(id string) bool {
	return e.rules.Delete(id)
}

func (e *Engine) EnableRule(id string) bool {
	return e.rules.SetEnabled(id, true)
}

func (e *Engine) DisableRule(id string) bool {
	return e.rules.SetEnabled(id, false)
}

// CheckAlertTriggers sweeps high-risk predictions that still lack a
// prediction-derived alert and triggers one for each. Re-running the
// sweep creates nothing new: the per-prediction index makes triggering
// idempotent. The context is honoured between records, never mid-record.
func (e *Engine) CheckAlertTriggers(ctx context.Context) []models.Alert {
	var created []models.Alert
	for _, p := range e.predictions.HighRisk() {
		if ctx.Err() != nil {
			break
		}
		prediction := p
		if alert, ok := e.autoTrigger(&prediction, nil); ok {
			created = append(created, *alert)
		}
	}
	if len(created) > 0 {
		e.log.WithField("count", len(created)).Info("trigger sweep created alerts")
	}
	return created
}
