package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestguard/internal/models"
)

func TestDefaultRulesSeeded(t *testing.T) {
	e, _ := newTestEngine(t)

	rules := e.GetRules()
	require.Len(t, rules, 2)

	hr, ok := e.GetRule(RuleHighRiskAuto)
	require.True(t, ok)
	assert.True(t, hr.Enabled)
	assert.Equal(t, models.ConditionRiskLevel, hr.Condition.Kind)
	assert.Equal(t, models.RiskLevelHigh, hr.Condition.RiskLevel)

	pt, ok := e.GetRule(RuleProbabilityThreshold)
	require.True(t, ok)
	assert.True(t, pt.Enabled)
	assert.Equal(t, models.ConditionProbability, pt.Condition.Kind)
	assert.InDelta(t, 0.7, pt.Condition.Probability, 1e-9)
}

func TestEvaluateRules(t *testing.T) {
	e, _ := newTestEngine(t)

	high := &models.Prediction{RiskLevel: models.RiskLevelHigh, Probability: 0.65}
	assert.Len(t, e.EvaluateRules(high), 1, "only the risk-level rule matches at 0.65")

	extreme := &models.Prediction{RiskLevel: models.RiskLevelExtreme, Probability: 0.9}
	assert.Len(t, e.EvaluateRules(extreme), 2)

	low := &models.Prediction{RiskLevel: models.RiskLevelLow, Probability: 0.3}
	assert.Empty(t, e.EvaluateRules(low))

	e.DisableRule(RuleHighRiskAuto)
	assert.Empty(t, e.EvaluateRules(high))
}

func TestLoweredProbabilityThresholdTriggersMediumPrediction(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SetRule(&models.AlertRule{
		ID:      RuleProbabilityThreshold,
		Name:    "Probability threshold",
		Enabled: true,
		Condition: models.RuleCondition{
			Kind:        models.ConditionProbability,
			Probability: 0.5,
		},
	})
	require.True(t, e.DisableRule(RuleHighRiskAuto))

	p, err := e.CreatePrediction(&models.Prediction{
		PestID:      "P1",
		TargetArea:  "East Ridge",
		Probability: 0.55,
	}, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelMedium, p.RiskLevel)

	alerts := e.Alerts().ByPredictionID(p.ID)
	require.Len(t, alerts, 1, "the lowered probability rule alone must trigger")

	rule, ok := e.GetRule(RuleProbabilityThreshold)
	require.True(t, ok)
	assert.Equal(t, 1, rule.TriggerCount)
	assert.NotNil(t, rule.LastTriggered)
}

func TestRuleCRUD(t *testing.T) {
	e, _ := newTestEngine(t)

	r := e.SetRule(&models.AlertRule{
		Name:    "Custom medium",
		Enabled: true,
		Condition: models.RuleCondition{
			Kind:      models.ConditionRiskLevel,
			RiskLevel: models.RiskLevelMedium,
		},
	})
	require.NotEmpty(t, r.ID)
	assert.Equal(t, models.RuleActionCreateAlert, r.Action)
	assert.Len(t, e.GetRules(), 3)

	assert.True(t, e.DisableRule(r.ID))
	got, ok := e.GetRule(r.ID)
	require.True(t, ok)
	assert.False(t, got.Enabled)
	assert.True(t, e.EnableRule(r.ID))

	assert.True(t, e.DeleteRule(r.ID))
	assert.False(t, e.DeleteRule(r.ID))
	assert.False(t, e.EnableRule("missing"))
}

func TestUnknownConditionKindNeverMatches(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SetRule(&models.AlertRule{
		ID:        "bogus",
		Name:      "Bogus condition",
		Enabled:   true,
		Condition: models.RuleCondition{Kind: "phase_of_moon"},
	})

	p := &models.Prediction{RiskLevel: models.RiskLevelExtreme, Probability: 0.95}
	matched := e.EvaluateRules(p)
	for _, r := range matched {
		assert.NotEqual(t, "bogus", r.ID)
	}
}
