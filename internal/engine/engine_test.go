package engine

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/risk"
)

type fakeNotifier struct {
	mu         sync.Mutex
	alerts     []models.Alert
	recipients []string
	result     bool
}

func (f *fakeNotifier) Dispatch(a *models.Alert) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, *a)
	return f.result
}

func (f *fakeNotifier) DispatchTo(a *models.Alert, recipients []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, *a)
	f.recipients = append(f.recipients, recipients...)
	return f.result
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func newTestEngine(t *testing.T) (*Engine, *fakeNotifier) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := &fakeNotifier{result: true}
	return New(Config{}, n, log), n
}

func TestCreatePredictionHighProbabilityTriggersUrgentAlert(t *testing.T) {
	e, n := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID:      "P1",
		TargetArea:  "East Ridge",
		Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelExtreme, p.RiskLevel)

	alerts := e.Alerts().ByPredictionID(p.ID)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertLevelUrgent, alerts[0].Level)
	assert.Equal(t, models.AlertTypeAuto, alerts[0].Type)
	assert.Equal(t, models.UrgencyImmediate, alerts[0].Urgency)
	assert.Equal(t, 1, n.count())
}

func TestCreatePredictionLowProbabilityTriggersNothing(t *testing.T) {
	e, n := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID:      "P1",
		TargetArea:  "East Ridge",
		Probability: 0.35,
	}, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelLow, p.RiskLevel)

	assert.Empty(t, e.Alerts().ByPredictionID(p.ID))
	assert.Zero(t, n.count())
}

func TestCreatePredictionValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreatePrediction(&models.Prediction{TargetArea: "East Ridge"}, nil, "u1")
	assert.True(t, IsValidation(err))

	_, err = e.CreatePrediction(&models.Prediction{PestID: "P1"}, nil, "u1")
	assert.True(t, IsValidation(err))

	_, err = e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 1.5,
	}, nil, "u1")
	assert.True(t, IsValidation(err))

	_, err = e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.5, RiskLevel: "BOGUS",
	}, nil, "u1")
	assert.True(t, IsValidation(err))
}

func TestCreatePredictionFromFactors(t *testing.T) {
	e, _ := newTestEngine(t)

	factors := models.Factors{
		Temperature:        25,
		Humidity:           80,
		Rainfall:           60,
		HistoricalCount:    4,
		VegetationCoverage: 0.8,
		SoilMoisture:       0.7,
	}
	p, err := e.CreatePrediction(&models.Prediction{
		PestID:     "P1",
		TargetArea: "East Ridge",
		ModelName:  risk.ModelWeather,
	}, &factors, "u1")
	require.NoError(t, err)

	assert.InDelta(t, 0.7, p.Probability, 1e-9)
	assert.Equal(t, models.RiskLevelHigh, p.RiskLevel)
	assert.Equal(t, "3 days", p.ValidityPeriod)
	assert.Contains(t, p.InfluencingFactors, "humidity 80%")
	assert.NotEmpty(t, p.RecommendedActions)
}

func TestGenerate(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.Generate(risk.ModelHistory, "P1", "North Slope", models.Factors{HistoricalCount: 10}, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.Probability, 1e-9)
	assert.Equal(t, models.RiskLevelMedium, p.RiskLevel)
	assert.Equal(t, "7 days", p.ValidityPeriod)
	assert.Equal(t, "POSSIBLE", p.Confidence)
}

func TestUpdatePredictionOwnership(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.3,
	}, nil, "u1")
	require.NoError(t, err)

	p.Probability = 0.45
	p.RiskLevel = ""
	updated, err := e.UpdatePrediction(p, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelMedium, updated.RiskLevel)

	_, err = e.UpdatePrediction(p, "intruder")
	assert.True(t, IsPermission(err))

	p.ID = "missing"
	_, err = e.UpdatePrediction(p, "u1")
	assert.True(t, IsNotFound(err))
}

func TestUpdatePredictionKeepsLifecycleFields(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.45,
	}, nil, "u1")
	require.NoError(t, err)

	// A partial payload, as the HTTP layer binds it: only the fields
	// the caller sent are set.
	updated, err := e.UpdatePrediction(&models.Prediction{
		ID:          p.ID,
		Probability: 0.65,
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, models.PredictionStatusActive, updated.Status)
	assert.Equal(t, p.PredictionDate, updated.PredictionDate)
	assert.Equal(t, "P1", updated.PestID)
	assert.Equal(t, "East Ridge", updated.TargetArea)
	assert.Equal(t, p.ValidityPeriod, updated.ValidityPeriod)
	assert.Equal(t, models.RiskLevelHigh, updated.RiskLevel)

	got, err := e.GetPrediction(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionStatusActive, got.Status)
	assert.False(t, got.PredictionDate.IsZero())

	_, err = e.UpdatePrediction(&models.Prediction{
		ID: p.ID, Probability: 0.65, Status: "DORMANT",
	}, "u1")
	assert.True(t, IsValidation(err))
}

func TestDeletePrediction(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.3,
	}, nil, "u1")
	require.NoError(t, err)

	ok, err := e.DeletePrediction(p.ID, "intruder")
	assert.False(t, ok)
	assert.True(t, IsPermission(err))

	ok, err = e.DeletePrediction("missing", "u1")
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = e.DeletePrediction(p.ID, "u1")
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestCreateAlertFromPredictionConcurrent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.DisableRule(RuleHighRiskAuto)
	e.DisableRule(RuleProbabilityThreshold)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	require.Empty(t, e.Alerts().ByPredictionID(p.ID))

	const goroutines = 8
	ids := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := e.CreateAlertFromPrediction(p.ID, "u1", AlertConfig{})
			if err == nil {
				ids <- a.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "every caller must observe the same alert")
	assert.Len(t, e.Alerts().ByPredictionID(p.ID), 1)
}

func TestCreateAlertFromPredictionUnknown(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CreateAlertFromPrediction("missing", "u1", AlertConfig{})
	assert.True(t, IsNotFound(err))
}

func TestAcknowledgeUnknownAlertLeavesNoTrace(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.False(t, e.AcknowledgeAlert("unknown-id", "u1"))
	assert.Zero(t, e.Alerts().Count())
}

func TestAlertLifecycleThroughEngine(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	alerts := e.Alerts().ByPredictionID(p.ID)
	require.Len(t, alerts, 1)
	id := alerts[0].ID

	require.True(t, e.AcknowledgeAlert(id, "ranger"))
	require.True(t, e.HandleAlert(id, "ranger", "treated"))
	assert.False(t, e.AcknowledgeAlert(id, "ranger"))
	assert.False(t, e.HandleAlert(id, "ranger", "again"))

	a, err := e.GetAlert(id)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusHandled, a.Status)
	assert.Equal(t, "treated", a.ResolutionNote)
}

func TestBatchTriggerAlerts(t *testing.T) {
	e, _ := newTestEngine(t)
	e.DisableRule(RuleHighRiskAuto)
	e.DisableRule(RuleProbabilityThreshold)

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := e.CreatePrediction(&models.Prediction{
			PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
		}, nil, "u1")
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	created := e.BatchTriggerAlerts(append(ids, "missing"), "ground survey confirmed larvae", "u1")
	assert.Len(t, created, 3)
	for _, a := range created {
		assert.Contains(t, a.Message, "ground survey confirmed larvae")
	}

	// Re-running creates nothing new.
	assert.Empty(t, e.BatchTriggerAlerts(ids, "", "u1"))
}

func TestManualAlert(t *testing.T) {
	e, n := newTestEngine(t)

	_, err := e.CreateManualAlert(&models.Alert{Message: "spotted beetles"}, "u1")
	assert.True(t, IsValidation(err))

	a, err := e.CreateManualAlert(&models.Alert{
		TargetArea: "East Ridge",
		Message:    "spotted beetles near the creek",
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertTypeManual, a.Type)
	assert.Equal(t, models.AlertLevelMedium, a.Level)
	assert.Equal(t, 1, n.count())
}

func TestCleanupArchivesSweptAlerts(t *testing.T) {
	e, _ := newTestEngine(t)
	var archived []models.Alert
	e.SetArchiver(archiverFunc(func(alerts []models.Alert) error {
		archived = append(archived, alerts...)
		return nil
	}))

	a, err := e.CreateManualAlert(&models.Alert{
		TargetArea: "East Ridge", Message: "old sighting",
	}, "u1")
	require.NoError(t, err)

	assert.Zero(t, e.CleanupExpiredAlerts())

	// Shrink retention to force the sweep to pick the alert up.
	e.cfg.Retention = 1
	removed := e.CleanupExpiredAlerts()
	assert.Equal(t, 1, removed)
	require.Len(t, archived, 1)
	assert.Equal(t, a.ID, archived[0].ID)
}

type archiverFunc func([]models.Alert) error

func (f archiverFunc) ArchiveAlerts(alerts []models.Alert) error { return f(alerts) }

func TestEvaluatePredictionAccuracy(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)

	score, label, err := e.EvaluatePredictionAccuracy(p.ID, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, score, 1e-9)
	assert.Equal(t, risk.AccuracyHigh, label)

	score, label, err = e.EvaluatePredictionAccuracy(p.ID, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, score, 1e-9)
	assert.Equal(t, risk.AccuracyLow, label)

	_, _, err = e.EvaluatePredictionAccuracy("missing", true)
	assert.True(t, IsNotFound(err))
}

func TestSendAlertNotification(t *testing.T) {
	e, n := newTestEngine(t)

	assert.False(t, e.SendAlertNotification("missing", nil))

	a, err := e.CreateManualAlert(&models.Alert{
		TargetArea: "East Ridge", Message: "sighting",
	}, "u1")
	require.NoError(t, err)

	require.True(t, e.SendAlertNotification(a.ID, nil))
	require.True(t, e.SendAlertNotification(a.ID, []string{"ranger-7"}))
	assert.Contains(t, n.recipients, "ranger-7")
}

func TestGenerateFromModelWrappers(t *testing.T) {
	e, _ := newTestEngine(t)

	p, err := e.GenerateFromWeather("P1", "East Ridge", models.Factors{Temperature: 25}, "u1")
	require.NoError(t, err)
	assert.Equal(t, risk.ModelWeather, p.ModelName)

	p, err = e.GenerateComprehensive("P1", "East Ridge", models.Factors{}, "u1")
	require.NoError(t, err)
	assert.Equal(t, risk.ModelComprehensive, p.ModelName)
}

func TestNotifierFailureDoesNotFailAlertPath(t *testing.T) {
	e, n := newTestEngine(t)
	n.result = false

	p, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	assert.Len(t, e.Alerts().ByPredictionID(p.ID), 1)
}

func TestCheckAlertTriggersIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.DisableRule(RuleHighRiskAuto)
	e.DisableRule(RuleProbabilityThreshold)

	for i := 0; i < 2; i++ {
		_, err := e.CreatePrediction(&models.Prediction{
			PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
		}, nil, "u1")
		require.NoError(t, err)
	}
	e.EnableRule(RuleHighRiskAuto)

	created := e.CheckAlertTriggers(context.Background())
	assert.Len(t, created, 2)
	assert.Empty(t, e.CheckAlertTriggers(context.Background()))
}

func TestCheckAlertTriggersHonoursContext(t *testing.T) {
	e, _ := newTestEngine(t)
	e.DisableRule(RuleHighRiskAuto)
	e.DisableRule(RuleProbabilityThreshold)
	_, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	e.EnableRule(RuleHighRiskAuto)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, e.CheckAlertTriggers(ctx))
}

func TestStats(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreatePrediction(&models.Prediction{
		PestID: "P1", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	_, err = e.CreatePrediction(&models.Prediction{
		PestID: "P2", TargetArea: "North Slope", Probability: 0.1,
	}, nil, "u1")
	require.NoError(t, err)

	st := e.Stats()
	assert.Equal(t, 2, st.PredictionCount)
	assert.Equal(t, 1, st.HighRiskCount)
	assert.Equal(t, 1, st.AlertCount)
	assert.Equal(t, 1, st.ByRiskLevel[models.RiskLevelExtreme])
	assert.Equal(t, 1, st.ByAlertLevel[models.AlertLevelUrgent])
	assert.Equal(t, 1, st.ByAlertStatus[models.AlertStatusActive])
}
