package report

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestguard/internal/engine"
	"github.com/forestguard/internal/models"
)

func newTestEngine() *engine.Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return engine.New(engine.Config{}, nil, log)
}

func TestCollect(t *testing.T) {
	e := newTestEngine()

	_, err := e.CreatePrediction(&models.Prediction{
		PestID: "pine-moth", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)
	_, err = e.CreatePrediction(&models.Prediction{
		PestID: "bark-beetle", TargetArea: "North Slope", Probability: 0.1,
	}, nil, "u1")
	require.NoError(t, err)

	g := NewGenerator(e, "noreply@forestguard.example")
	data := g.Collect(time.Now().Add(-24*time.Hour), time.Now())

	assert.Equal(t, 1, data.Summary.TotalAlerts)
	assert.Equal(t, 1, data.Summary.UrgentAlerts)
	assert.Equal(t, 2, data.Summary.Predictions)
	assert.Equal(t, 1, data.Summary.HighRiskCount)
	require.Len(t, data.TopAreas, 1)
	assert.Equal(t, "East Ridge", data.TopAreas[0].Area)
	assert.Len(t, data.HighRisk, 1)
	assert.Len(t, data.OpenAlerts, 1)
}

func TestCollectExcludesAlertsOutsideWindow(t *testing.T) {
	e := newTestEngine()
	_, err := e.CreatePrediction(&models.Prediction{
		PestID: "pine-moth", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)

	g := NewGenerator(e, "noreply@forestguard.example")
	data := g.Collect(time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	assert.Zero(t, data.Summary.TotalAlerts)
}

func TestBuildRendersDigest(t *testing.T) {
	e := newTestEngine()
	_, err := e.CreatePrediction(&models.Prediction{
		PestID: "pine-moth", TargetArea: "East Ridge", Probability: 0.85,
	}, nil, "u1")
	require.NoError(t, err)

	g := NewGenerator(e, "noreply@forestguard.example")
	m, err := g.Build(time.Now().Add(-24*time.Hour), time.Now(), []string{"ranger@forest.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"noreply@forestguard.example"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ranger@forest.example"}, m.GetHeader("To"))
	assert.Contains(t, m.GetHeader("Subject")[0], "ForestGuard Digest")
}
