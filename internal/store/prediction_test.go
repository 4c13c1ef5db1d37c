package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestguard/internal/models"
)

func newPrediction(pestID, area string, level models.RiskLevel) *models.Prediction {
	return &models.Prediction{
		PestID:         pestID,
		TargetArea:     area,
		PredictionDate: time.Now(),
		RiskLevel:      level,
		Probability:    0.5,
		Status:         models.PredictionStatusActive,
		CreatedBy:      "u1",
	}
}

func TestPredictionStoreCRUD(t *testing.T) {
	s := NewPredictionStore()

	p := s.Save(newPrediction("P1", "East Ridge", models.RiskLevelMedium))
	require.NotEmpty(t, p.ID)
	require.False(t, p.CreatedAt.IsZero())

	got, ok := s.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "P1", got.PestID)

	// The stored record is insulated from caller mutation.
	got.PestID = "mutated"
	again, _ := s.Get(p.ID)
	assert.Equal(t, "P1", again.PestID)

	assert.True(t, s.Delete(p.ID))
	assert.False(t, s.Delete(p.ID))
	_, ok = s.Get(p.ID)
	assert.False(t, ok)
}

func TestPredictionQueries(t *testing.T) {
	s := NewPredictionStore()

	s.Save(newPrediction("P1", "East Ridge", models.RiskLevelHigh))
	s.Save(newPrediction("P1", "North Slope", models.RiskLevelExtreme))
	s.Save(newPrediction("P2", "East Ridge", models.RiskLevelLow))

	assert.Len(t, s.ByPest("P1"), 2)
	assert.Len(t, s.ByArea("East Ridge"), 2)
	assert.Len(t, s.ByRiskLevel(models.RiskLevelLow), 1)
	assert.Len(t, s.HighRisk(), 2)
	assert.Equal(t, 3, s.Count())

	counts := s.CountByRiskLevel()
	assert.Equal(t, 1, counts[models.RiskLevelHigh])
	assert.Equal(t, 1, counts[models.RiskLevelExtreme])
	assert.Equal(t, 1, counts[models.RiskLevelLow])
}

func TestPredictionDateRangeInclusive(t *testing.T) {
	s := NewPredictionStore()
	day := func(offset int) time.Time {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	for i := 0; i < 5; i++ {
		p := newPrediction("P1", "East Ridge", models.RiskLevelLow)
		p.PredictionDate = day(i)
		s.Save(p)
	}

	got := s.ByDateRange(day(1), day(3))
	assert.Len(t, got, 3)
}

func TestPredictionOrderingAndPagination(t *testing.T) {
	s := NewPredictionStore()
	for i := 0; i < 5; i++ {
		p := newPrediction("P1", "East Ridge", models.RiskLevelLow)
		p.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		s.Save(p)
	}

	all := s.All()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	assert.Len(t, Paginate(all, 0, 2), 2)
	assert.Len(t, Paginate(all, 2, 2), 1)
	assert.Empty(t, Paginate(all, 3, 2))
	assert.Equal(t, all[2].ID, Paginate(all, 1, 2)[0].ID)

	assert.Len(t, s.Recent(3), 3)
	assert.Equal(t, all[0].ID, s.Recent(3)[0].ID)
}

func TestPredictionSearch(t *testing.T) {
	s := NewPredictionStore()
	p := newPrediction("pine-moth", "East Ridge", models.RiskLevelHigh)
	p.InfluencingFactors = "warm winter, dense canopy"
	s.Save(p)
	s.Save(newPrediction("bark-beetle", "North Slope", models.RiskLevelLow))

	assert.Len(t, s.Search("ridge"), 1)
	assert.Len(t, s.Search("canopy"), 1)
	assert.Len(t, s.Search("beetle"), 1)
	assert.Len(t, s.Search("HIGH"), 1)
	assert.Empty(t, s.Search("swamp"))
}

func TestNeedingAttention(t *testing.T) {
	s := NewPredictionStore()

	recent := newPrediction("P1", "East Ridge", models.RiskLevelHigh)
	s.Save(recent)

	stale := newPrediction("P1", "East Ridge", models.RiskLevelExtreme)
	stale.PredictionDate = time.Now().AddDate(0, 0, -10)
	s.Save(stale)

	lowRisk := newPrediction("P1", "East Ridge", models.RiskLevelLow)
	s.Save(lowRisk)

	got := s.NeedingAttention()
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)
}
