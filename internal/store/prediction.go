package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forestguard/internal/models"
)

// PredictionStore keeps predictions in memory, ordered views sorted by
// creation time descending.
type PredictionStore struct {
	mu    sync.RWMutex
	items map[string]*models.Prediction
}

func NewPredictionStore() *PredictionStore {
	return &PredictionStore{items: make(map[string]*models.Prediction)}
}

// Save inserts or replaces a prediction. A missing id is assigned, and
// the updated timestamp is stamped on every write.
func (s *PredictionStore) Save(p *models.Prediction) *models.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	cp := *p
	s.items[p.ID] = &cp
	return p
}

func (s *PredictionStore) Get(id string) (*models.Prediction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (s *PredictionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

func (s *PredictionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns every prediction, newest first.
func (s *PredictionStore) All() []models.Prediction {
	return s.filter(func(*models.Prediction) bool { return true })
}

func (s *PredictionStore) ByPest(pestID string) []models.Prediction {
	return s.filter(func(p *models.Prediction) bool { return p.PestID == pestID })
}

func (s *PredictionStore) ByArea(area string) []models.Prediction {
	return s.filter(func(p *models.Prediction) bool { return p.TargetArea == area })
}

func (s *PredictionStore) ByRiskLevel(level models.RiskLevel) []models.Prediction {
	return s.filter(func(p *models.Prediction) bool { return p.RiskLevel == level })
}

func (s *PredictionStore) ByCreator(userID string) []models.Prediction {
	return s.filter(func(p *models.Prediction) bool { return p.CreatedBy == userID })
}

// ByDateRange matches prediction dates inside [start, end], inclusive
// on both ends.
func (s *PredictionStore) ByDateRange(start, end time.Time) []models.Prediction {
	return s.filter(func(p *models.Prediction) bool {
		return !p.PredictionDate.Before(start) && !p.PredictionDate.After(end)
	})
}

func (s *PredictionStore) HighRisk() []models.Prediction {
	return s.filter(func(p *models.Prediction) bool { return p.RiskLevel.IsHighRisk() })
}

// NeedingAttention returns high-risk predictions dated within the last
// seven days.
func (s *PredictionStore) NeedingAttention() []models.Prediction {
	cutoff := time.Now().AddDate(0, 0, -7)
	return s.filter(func(p *models.Prediction) bool {
		return p.RiskLevel.IsHighRisk() && !p.PredictionDate.Before(cutoff)
	})
}

func (s *PredictionStore) Recent(limit int) []models.Prediction {
	all := s.All()
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// Search matches the keyword case-insensitively against target area,
// pest id, influencing factors and risk level.
func (s *PredictionStore) Search(keyword string) []models.Prediction {
	kw := strings.ToLower(keyword)
	return s.filter(func(p *models.Prediction) bool {
		return strings.Contains(strings.ToLower(p.TargetArea), kw) ||
			strings.Contains(strings.ToLower(p.PestID), kw) ||
			strings.Contains(strings.ToLower(p.InfluencingFactors), kw) ||
			strings.Contains(strings.ToLower(string(p.RiskLevel)), kw)
	})
}

func (s *PredictionStore) CountByRiskLevel() map[models.RiskLevel]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.RiskLevel]int)
	for _, p := range s.items {
		counts[p.RiskLevel]++
	}
	return counts
}

func (s *PredictionStore) filter(keep func(*models.Prediction) bool) []models.Prediction {
	s.mu.RLock()
	out := make([]models.Prediction, 0)
	for _, p := range s.items {
		if keep(p) {
			out = append(out, *p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
