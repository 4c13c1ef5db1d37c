package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forestguard/internal/models"
)

// RuleStore is the registry of alert rules keyed by rule id.
type RuleStore struct {
	mu    sync.RWMutex
	items map[string]*models.AlertRule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{items: make(map[string]*models.AlertRule)}
}

// Set inserts or replaces a rule under its id, assigning one if empty.
func (s *RuleStore) Set(r *models.AlertRule) *models.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if prev, ok := s.items[r.ID]; ok {
		r.CreatedAt = prev.CreatedAt
		r.TriggerCount = prev.TriggerCount
		r.LastTriggered = prev.LastTriggered
	} else if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	cp := *r
	s.items[r.ID] = &cp
	return r
}

func (s *RuleStore) Get(id string) (*models.AlertRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

func (s *RuleStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// All returns every rule ordered by name.
func (s *RuleStore) All() []models.AlertRule {
	return s.filter(func(models.AlertRule) bool { return true })
}

func (s *RuleStore) Enabled() []models.AlertRule {
	return s.filter(func(r models.AlertRule) bool { return r.Enabled })
}

func (s *RuleStore) SetEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return false
	}
	r.Enabled = enabled
	r.UpdatedAt = time.Now()
	return true
}

// MarkTriggered bumps the rule's trigger statistics.
func (s *RuleStore) MarkTriggered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return
	}
	now := time.Now()
	r.LastTriggered = &now
	r.TriggerCount++
}

func (s *RuleStore) filter(keep func(models.AlertRule) bool) []models.AlertRule {
	s.mu.RLock()
	out := make([]models.AlertRule, 0)
	for _, r := range s.items {
		if keep(*r) {
			out = append(out, *r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
