package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forestguard/internal/models"
)

// PreferenceStore holds per-user notification preferences.
type PreferenceStore struct {
	mu    sync.RWMutex
	items map[string]*models.NotificationPreference
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{items: make(map[string]*models.NotificationPreference)}
}

func (s *PreferenceStore) Set(p *models.NotificationPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now()
	cp := *p
	s.items[p.UserID] = &cp
}

func (s *PreferenceStore) Get(userID string) (*models.NotificationPreference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[userID]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (s *PreferenceStore) Delete(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[userID]; !ok {
		return false
	}
	delete(s.items, userID)
	return true
}

// All returns every preference ordered by user id.
func (s *PreferenceStore) All() []models.NotificationPreference {
	s.mu.RLock()
	out := make([]models.NotificationPreference, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, *p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// NotificationStore is the append-only delivery history.
type NotificationStore struct {
	mu    sync.RWMutex
	items []models.NotificationRecord
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Append(rec models.NotificationRecord) models.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	s.items = append(s.items, rec)
	return rec
}

// ByAlert returns the delivery records for an alert in send order.
func (s *NotificationStore) ByAlert(alertID string) []models.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NotificationRecord, 0)
	for _, rec := range s.items {
		if rec.AlertID == alertID {
			out = append(out, rec)
		}
	}
	return out
}

func (s *NotificationStore) All() []models.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NotificationRecord(nil), s.items...)
}
