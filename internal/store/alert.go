package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forestguard/internal/models"
)

// DefaultAlertTTL governs how long an untouched alert stays active
// before reads surface it as expired. Retention (how long an alert is
// kept at all) is a separate, longer window owned by the cleanup sweep.
const DefaultAlertTTL = 72 * time.Hour

// AlertStore keeps alerts in memory plus a predictionID→alertIDs index
// used to enforce the one-prediction-derived-alert-per-prediction rule.
// Expiry is lazy: reads surface stale alerts as EXPIRED without a write.
type AlertStore struct {
	mu           sync.RWMutex
	items        map[string]*models.Alert
	byPrediction map[string][]string
	ttl          time.Duration
}

func NewAlertStore(ttl time.Duration) *AlertStore {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	return &AlertStore{
		items:        make(map[string]*models.Alert),
		byPrediction: make(map[string][]string),
		ttl:          ttl,
	}
}

// Save inserts or replaces an alert, maintaining the prediction index.
func (s *AlertStore) Save(a *models.Alert) *models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(a)
}

func (s *AlertStore) saveLocked(a *models.Alert) *models.Alert {
	now := time.Now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.AlertTime.IsZero() {
		a.AlertTime = a.CreatedAt
	}
	a.UpdatedAt = now

	if prev, ok := s.items[a.ID]; ok {
		if prev.PredictionID != a.PredictionID {
			s.unindexLocked(prev)
			if a.PredictionID != "" {
				s.byPrediction[a.PredictionID] = append(s.byPrediction[a.PredictionID], a.ID)
			}
		}
	} else if a.PredictionID != "" {
		s.byPrediction[a.PredictionID] = append(s.byPrediction[a.PredictionID], a.ID)
	}

	cp := *a
	s.items[a.ID] = &cp
	return a
}

// CreateForPrediction atomically checks the prediction index and
// inserts the alert only if the prediction has no prediction-derived
// alert yet. It returns the stored alert and true on insert, or the
// existing alert and false when one was already there.
func (s *AlertStore) CreateForPrediction(a *models.Alert) (*models.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byPrediction[a.PredictionID] {
		if existing, ok := s.items[id]; ok && existing.FromPrediction() {
			cp := s.viewLocked(existing)
			return &cp, false
		}
	}
	s.saveLocked(a)
	return a, true
}

func (s *AlertStore) Get(id string) (*models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, false
	}
	cp := s.viewLocked(a)
	return &cp, true
}

func (s *AlertStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	s.unindexLocked(a)
	delete(s.items, id)
	return true
}

func (s *AlertStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Acknowledge moves an alert to ACKNOWLEDGED. Legal from ACTIVE and,
// idempotently, from ACKNOWLEDGED; false for unknown ids and any other
// state, including lazily expired alerts.
func (s *AlertStore) Acknowledge(id, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	switch s.effectiveStatusLocked(a) {
	case models.AlertStatusActive, models.AlertStatusAcknowledged:
	default:
		return false
	}
	a.Status = models.AlertStatusAcknowledged
	a.AcknowledgedBy = userID
	a.AcknowledgedAt = time.Now()
	a.UpdatedAt = a.AcknowledgedAt
	a.UpdatedBy = userID
	return true
}

// Handle moves an alert to HANDLED, recording the actor and resolution
// note. Legal from any non-terminal state; acknowledgement first is not
// required.
func (s *AlertStore) Handle(id, userID, note string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	if s.effectiveStatusLocked(a).Terminal() {
		return false
	}
	a.Status = models.AlertStatusHandled
	a.HandledBy = userID
	a.HandledAt = time.Now()
	a.ResolutionNote = note
	a.UpdatedAt = a.HandledAt
	a.UpdatedBy = userID
	return true
}

// SweepExpired deletes alerts older than the retention window and
// returns the removed records, oldest first, for archiving.
func (s *AlertStore) SweepExpired(retention time.Duration) []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	var removed []models.Alert
	for id, a := range s.items {
		if a.CreatedAt.Before(cutoff) {
			removed = append(removed, s.viewLocked(a))
			s.unindexLocked(a)
			delete(s.items, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool {
		return removed[i].CreatedAt.Before(removed[j].CreatedAt)
	})
	return removed
}

func (s *AlertStore) All() []models.Alert {
	return s.filter(func(models.Alert) bool { return true })
}

func (s *AlertStore) ByPredictionID(predictionID string) []models.Alert {
	return s.filter(func(a models.Alert) bool { return a.PredictionID == predictionID })
}

func (s *AlertStore) ByLevel(level models.AlertLevel) []models.Alert {
	return s.filter(func(a models.Alert) bool { return a.Level == level })
}

// ByStatus filters on the lazily expired view of each alert's status.
func (s *AlertStore) ByStatus(status models.AlertStatus) []models.Alert {
	return s.filter(func(a models.Alert) bool { return a.Status == status })
}

func (s *AlertStore) ByArea(area string) []models.Alert {
	return s.filter(func(a models.Alert) bool { return a.TargetArea == area })
}

func (s *AlertStore) Active() []models.Alert {
	return s.ByStatus(models.AlertStatusActive)
}

func (s *AlertStore) Unhandled() []models.Alert {
	return s.filter(func(a models.Alert) bool {
		return a.Status == models.AlertStatusActive || a.Status == models.AlertStatusAcknowledged
	})
}

func (s *AlertStore) Urgent() []models.Alert {
	return s.filter(func(a models.Alert) bool {
		return a.Level == models.AlertLevelUrgent && a.Status == models.AlertStatusActive
	})
}

func (s *AlertStore) Recent(limit int) []models.Alert {
	all := s.All()
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

func (s *AlertStore) Search(keyword string) []models.Alert {
	kw := strings.ToLower(keyword)
	return s.filter(func(a models.Alert) bool {
		return strings.Contains(strings.ToLower(a.Message), kw) ||
			strings.Contains(strings.ToLower(a.TargetArea), kw) ||
			strings.Contains(strings.ToLower(string(a.Level)), kw)
	})
}

func (s *AlertStore) CountByLevel() map[models.AlertLevel]int {
	counts := make(map[models.AlertLevel]int)
	for _, a := range s.All() {
		counts[a.Level]++
	}
	return counts
}

func (s *AlertStore) CountByStatus() map[models.AlertStatus]int {
	counts := make(map[models.AlertStatus]int)
	for _, a := range s.All() {
		counts[a.Status]++
	}
	return counts
}

func (s *AlertStore) CountByArea() map[string]int {
	counts := make(map[string]int)
	for _, a := range s.All() {
		counts[a.TargetArea]++
	}
	return counts
}

// viewLocked copies an alert with lazy expiry applied.
func (s *AlertStore) viewLocked(a *models.Alert) models.Alert {
	cp := *a
	cp.Status = s.effectiveStatusLocked(a)
	return cp
}

func (s *AlertStore) effectiveStatusLocked(a *models.Alert) models.AlertStatus {
	if a.Status != models.AlertStatusHandled && time.Since(a.CreatedAt) > s.ttl {
		return models.AlertStatusExpired
	}
	return a.Status
}

func (s *AlertStore) unindexLocked(a *models.Alert) {
	if a.PredictionID == "" {
		return
	}
	ids := s.byPrediction[a.PredictionID]
	for i, id := range ids {
		if id == a.ID {
			s.byPrediction[a.PredictionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byPrediction[a.PredictionID]) == 0 {
		delete(s.byPrediction, a.PredictionID)
	}
}

func (s *AlertStore) filter(keep func(models.Alert) bool) []models.Alert {
	s.mu.RLock()
	out := make([]models.Alert, 0)
	for _, a := range s.items {
		view := s.viewLocked(a)
		if keep(view) {
			out = append(out, view)
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
