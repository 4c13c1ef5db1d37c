// Package engine orchestrates the prediction and alert workflow: it
// validates and stores predictions, runs the rule engine over them,
// raises alerts with the one-per-prediction guarantee, and drives the
// alert lifecycle and retention sweep.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/risk"
	"github.com/forestguard/internal/store"
)

// DefaultRetention is how long alerts are kept before the cleanup
// sweep removes them.
const DefaultRetention = 7 * 24 * time.Hour

// Config carries the engine's tunable windows. Zero values fall back
// to the defaults.
type Config struct {
	AlertTTL  time.Duration
	Retention time.Duration
}

// Notifier delivers an alert to its audience. Delivery is best effort:
// the return value is recorded in the log but never fails the alert.
// DispatchTo targets an explicitly named set of users instead of the
// subscription roster.
type Notifier interface {
	Dispatch(a *models.Alert) bool
	DispatchTo(a *models.Alert, recipients []string) bool
}

// Archiver receives alerts removed by the retention sweep.
type Archiver interface {
	ArchiveAlerts(alerts []models.Alert) error
}

// AlertConfig carries the caller-supplied fields of an explicitly
// triggered alert.
type AlertConfig struct {
	TargetAudience string
	Instructions   string
}

// Engine wires the stores, the risk model registry, the rule engine
// and the notification path together.
type Engine struct {
	cfg         Config
	predictions *store.PredictionStore
	alerts      *store.AlertStore
	rules       *store.RuleStore
	risk        *risk.Registry
	notifier    Notifier
	archiver    Archiver
	log         *logrus.Logger
}

func New(cfg Config, notifier Notifier, log *logrus.Logger) *Engine {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if log == nil {
		log = logrus.New()
	}
	e := &Engine{
		cfg:         cfg,
		predictions: store.NewPredictionStore(),
		alerts:      store.NewAlertStore(cfg.AlertTTL),
		rules:       store.NewRuleStore(),
		risk:        risk.NewRegistry(),
		notifier:    notifier,
		log:         log,
	}
	for _, r := range DefaultRules() {
		rule := r
		e.rules.Set(&rule)
	}
	return e
}

// SetArchiver attaches the destination for retention-swept alerts.
func (e *Engine) SetArchiver(a Archiver) { e.archiver = a }

func (e *Engine) Predictions() *store.PredictionStore { return e.predictions }
func (e *Engine) Alerts() *store.AlertStore           { return e.alerts }
func (e *Engine) Risk() *risk.Registry                { return e.risk }

// CreatePrediction validates and stores a prediction. When factors are
// supplied the probability and risk level are computed from them,
// overriding whatever the caller set.
func (e *Engine) CreatePrediction(p *models.Prediction, factors *models.Factors, userID string) (*models.Prediction, error) {
	if p.PestID == "" {
		return nil, &ValidationError{Field: "pest_id", Reason: "required"}
	}
	if p.TargetArea == "" {
		return nil, &ValidationError{Field: "target_area", Reason: "required"}
	}
	if factors == nil {
		if p.Probability < 0 || p.Probability > 1 {
			return nil, &ValidationError{Field: "probability", Reason: "must be between 0 and 1"}
		}
		if p.RiskLevel == "" {
			p.RiskLevel = risk.Classify(p.Probability)
		} else if !models.IsValidRiskLevel(p.RiskLevel) {
			return nil, &ValidationError{Field: "risk_level", Reason: "unknown level"}
		}
	} else {
		p.Probability = e.risk.Compute(p.ModelName, *factors)
		p.RiskLevel = risk.Classify(p.Probability)
		p.Temperature = fmt.Sprintf("%.1f°C", factors.Temperature)
		p.Humidity = fmt.Sprintf("%.0f%%", factors.Humidity)
		p.Rainfall = fmt.Sprintf("%.1fmm", factors.Rainfall)
		if p.InfluencingFactors == "" {
			p.InfluencingFactors = summarizeFactors(*factors)
		}
	}
	if p.PredictionDate.IsZero() {
		p.PredictionDate = time.Now()
	}
	if p.ValidityPeriod == "" {
		p.ValidityPeriod = fmt.Sprintf("%d days", risk.Horizon(p.ModelName))
	}
	if p.RecommendedActions == "" {
		p.RecommendedActions = recommendedActions(p.RiskLevel)
	}
	p.Status = models.PredictionStatusActive
	p.CreatedBy = userID

	e.predictions.Save(p)
	e.log.WithFields(logrus.Fields{
		"prediction": p.ID,
		"pest":       p.PestID,
		"area":       p.TargetArea,
		"risk_level": p.RiskLevel,
	}).Info("prediction created")

	e.autoTrigger(p, nil)
	return p, nil
}

// Generate builds a prediction from raw factor readings using the
// named risk model and stores it through CreatePrediction.
func (e *Engine) Generate(modelName, pestID, area string, factors models.Factors, userID string) (*models.Prediction, error) {
	p := &models.Prediction{
		PestID:     pestID,
		TargetArea: area,
		ModelName:  modelName,
		Confidence: certaintyFor(e.risk.Compute(modelName, factors)),
	}
	return e.CreatePrediction(p, &factors, userID)
}

func (e *Engine) GenerateFromHistory(pestID, area string, factors models.Factors, userID string) (*models.Prediction, error) {
	return e.Generate(risk.ModelHistory, pestID, area, factors, userID)
}

func (e *Engine) GenerateFromWeather(pestID, area string, factors models.Factors, userID string) (*models.Prediction, error) {
	return e.Generate(risk.ModelWeather, pestID, area, factors, userID)
}

func (e *Engine) GenerateFromEnvironment(pestID, area string, factors models.Factors, userID string) (*models.Prediction, error) {
	return e.Generate(risk.ModelEnvironment, pestID, area, factors, userID)
}

func (e *Engine) GenerateComprehensive(pestID, area string, factors models.Factors, userID string) (*models.Prediction, error) {
	return e.Generate(risk.ModelComprehensive, pestID, area, factors, userID)
}

// UpdatePrediction replaces a prediction's mutable fields. Only the
// creator may update; the risk level is re-derived when the probability
// changed and no explicit level came with the update.
func (e *Engine) UpdatePrediction(p *models.Prediction, userID string) (*models.Prediction, error) {
	existing, ok := e.predictions.Get(p.ID)
	if !ok {
		return nil, &NotFoundError{Resource: "prediction", ID: p.ID}
	}
	if existing.CreatedBy != "" && existing.CreatedBy != userID {
		return nil, &PermissionError{Resource: "prediction", ID: p.ID, UserID: userID}
	}
	if p.Probability < 0 || p.Probability > 1 {
		return nil, &ValidationError{Field: "probability", Reason: "must be between 0 and 1"}
	}
	if p.RiskLevel == "" {
		p.RiskLevel = risk.Classify(p.Probability)
	} else if !models.IsValidRiskLevel(p.RiskLevel) {
		return nil, &ValidationError{Field: "risk_level", Reason: "unknown level"}
	}
	if p.Status == "" {
		p.Status = existing.Status
	} else if p.Status != models.PredictionStatusActive && p.Status != models.PredictionStatusExpired {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	// Lifecycle fields a partial payload leaves zero keep their stored
	// values.
	if p.PredictionDate.IsZero() {
		p.PredictionDate = existing.PredictionDate
	}
	if p.PestID == "" {
		p.PestID = existing.PestID
	}
	if p.TargetArea == "" {
		p.TargetArea = existing.TargetArea
	}
	if p.ModelName == "" {
		p.ModelName = existing.ModelName
	}
	if p.Confidence == "" {
		p.Confidence = existing.Confidence
	}
	if p.ValidityPeriod == "" {
		p.ValidityPeriod = existing.ValidityPeriod
	}
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.UpdatedBy = userID
	e.predictions.Save(p)
	return p, nil
}

// DeletePrediction removes a prediction. Unknown ids report false
// without an error; a non-creator gets a permission error.
func (e *Engine) DeletePrediction(id, userID string) (bool, error) {
	existing, ok := e.predictions.Get(id)
	if !ok {
		return false, nil
	}
	if existing.CreatedBy != "" && existing.CreatedBy != userID {
		return false, &PermissionError{Resource: "prediction", ID: id, UserID: userID}
	}
	return e.predictions.Delete(id), nil
}

// GetPrediction looks a prediction up by id.
func (e *Engine) GetPrediction(id string) (*models.Prediction, error) {
	p, ok := e.predictions.Get(id)
	if !ok {
		return nil, &NotFoundError{Resource: "prediction", ID: id}
	}
	return p, nil
}

// CreateAlertFromPrediction raises an explicitly triggered alert for a
// prediction. If the prediction already carries a derived alert the
// existing alert is returned without error and nothing is created.
func (e *Engine) CreateAlertFromPrediction(predictionID, userID string, cfg AlertConfig) (*models.Alert, error) {
	p, ok := e.predictions.Get(predictionID)
	if !ok {
		return nil, &NotFoundError{Resource: "prediction", ID: predictionID}
	}
	a := e.buildAlert(p, models.AlertTypeTriggered, userID)
	if cfg.TargetAudience != "" {
		a.TargetAudience = cfg.TargetAudience
	}
	if cfg.Instructions != "" {
		a.Instructions = cfg.Instructions
	}
	stored, created := e.alerts.CreateForPrediction(a)
	if !created {
		e.log.WithFields(logrus.Fields{
			"prediction": predictionID,
			"alert":      stored.ID,
		}).Debug("prediction already has an alert")
		return stored, nil
	}
	e.log.WithFields(logrus.Fields{
		"alert":      stored.ID,
		"prediction": predictionID,
		"level":      stored.Level,
	}).Info("alert triggered")
	e.dispatch(stored)
	return stored, nil
}

// BatchTriggerAlerts triggers alerts for a set of predictions and
// returns the alerts that were actually created. Unknown ids and
// predictions that already have an alert are skipped. The reason is
// recorded on each created alert.
func (e *Engine) BatchTriggerAlerts(predictionIDs []string, reason, userID string) []models.Alert {
	var created []models.Alert
	for _, id := range predictionIDs {
		p, ok := e.predictions.Get(id)
		if !ok {
			e.log.WithField("prediction", id).Warn("batch trigger skipped unknown prediction")
			continue
		}
		a := e.buildAlert(p, models.AlertTypeTriggered, userID)
		if reason != "" {
			a.Message = fmt.Sprintf("%s Trigger reason: %s", a.Message, reason)
		}
		if stored, ok := e.alerts.CreateForPrediction(a); ok {
			created = append(created, *stored)
			e.dispatch(stored)
		}
	}
	return created
}

// CreateManualAlert stores an operator-entered alert. Manual alerts
// are exempt from the one-per-prediction rule.
func (e *Engine) CreateManualAlert(a *models.Alert, userID string) (*models.Alert, error) {
	if a.TargetArea == "" {
		return nil, &ValidationError{Field: "target_area", Reason: "required"}
	}
	if a.Message == "" {
		return nil, &ValidationError{Field: "message", Reason: "required"}
	}
	if a.Level == "" {
		a.Level = models.AlertLevelMedium
	} else if !models.IsValidAlertLevel(a.Level) {
		return nil, &ValidationError{Field: "level", Reason: "unknown level"}
	}
	a.Type = models.AlertTypeManual
	a.Status = models.AlertStatusActive
	a.CreatedBy = userID
	e.alerts.Save(a)
	e.dispatch(a)
	return a, nil
}

// GetAlert looks an alert up by id, with lazy expiry applied.
func (e *Engine) GetAlert(id string) (*models.Alert, error) {
	a, ok := e.alerts.Get(id)
	if !ok {
		return nil, &NotFoundError{Resource: "alert", ID: id}
	}
	return a, nil
}

// AcknowledgeAlert marks an alert as seen. False for unknown ids and
// illegal transitions.
func (e *Engine) AcknowledgeAlert(id, userID string) bool {
	ok := e.alerts.Acknowledge(id, userID)
	if ok {
		e.log.WithFields(logrus.Fields{"alert": id, "user": userID}).Info("alert acknowledged")
	}
	return ok
}

// HandleAlert closes an alert with a resolution note. False for
// unknown ids and terminal alerts.
func (e *Engine) HandleAlert(id, userID, note string) bool {
	ok := e.alerts.Handle(id, userID, note)
	if ok {
		e.log.WithFields(logrus.Fields{"alert": id, "user": userID}).Info("alert handled")
	}
	return ok
}

// SendAlertNotification re-sends an alert, either to its subscription
// roster or to an explicitly named audience. False only for unknown
// alert ids; delivery failures stay best-effort.
func (e *Engine) SendAlertNotification(alertID string, recipients []string) bool {
	a, ok := e.alerts.Get(alertID)
	if !ok {
		return false
	}
	if e.notifier == nil {
		return true
	}
	delivered := true
	if len(recipients) == 0 {
		delivered = e.notifier.Dispatch(a)
	} else {
		delivered = e.notifier.DispatchTo(a, recipients)
	}
	if !delivered {
		e.log.WithField("alert", alertID).Warn("alert notification delivery incomplete")
	}
	return true
}

// DeleteAlert removes an alert. Only the creator may delete; unknown
// ids report false without an error.
func (e *Engine) DeleteAlert(id, userID string) (bool, error) {
	existing, ok := e.alerts.Get(id)
	if !ok {
		return false, nil
	}
	if existing.CreatedBy != "" && existing.CreatedBy != userID {
		return false, &PermissionError{Resource: "alert", ID: id, UserID: userID}
	}
	return e.alerts.Delete(id), nil
}

// CleanupExpiredAlerts removes alerts past the retention window,
// handing them to the archiver when one is attached. Returns the
// number of alerts removed.
func (e *Engine) CleanupExpiredAlerts() int {
	removed := e.alerts.SweepExpired(e.cfg.Retention)
	if len(removed) == 0 {
		return 0
	}
	if e.archiver != nil {
		if err := e.archiver.ArchiveAlerts(removed); err != nil {
			e.log.WithError(err).Error("failed to archive swept alerts")
		}
	}
	e.log.WithField("count", len(removed)).Info("retention sweep removed alerts")
	return len(removed)
}

// EvaluatePredictionAccuracy scores a stored prediction against the
// observed outcome.
func (e *Engine) EvaluatePredictionAccuracy(predictionID string, occurred bool) (float64, risk.AccuracyLabel, error) {
	p, ok := e.predictions.Get(predictionID)
	if !ok {
		return 0, "", &NotFoundError{Resource: "prediction", ID: predictionID}
	}
	score, label := risk.EvaluateAccuracy(p.Probability, occurred)
	return score, label, nil
}

// Stats summarises both stores for dashboards.
type Stats struct {
	PredictionCount int                        `json:"prediction_count"`
	HighRiskCount   int                        `json:"high_risk_count"`
	ByRiskLevel     map[models.RiskLevel]int   `json:"by_risk_level"`
	AlertCount      int                        `json:"alert_count"`
	ByAlertLevel    map[models.AlertLevel]int  `json:"by_alert_level"`
	ByAlertStatus   map[models.AlertStatus]int `json:"by_alert_status"`
	ByArea          map[string]int             `json:"by_area"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		PredictionCount: e.predictions.Count(),
		HighRiskCount:   len(e.predictions.HighRisk()),
		ByRiskLevel:     e.predictions.CountByRiskLevel(),
		AlertCount:      e.alerts.Count(),
		ByAlertLevel:    e.alerts.CountByLevel(),
		ByAlertStatus:   e.alerts.CountByStatus(),
		ByArea:          e.alerts.CountByArea(),
	}
}

// autoTrigger evaluates the rules for a prediction and raises the
// derived alert when any rule matches. The per-prediction index keeps
// this idempotent. Matched is evaluated when nil.
func (e *Engine) autoTrigger(p *models.Prediction, matched []models.AlertRule) (*models.Alert, bool) {
	if matched == nil {
		matched = e.EvaluateRules(p)
	}
	if len(matched) == 0 {
		return nil, false
	}
	a := e.buildAlert(p, models.AlertTypeAuto, p.CreatedBy)
	stored, created := e.alerts.CreateForPrediction(a)
	if !created {
		return stored, false
	}
	for _, r := range matched {
		e.rules.MarkTriggered(r.ID)
	}
	e.log.WithFields(logrus.Fields{
		"alert":      stored.ID,
		"prediction": p.ID,
		"level":      stored.Level,
		"rules":      len(matched),
	}).Info("alert auto-triggered")
	e.dispatch(stored)
	return stored, true
}

// dispatch hands an alert to the notifier. Failures are logged, never
// propagated to the alert path.
func (e *Engine) dispatch(a *models.Alert) {
	if e.notifier == nil {
		return
	}
	if !e.notifier.Dispatch(a) {
		e.log.WithField("alert", a.ID).Warn("alert notification delivery incomplete")
	}
}

func (e *Engine) buildAlert(p *models.Prediction, typ models.AlertType, userID string) *models.Alert {
	return &models.Alert{
		PredictionID:   p.ID,
		PestID:         p.PestID,
		TargetArea:     p.TargetArea,
		Level:          alertLevelFor(p.RiskLevel),
		Type:           typ,
		Status:         models.AlertStatusActive,
		Urgency:        urgencyFor(p.RiskLevel),
		Severity:       severityFor(p.Probability),
		Certainty:      certaintyFor(p.Probability),
		Instructions:   p.RecommendedActions,
		Message:        formatAlertMessage(p),
		TargetAudience: "forest management",
		CreatedBy:      userID,
	}
}

func alertLevelFor(l models.RiskLevel) models.AlertLevel {
	switch l {
	case models.RiskLevelExtreme:
		return models.AlertLevelUrgent
	case models.RiskLevelHigh:
		return models.AlertLevelHigh
	case models.RiskLevelMedium:
		return models.AlertLevelMedium
	default:
		return models.AlertLevelLow
	}
}

func urgencyFor(l models.RiskLevel) models.Urgency {
	switch l {
	case models.RiskLevelExtreme:
		return models.UrgencyImmediate
	case models.RiskLevelHigh:
		return models.UrgencyUrgent
	case models.RiskLevelMedium:
		return models.UrgencyExpected
	default:
		return models.UrgencyFuture
	}
}

func severityFor(probability float64) models.Severity {
	switch {
	case probability >= 0.8:
		return models.SeverityExtreme
	case probability >= 0.6:
		return models.SeveritySevere
	case probability >= 0.4:
		return models.SeverityModerate
	case probability >= 0.2:
		return models.SeverityMinor
	default:
		return models.SeverityUnknown
	}
}

func certaintyFor(probability float64) string {
	if probability >= 0.6 {
		return "LIKELY"
	}
	return "POSSIBLE"
}

func formatAlertMessage(p *models.Prediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Pest outbreak warning for %s", p.RiskLevel, p.TargetArea)
	if p.PestID != "" {
		fmt.Fprintf(&b, ": %s", p.PestID)
	}
	fmt.Fprintf(&b, ", outbreak probability %.0f%%", p.Probability*100)
	if p.InfluencingFactors != "" {
		fmt.Fprintf(&b, ". Influencing factors: %s", p.InfluencingFactors)
	}
	if p.RecommendedActions != "" {
		fmt.Fprintf(&b, ". Recommended: %s", p.RecommendedActions)
	}
	return b.String()
}

func summarizeFactors(f models.Factors) string {
	var parts []string
	if f.Temperature != 0 {
		parts = append(parts, fmt.Sprintf("temperature %.1f°C", f.Temperature))
	}
	if f.Humidity != 0 {
		parts = append(parts, fmt.Sprintf("humidity %.0f%%", f.Humidity))
	}
	if f.Rainfall != 0 {
		parts = append(parts, fmt.Sprintf("rainfall %.1fmm", f.Rainfall))
	}
	if f.HistoricalCount > 0 {
		parts = append(parts, fmt.Sprintf("%d historical occurrences", f.HistoricalCount))
	}
	if f.VegetationCoverage != 0 {
		parts = append(parts, fmt.Sprintf("vegetation coverage %.0f%%", f.VegetationCoverage*100))
	}
	if f.SoilMoisture != 0 {
		parts = append(parts, fmt.Sprintf("soil moisture %.0f%%", f.SoilMoisture*100))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ")
}

func recommendedActions(l models.RiskLevel) string {
	switch l {
	case models.RiskLevelExtreme:
		return "Deploy emergency response teams, begin immediate treatment and quarantine affected stands"
	case models.RiskLevelHigh:
		return "Increase patrol frequency, prepare treatment equipment and notify area managers"
	case models.RiskLevelMedium:
		return "Schedule targeted inspections and monitor factor readings weekly"
	case models.RiskLevelLow:
		return "Continue routine monitoring"
	default:
		return "No action required"
	}
}
