package models

import (
	"time"
)

type AlertLevel string

const (
	AlertLevelInfo   AlertLevel = "INFO"
	AlertLevelLow    AlertLevel = "LOW"
	AlertLevelMedium AlertLevel = "MEDIUM"
	AlertLevelHigh   AlertLevel = "HIGH"
	AlertLevelUrgent AlertLevel = "URGENT"
)

func IsValidAlertLevel(l AlertLevel) bool {
	switch l {
	case AlertLevelInfo, AlertLevelLow, AlertLevelMedium, AlertLevelHigh, AlertLevelUrgent:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusHandled      AlertStatus = "HANDLED"
	AlertStatusExpired      AlertStatus = "EXPIRED"
)

// AlertType records how an alert came to exist. Prediction-derived
// alerts (auto and triggered) are subject to the one-per-prediction
// rule; manual alerts are not.
type AlertType string

const (
	AlertTypeAuto      AlertType = "AUTO_TRIGGERED"
	AlertTypeTriggered AlertType = "TRIGGERED"
	AlertTypeManual    AlertType = "MANUAL"
)

type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyExpected  Urgency = "EXPECTED"
	UrgencyFuture    Urgency = "FUTURE"
)

type Severity string

const (
	SeverityExtreme  Severity = "EXTREME"
	SeveritySevere   Severity = "SEVERE"
	SeverityModerate Severity = "MODERATE"
	SeverityMinor    Severity = "MINOR"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Alert is a warning raised for a prediction or entered by hand.
type Alert struct {
	ID             string      `json:"id"`
	PredictionID   string      `json:"prediction_id,omitempty"`
	PestID         string      `json:"pest_id,omitempty"`
	TargetArea     string      `json:"target_area"`
	Level          AlertLevel  `json:"level"`
	Type           AlertType   `json:"type"`
	AlertTime      time.Time   `json:"alert_time"`
	TargetAudience string      `json:"target_audience,omitempty"`
	Message        string      `json:"message"`
	Status         AlertStatus `json:"status"`
	Urgency        Urgency     `json:"urgency,omitempty"`
	Severity       Severity    `json:"severity,omitempty"`
	Certainty      string      `json:"certainty,omitempty"`
	Instructions   string      `json:"instructions,omitempty"`
	ResolutionNote string      `json:"resolution_note,omitempty"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time   `json:"acknowledged_at,omitempty"`
	HandledBy      string      `json:"handled_by,omitempty"`
	HandledAt      time.Time   `json:"handled_at,omitempty"`
	CreatedBy      string      `json:"created_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedBy      string      `json:"updated_by,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FromPrediction reports whether the alert is derived from a prediction
// and therefore subject to the one-alert-per-prediction rule.
func (a *Alert) FromPrediction() bool {
	return a.Type == AlertTypeAuto || a.Type == AlertTypeTriggered
}

// Terminal reports whether the alert can no longer change state.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusHandled || s == AlertStatusExpired
}
