package models

import (
	"time"
)

type RiskLevel string

const (
	RiskLevelMinimal RiskLevel = "MINIMAL"
	RiskLevelLow     RiskLevel = "LOW"
	RiskLevelMedium  RiskLevel = "MEDIUM"
	RiskLevelHigh    RiskLevel = "HIGH"
	RiskLevelExtreme RiskLevel = "EXTREME"
)

// rank orders risk levels so that rules can compare them with >=.
var riskLevelRank = map[RiskLevel]int{
	RiskLevelMinimal: 0,
	RiskLevelLow:     1,
	RiskLevelMedium:  2,
	RiskLevelHigh:    3,
	RiskLevelExtreme: 4,
}

// AtLeast reports whether l is the same level as other or higher.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskLevelRank[l] >= riskLevelRank[other]
}

// IsHighRisk reports whether the level is HIGH or EXTREME.
func (l RiskLevel) IsHighRisk() bool {
	return l.AtLeast(RiskLevelHigh)
}

func IsValidRiskLevel(l RiskLevel) bool {
	_, ok := riskLevelRank[l]
	return ok
}

type PredictionStatus string

const (
	PredictionStatusActive  PredictionStatus = "ACTIVE"
	PredictionStatusExpired PredictionStatus = "EXPIRED"
)

// Prediction is a forecast that a pest will break out in a target area.
type Prediction struct {
	ID                 string           `json:"id"`
	PestID             string           `json:"pest_id"`
	TargetArea         string           `json:"target_area"`
	PredictionDate     time.Time        `json:"prediction_date"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	Probability        float64          `json:"probability"`
	InfluencingFactors string           `json:"influencing_factors,omitempty"`
	RecommendedActions string           `json:"recommended_actions,omitempty"`
	ModelName          string           `json:"model_name,omitempty"`
	Weather            string           `json:"weather,omitempty"`
	Temperature        string           `json:"temperature,omitempty"`
	Humidity           string           `json:"humidity,omitempty"`
	Rainfall           string           `json:"rainfall,omitempty"`
	Confidence         string           `json:"confidence,omitempty"`
	ValidityPeriod     string           `json:"validity_period,omitempty"`
	Status             PredictionStatus `json:"status"`
	CreatedBy          string           `json:"created_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedBy          string           `json:"updated_by,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Factors carries the environmental inputs a risk model reads. A zero
// value means the factor was not observed; models only weigh the subset
// they are defined over.
type Factors struct {
	Temperature        float64 `json:"temperature,omitempty"`         // degrees Celsius
	Humidity           float64 `json:"humidity,omitempty"`            // percent
	Rainfall           float64 `json:"rainfall,omitempty"`            // millimetres
	HistoricalCount    int     `json:"historical_count,omitempty"`    // occurrences in the lookback window
	VegetationCoverage float64 `json:"vegetation_coverage,omitempty"` // fraction in [0,1]
	SoilMoisture       float64 `json:"soil_moisture,omitempty"`       // fraction in [0,1]
}
