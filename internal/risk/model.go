// Package risk turns environmental factor readings into outbreak
// probabilities and categorical risk levels. Everything here is a pure
// function so the thresholds and blending weights are testable in
// isolation.
package risk

import (
	"github.com/forestguard/internal/models"
)

// Model names double as the strategy keys callers select with.
const (
	ModelHistory       = "history"
	ModelWeather       = "weather"
	ModelEnvironment   = "environment"
	ModelComprehensive = "comprehensive"
)

// Forecast horizons in days, per model.
const (
	HorizonHistory       = 7
	HorizonWeather       = 3
	HorizonEnvironment   = 5
	HorizonComprehensive = 7
)

const baseProbability = 0.3

// Factor thresholds. Readings past these push the probability up.
const (
	tempOptimalMin      = 20.0
	tempOptimalMax      = 30.0
	humidityThreshold   = 70.0
	rainfallThreshold   = 50.0
	vegetationThreshold = 0.7
	soilThreshold       = 0.6
)

// Additive adjustments applied per recognized factor.
const (
	tempBoost         = 0.15
	humidityBoost     = 0.15
	rainfallBoost     = 0.1
	historyBoostPer   = 0.05
	historyBoostCap   = 0.2
	vegetationBoost   = 0.1
	soilMoistureBoost = 0.1
)

// Comprehensive blend weights: history 30%, weather 40%, environment 30%.
const (
	weightHistory     = 0.3
	weightWeather     = 0.4
	weightEnvironment = 0.3
)

// Strategy computes an outbreak probability in [0,1] from a factor set.
type Strategy func(f models.Factors) float64

// Registry maps model names to strategies. The default registry holds
// the four built-in models; callers may register replacements.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{
		ModelHistory:       FromHistory,
		ModelWeather:       FromWeather,
		ModelEnvironment:   FromEnvironment,
		ModelComprehensive: Comprehensive,
	}}
}

// Register adds or replaces a strategy under the given model name.
func (r *Registry) Register(name string, s Strategy) {
	r.strategies[name] = s
}

// Compute runs the named strategy. Unknown names fall back to the
// comprehensive model.
func (r *Registry) Compute(name string, f models.Factors) float64 {
	s, ok := r.strategies[name]
	if !ok {
		s = Comprehensive
	}
	return s(f)
}

// Horizon returns the forecast horizon in days for a model name.
func Horizon(name string) int {
	switch name {
	case ModelWeather:
		return HorizonWeather
	case ModelEnvironment:
		return HorizonEnvironment
	default:
		return HorizonComprehensive
	}
}

// FromHistory scores on historical occurrence counts alone.
func FromHistory(f models.Factors) float64 {
	p := baseProbability + historyAdjustment(f.HistoricalCount)
	return clamp(p)
}

// FromWeather scores on temperature, humidity and rainfall.
func FromWeather(f models.Factors) float64 {
	p := baseProbability
	if f.Temperature >= tempOptimalMin && f.Temperature <= tempOptimalMax {
		p += tempBoost
	}
	if f.Humidity > humidityThreshold {
		p += humidityBoost
	}
	if f.Rainfall > rainfallThreshold {
		p += rainfallBoost
	}
	return clamp(p)
}

// FromEnvironment scores on vegetation coverage and soil moisture.
func FromEnvironment(f models.Factors) float64 {
	p := baseProbability
	if f.VegetationCoverage > vegetationThreshold {
		p += vegetationBoost
	}
	if f.SoilMoisture > soilThreshold {
		p += soilMoistureBoost
	}
	return clamp(p)
}

// Comprehensive blends the three single-source models.
func Comprehensive(f models.Factors) float64 {
	p := weightHistory*FromHistory(f) +
		weightWeather*FromWeather(f) +
		weightEnvironment*FromEnvironment(f)
	return clamp(p)
}

func historyAdjustment(count int) float64 {
	adj := float64(count) * historyBoostPer
	if adj > historyBoostCap {
		adj = historyBoostCap
	}
	return adj
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Classify maps a probability to a risk level using fixed thresholds.
func Classify(probability float64) models.RiskLevel {
	switch {
	case probability >= 0.8:
		return models.RiskLevelExtreme
	case probability >= 0.6:
		return models.RiskLevelHigh
	case probability >= 0.4:
		return models.RiskLevelMedium
	case probability >= 0.2:
		return models.RiskLevelLow
	default:
		return models.RiskLevelMinimal
	}
}

type AccuracyLabel string

const (
	AccuracyHigh   AccuracyLabel = "HIGH"
	AccuracyMedium AccuracyLabel = "MEDIUM"
	AccuracyLow    AccuracyLabel = "LOW"
)

// EvaluateAccuracy scores a prediction against the observed outcome.
// The score is the predicted probability when the outbreak occurred and
// its complement when it did not.
func EvaluateAccuracy(predicted float64, occurred bool) (float64, AccuracyLabel) {
	score := predicted
	if !occurred {
		score = 1 - predicted
	}
	switch {
	case score >= 0.8:
		return score, AccuracyHigh
	case score >= 0.6:
		return score, AccuracyMedium
	default:
		return score, AccuracyLow
	}
}
