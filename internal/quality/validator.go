// Package quality scores incoming readings for plausibility.
package quality

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
)

// Score penalties.
const (
	penaltyRange       = 0.3
	penaltyUnit        = 0.2
	penaltyStale       = 0.1
	penaltyFuture      = 0.2
	penaltyRate        = 0.2
	penaltyStuck       = 0.3
	validScore         = 0.5
	staleAfter         = 60 * time.Minute
	stuckEpsilon       = 0.01
	stuckMinHistory    = 3
	stuckHistoryWindow = 5
)

// Recommendations attached to a result.
const (
	RecommendCalibration = "Review sensor calibration and maintenance schedule"
	RecommendInspection  = "Consider marking sensor for immediate inspection"
	RecommendMechanical  = "Check sensor for physical obstructions or mechanical failure"
	RecommendMounting    = "Verify sensor mounting and environmental conditions"
)

type valueRange struct {
	min, max float64
	unit     string
}

var ranges = map[entities.SensorType]valueRange{
	entities.SensorTypeWindSpeed:   {min: 0, max: 200, unit: "mph"},
	entities.SensorTypeTemperature: {min: -50, max: 60, unit: "celsius"},
	entities.SensorTypeWaveHeight:  {min: 0, max: 15, unit: "meters"},
}

// maxRatePerMinute is the largest physically plausible change per minute.
var maxRatePerMinute = map[entities.SensorType]float64{
	entities.SensorTypeWindSpeed:   20,
	entities.SensorTypeTemperature: 10,
	entities.SensorTypeWaveHeight:  1.5,
}

// Sample is a prior reading used for consistency checks.
type Sample struct {
	Value     float64
	Timestamp time.Time
}

// Result is the outcome of a quality assessment.
type Result struct {
	IsValid         bool     `json:"is_valid"`
	QualityScore    float64  `json:"quality_score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Validate scores a reading. previous is newest first; now is the reference
// time for staleness checks.
func Validate(sensorType entities.SensorType, value float64, unit string, ts time.Time, previous []Sample, now time.Time) Result {
	score := 1.0
	issues := []string{}
	penalize := func(p float64, issue string) {
		// Work in hundredths so 1 - 0.3 - 0.2 lands exactly on 0.5.
		score = math.Round((score-p)*100) / 100
		issues = append(issues, issue)
	}

	if r, ok := ranges[sensorType]; ok {
		if value < r.min || value > r.max {
			penalize(penaltyRange, fmt.Sprintf("Value %s %s is outside expected range (%s-%s %s)",
				num(value), unit, num(r.min), num(r.max), r.unit))
		}
		if unit != r.unit {
			penalize(penaltyUnit, fmt.Sprintf("Unit mismatch: expected %s, got %s", r.unit, unit))
		}
	}

	age := now.Sub(ts)
	if age.Abs() > staleAfter {
		penalize(penaltyStale, fmt.Sprintf("Reading timestamp is %.0f minutes old", age.Abs().Minutes()))
	}
	if ts.After(now) {
		penalize(penaltyFuture, "Reading timestamp is in the future")
	}

	if len(previous) > 0 {
		last := previous[0]
		if maxRate, ok := maxRatePerMinute[sensorType]; ok {
			minutes := ts.Sub(last.Timestamp).Abs().Minutes()
			if minutes > 0 {
				rate := math.Abs(value-last.Value) / minutes
				if rate > maxRate {
					penalize(penaltyRate, fmt.Sprintf("Unrealistic rate of change: %.2f %s/min", rate, unit))
				}
			}
		}

		recent := previous[:min(len(previous), stuckHistoryWindow)]
		if len(recent) >= stuckMinHistory && allNear(recent, value) {
			penalize(penaltyStuck, "Sensor may be stuck (identical readings)")
		}
	}

	recommendations := []string{}
	if len(issues) > 0 {
		recommendations = append(recommendations, RecommendCalibration)
		if score < validScore {
			recommendations = append(recommendations, RecommendInspection)
		}
		if anyContains(issues, "stuck") {
			recommendations = append(recommendations, RecommendMechanical)
		}
		if anyContains(issues, "rate of change") {
			recommendations = append(recommendations, RecommendMounting)
		}
	}

	return Result{
		IsValid:         score >= validScore,
		QualityScore:    math.Max(0, score),
		Issues:          issues,
		Recommendations: recommendations,
	}
}

func allNear(samples []Sample, value float64) bool {
	for _, s := range samples {
		if math.Abs(s.Value-value) >= stuckEpsilon {
			return false
		}
	}
	return true
}

func anyContains(items []string, substr string) bool {
	for _, item := range items {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
