package detector

import "github.com/coastcare/coastal-alerts/internal/datastore/entities"

// Thresholds are the four ascending absolute bands for a sensor type.
type Thresholds struct {
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
	Extreme  float64 `json:"extreme"`
}

// RateThresholds bound the absolute rate of change, in units per hour.
type RateThresholds struct {
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// Comparison operators used by bands.
const (
	OperatorGreaterOrEqual = "greater_or_equal"
	OperatorLessOrEqual    = "less_or_equal"
)

// band is one absolute threshold rule. Bands of a profile are checked in
// order and the first match wins.
type band struct {
	name     string
	operator string
	bound    func(Thresholds) float64
	severity entities.Severity
	prefix   string
}

// profile holds everything detection needs to know about one sensor type.
type profile struct {
	unit       string
	alertType  entities.AlertType
	thresholds Thresholds
	rate       RateThresholds
	bands      []band
}

func extremeBound(t Thresholds) float64  { return t.Extreme }
func criticalBound(t Thresholds) float64 { return t.Critical }
func highBound(t Thresholds) float64     { return t.High }
func lowBound(t Thresholds) float64      { return t.Low }

// upperBands builds the extreme, critical, high sequence shared by every type
// that only escalates upward.
func upperBands(extreme, high, elevated string) []band {
	return []band{
		{name: "extreme", operator: OperatorGreaterOrEqual, bound: extremeBound, severity: entities.SeverityCritical, prefix: extreme},
		{name: "critical", operator: OperatorGreaterOrEqual, bound: criticalBound, severity: entities.SeverityHigh, prefix: high},
		{name: "high", operator: OperatorGreaterOrEqual, bound: highBound, severity: entities.SeverityMedium, prefix: elevated},
	}
}

var profiles = map[entities.SensorType]profile{
	entities.SensorTypeWindSpeed: {
		unit:       "mph",
		alertType:  entities.AlertTypeStormSurge,
		thresholds: Thresholds{Low: 15, High: 25, Critical: 35, Extreme: 50},
		rate:       RateThresholds{High: 10, Critical: 20},
		bands:      upperBands("Extreme wind speeds detected", "High wind speeds detected", "Elevated wind speeds"),
	},
	entities.SensorTypeWaveHeight: {
		unit:       "meters",
		alertType:  entities.AlertTypeExtremeWaves,
		thresholds: Thresholds{Low: 2, High: 4, Critical: 6, Extreme: 8},
		rate:       RateThresholds{High: 1, Critical: 2},
		bands:      upperBands("Extreme wave height", "High wave height", "Elevated wave height"),
	},
	entities.SensorTypeTemperature: {
		unit:       "°C",
		alertType:  entities.AlertTypeEquipmentFailure,
		thresholds: Thresholds{Low: 10, High: 35, Critical: 40, Extreme: 45},
		rate:       RateThresholds{High: 5, Critical: 10},
		// Temperature alarms on cold as well as heat, so the last band is a
		// lower bound on Low instead of an upper bound on High.
		bands: []band{
			{name: "extreme", operator: OperatorGreaterOrEqual, bound: extremeBound, severity: entities.SeverityCritical, prefix: "Extreme temperature"},
			{name: "critical", operator: OperatorGreaterOrEqual, bound: criticalBound, severity: entities.SeverityHigh, prefix: "High temperature"},
			{name: "low", operator: OperatorLessOrEqual, bound: lowBound, severity: entities.SeverityMedium, prefix: "Low temperature"},
		},
	},
	entities.SensorTypeWaterLevel: {
		unit:       "meters",
		alertType:  entities.AlertTypeHighWater,
		thresholds: Thresholds{Low: 1, High: 2, Critical: 3, Extreme: 4},
		rate:       RateThresholds{High: 0.5, Critical: 1},
		bands:      upperBands("Extreme water level", "High water level", "Elevated water level"),
	},
}

// ThresholdsFor returns the absolute bands for a sensor type.
func ThresholdsFor(t entities.SensorType) (Thresholds, bool) {
	p, ok := profiles[t]
	return p.thresholds, ok
}

// RateThresholdsFor returns the rate-of-change bounds for a sensor type.
func RateThresholdsFor(t entities.SensorType) (RateThresholds, bool) {
	p, ok := profiles[t]
	return p.rate, ok
}

// UnitFor returns the display unit for a sensor type, or "" if unknown.
// Schema output and notification payloads both use it.
func UnitFor(t entities.SensorType) string {
	return profiles[t].unit
}

// AlertTypeFor returns the alert type raised by absolute thresholds of a
// sensor type.
func AlertTypeFor(t entities.SensorType) (entities.AlertType, bool) {
	p, ok := profiles[t]
	return p.alertType, ok
}

func compare(operator string, value, bound float64) bool {
	switch operator {
	case OperatorGreaterOrEqual:
		return value >= bound
	case OperatorLessOrEqual:
		return value <= bound
	default:
		return false
	}
}
