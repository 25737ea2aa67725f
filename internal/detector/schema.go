package detector

import (
	"slices"
	"strings"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
)

// Schema describes the detection rules for the dashboard and API clients.
type Schema struct {
	SensorTypes     []SensorTypeSchema `json:"sensorTypes"`
	AlertTypes      []string           `json:"alertTypes"`
	Severities      []string           `json:"severities"`
	MinRateInterval string             `json:"minRateInterval"`
	HistoryLimit    int                `json:"historyLimit"`
}

// SensorTypeSchema describes how one sensor type is evaluated.
type SensorTypeSchema struct {
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Unit       string         `json:"unit"`
	AlertType  string         `json:"alertType"`
	Thresholds Thresholds     `json:"thresholds"`
	Rate       RateThresholds `json:"rate"`
	Bands      []BandSchema   `json:"bands"`
}

// BandSchema describes one absolute band in evaluation order.
type BandSchema struct {
	Name     string  `json:"name"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Severity string  `json:"severity"`
}

var sensorTypeLabels = map[entities.SensorType]string{
	entities.SensorTypeWindSpeed:   "Wind Speed",
	entities.SensorTypeTemperature: "Temperature",
	entities.SensorTypeWaveHeight:  "Wave Height",
	entities.SensorTypeWaterLevel:  "Water Level",
}

// GetSchema returns the detection schema sorted by sensor type name.
func GetSchema() Schema {
	types := make([]SensorTypeSchema, 0, len(profiles))
	for sensorType, p := range profiles {
		bands := make([]BandSchema, 0, len(p.bands))
		for _, b := range p.bands {
			bands = append(bands, BandSchema{
				Name:     b.name,
				Operator: b.operator,
				Value:    b.bound(p.thresholds),
				Severity: string(b.severity),
			})
		}
		types = append(types, SensorTypeSchema{
			Name:       string(sensorType),
			Label:      sensorTypeLabels[sensorType],
			Unit:       p.unit,
			AlertType:  string(p.alertType),
			Thresholds: p.thresholds,
			Rate:       p.rate,
			Bands:      bands,
		})
	}
	slices.SortFunc(types, func(a, b SensorTypeSchema) int {
		return strings.Compare(a.Name, b.Name)
	})

	alertTypes := make([]string, 0, len(entities.AlertTypes()))
	for _, t := range entities.AlertTypes() {
		alertTypes = append(alertTypes, string(t))
	}
	severities := make([]string, 0, len(entities.Severities()))
	for _, s := range entities.Severities() {
		severities = append(severities, string(s))
	}

	return Schema{
		SensorTypes:     types,
		AlertTypes:      alertTypes,
		Severities:      severities,
		MinRateInterval: MinRateInterval.String(),
		HistoryLimit:    HistoryLimit,
	}
}
