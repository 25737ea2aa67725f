package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

const (
	defaultReadingsLimit = 100
	maxReadingsLimit     = 1000
)

var (
	sensorTypes    = []entities.SensorType{entities.SensorTypeWindSpeed, entities.SensorTypeTemperature, entities.SensorTypeWaveHeight, entities.SensorTypeWaterLevel}
	sensorStatuses = []entities.SensorStatus{entities.SensorStatusActive, entities.SensorStatusInactive, entities.SensorStatusMaintenance}
)

type createSensorRequest struct {
	Name       string                `json:"name"`
	Location   string                `json:"location"`
	Latitude   float64               `json:"latitude"`
	Longitude  float64               `json:"longitude"`
	SensorType entities.SensorType   `json:"sensor_type"`
	Status     entities.SensorStatus `json:"status"`
}

func (c *Controller) initSensorRoutes() {
	sensors := c.Group.Group("/sensors")
	sensors.GET("", c.ListSensors)
	sensors.GET("/:id/readings", c.GetSensorReadings)
	sensors.POST("", c.CreateSensor, c.authMiddleware)
}

// ListSensors returns provisioned sensors, optionally filtered by status and type.
func (c *Controller) ListSensors(ctx echo.Context) error {
	filter := repository.SensorFilter{
		Status:     entities.SensorStatus(ctx.QueryParam("status")),
		SensorType: entities.SensorType(ctx.QueryParam("sensor_type")),
	}
	if filter.Status != "" && !slices.Contains(sensorStatuses, filter.Status) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status filter"})
	}

	sensors, err := c.store.Sensors.ListSensors(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to fetch sensors", http.StatusInternalServerError)
	}
	if sensors == nil {
		sensors = []entities.Sensor{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"sensors": sensors})
}

// CreateSensor provisions a sensor. Status defaults to active.
func (c *Controller) CreateSensor(ctx echo.Context) error {
	var req createSensorRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.Status == "" {
		req.Status = entities.SensorStatusActive
	}

	switch {
	case req.Name == "" || req.Location == "":
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Name and location are required"})
	case !slices.Contains(sensorTypes, req.SensorType):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid sensor type"})
	case !slices.Contains(sensorStatuses, req.Status):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid sensor status"})
	case req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180:
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid coordinates"})
	}

	sensor := &entities.Sensor{
		Name:       req.Name,
		Location:   req.Location,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		SensorType: req.SensorType,
		Status:     req.Status,
	}
	if err := c.store.Sensors.CreateSensor(ctx.Request().Context(), sensor); err != nil {
		return c.HandleError(ctx, err, "Failed to create sensor", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("sensor provisioned",
		logger.String("sensor_id", sensor.ID),
		logger.String("sensor_type", string(sensor.SensorType)))
	return ctx.JSON(http.StatusCreated, map[string]any{"sensor": sensor})
}

// GetSensorReadings returns a sensor's readings, newest first.
func (c *Controller) GetSensorReadings(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	if _, err := c.store.Sensors.GetSensor(reqCtx, id); err != nil {
		if errors.Is(err, repository.ErrSensorNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Sensor not found"})
		}
		return c.HandleError(ctx, err, "Failed to fetch sensor", http.StatusInternalServerError)
	}

	limit := parseLimit(ctx, defaultReadingsLimit, maxReadingsLimit)
	readings, err := c.store.Readings.GetRecentReadings(reqCtx, id, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to fetch readings", http.StatusInternalServerError)
	}
	if readings == nil {
		readings = []entities.Reading{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"readings": readings})
}
