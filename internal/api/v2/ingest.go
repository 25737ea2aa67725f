package api

import (
	"net/http"

	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

type batchRequest struct {
	Data []ingest.BatchInput `json:"data"`
}

func (c *Controller) initIngestRoutes() {
	if c.ingest == nil {
		return
	}
	g := c.Group.Group("/ingest")
	g.POST("/sensor-data", c.IngestSensorData)
	g.POST("/batch", c.IngestBatch)
}

// IngestSensorData stores a single reading and runs detection on it.
func (c *Controller) IngestSensorData(ctx echo.Context) error {
	var in ingest.ReadingInput
	if err := ctx.Bind(&in); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	reading, err := c.ingest.IngestReading(ctx.Request().Context(), in)
	if err != nil {
		var verr *ingest.ValidationError
		switch {
		case errors.As(err, &verr):
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": verr.Message})
		case errors.Is(err, ingest.ErrSensorUnavailable):
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Sensor not found or inactive"})
		default:
			return c.HandleError(ctx, err, "Failed to store sensor reading", http.StatusInternalServerError)
		}
	}

	c.logDebugIfEnabled("reading ingested",
		logger.String("sensor_id", reading.SensorID),
		logger.String("reading_id", reading.ID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"reading_id": reading.ID,
		"message":    "Sensor data ingested successfully",
	})
}

// IngestBatch stores readings for many sensors. Entries fail independently.
func (c *Controller) IngestBatch(ctx echo.Context) error {
	var req batchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid batch data format"})
	}

	res, err := c.ingest.IngestBatch(ctx.Request().Context(), req.Data)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrEmptyBatch):
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid batch data format"})
		case errors.Is(err, ingest.ErrBatchTooLarge):
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Batch size too large (max 1000 readings)"})
		default:
			return c.HandleError(ctx, err, "Batch processing failed", http.StatusInternalServerError)
		}
	}

	if res.Results == nil {
		res.Results = []ingest.BatchSensorResult{}
	}
	if res.Errors == nil {
		res.Errors = []ingest.BatchError{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"processed": res.Processed,
		"results":   res.Results,
		"errors":    res.Errors,
	})
}
