package api

import (
	"net/http"

	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

// initHealthRoutes mounts liveness, readiness, and metrics at the server root
// so probes do not depend on the API prefix.
func (c *Controller) initHealthRoutes() {
	c.Echo.GET("/healthz", c.Liveness)
	c.Echo.GET("/readyz", c.Readiness)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Liveness reports that the process is serving requests.
func (c *Controller) Liveness(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness pings the database and counts the core tables.
func (c *Controller) Readiness(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	fail := func(err error) error {
		c.logErrorIfEnabled("readiness check failed", logger.Error(err))
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Database connection failed",
			"error":   err.Error(),
		})
	}

	if c.ping != nil {
		if err := c.ping(reqCtx); err != nil {
			return fail(err)
		}
	}

	sensors, err := c.store.Sensors.CountSensors(reqCtx)
	if err != nil {
		return fail(err)
	}
	alerts, err := c.store.Alerts.CountAlerts(reqCtx)
	if err != nil {
		return fail(err)
	}
	readings, err := c.store.Readings.CountReadings(reqCtx)
	if err != nil {
		return fail(err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "All database tables accessible",
		"tables": map[string]int64{
			"coastal_sensors": sensors,
			"anomaly_alerts":  alerts,
			"sensor_readings": readings,
		},
	})
}
