package api

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 200
)

// QueryValueTrue is the literal accepted for boolean query parameters.
const QueryValueTrue = "true"

type resolveAlertRequest struct {
	IsResolved *bool `json:"is_resolved"`
}

// initAlertRoutes registers alert endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	// Public read endpoints
	alerts.GET("", c.ListAlerts)
	alerts.GET("/schema", c.GetAlertSchema)
	alerts.GET("/:id", c.GetAlert)

	// Protected endpoints
	alerts.PATCH("/:id", c.ResolveAlert, c.authMiddleware)
}

// GetAlertSchema returns detection thresholds and notification methods for the UI.
func (c *Controller) GetAlertSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema(c.channels))
}

// ListAlerts returns alerts newest first with their sensors preloaded.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.AlertFilter{
		SensorID: ctx.QueryParam("sensor_id"),
		Limit:    parseLimit(ctx, defaultAlertLimit, maxAlertLimit),
	}
	if resolvedParam := ctx.QueryParam("resolved"); resolvedParam != "" {
		v := resolvedParam == QueryValueTrue
		filter.Resolved = &v
	}
	if severityParam := ctx.QueryParam("severity"); severityParam != "" {
		severity := entities.Severity(severityParam)
		if !slices.Contains(entities.Severities(), severity) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid severity"})
		}
		filter.Severity = severity
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		v, err := strconv.Atoi(offsetParam)
		if err == nil && v >= 0 {
			filter.Offset = v
		}
	}

	alerts, err := c.store.Alerts.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to fetch alerts", http.StatusInternalServerError)
	}
	if alerts == nil {
		alerts = []entities.Alert{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"alerts": alerts})
}

// GetAlert returns a single alert with its sensor.
func (c *Controller) GetAlert(ctx echo.Context) error {
	alert, err := c.store.Alerts.GetAlert(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to fetch alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"alert": alert})
}

// ResolveAlert sets or clears an alert's resolution.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	var req resolveAlertRequest
	if err := ctx.Bind(&req); err != nil || req.IsResolved == nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request data"})
	}

	id := ctx.Param("id")
	alert, err := c.store.Alerts.ResolveAlert(ctx.Request().Context(), id, *req.IsResolved, c.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to update alert", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("alert resolution changed",
		logger.String("alert_id", id),
		logger.Bool("resolved", *req.IsResolved),
		logger.String("user_id", currentUser(ctx).ID))
	return ctx.JSON(http.StatusOK, map[string]any{"alert": alert})
}
