package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

const errMsgNoMatchDimension = "Must specify at least one of: location, sensor_id, or sensor_type"

// subscriptionRequest is shared by create and update. On update only the
// fields present in the body are applied.
type subscriptionRequest struct {
	SensorID            *string   `json:"sensor_id"`
	Location            *string   `json:"location"`
	SensorType          *string   `json:"sensor_type"`
	AlertTypes          *[]string `json:"alert_types"`
	SeverityLevels      *[]string `json:"severity_levels"`
	NotificationMethods *[]string `json:"notification_methods"`
	IsActive            *bool     `json:"is_active"`
}

func (c *Controller) initSubscriptionRoutes() {
	subs := c.Group.Group("/subscriptions", c.authMiddleware)
	subs.GET("", c.ListSubscriptions)
	subs.POST("", c.CreateSubscription)
	subs.PUT("/:id", c.UpdateSubscription)
	subs.DELETE("/:id", c.DeleteSubscription)
}

// ListSubscriptions returns the caller's active subscriptions.
func (c *Controller) ListSubscriptions(ctx echo.Context) error {
	user := currentUser(ctx)
	subs, err := c.store.Subscriptions.ListUserSubscriptions(ctx.Request().Context(), user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to fetch subscriptions", http.StatusInternalServerError)
	}
	if subs == nil {
		subs = []entities.Subscription{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"subscriptions": subs})
}

// CreateSubscription stores a new subscription for the caller and sends a
// welcome email when email is configured.
func (c *Controller) CreateSubscription(ctx echo.Context) error {
	var req subscriptionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	user := currentUser(ctx)
	sub := &entities.Subscription{
		UserID:              user.ID,
		AlertTypes:          entities.StringList{},
		SeverityLevels:      entities.StringList{},
		NotificationMethods: c.defaultMethods(),
		IsActive:            true,
	}
	req.applyTo(sub)

	if msg := validateSubscription(sub); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	if err := c.store.Subscriptions.CreateSubscription(ctx.Request().Context(), sub); err != nil {
		return c.HandleError(ctx, err, "Failed to create subscription", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("subscription created",
		logger.String("subscription_id", sub.ID),
		logger.String("user_id", user.ID))

	if c.mailer != nil && c.mailer.Status().Configured {
		to, name := user.Email, user.Name
		c.runBackground("welcome_email", func(bgCtx context.Context) {
			if !c.mailer.SendWelcomeEmail(bgCtx, to, name) {
				c.log.Warn("welcome email not sent", logger.String("user_id", user.ID))
			}
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]any{"subscription": sub})
}

// UpdateSubscription applies the supplied fields to a subscription owned by
// the caller.
func (c *Controller) UpdateSubscription(ctx echo.Context) error {
	var req subscriptionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	reqCtx := ctx.Request().Context()
	user := currentUser(ctx)

	sub, err := c.store.Subscriptions.GetSubscription(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Subscription not found"})
		}
		return c.HandleError(ctx, err, "Failed to fetch subscription", http.StatusInternalServerError)
	}
	// Another user's subscription is indistinguishable from a missing one.
	if sub.UserID != user.ID {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Subscription not found"})
	}

	req.applyTo(sub)
	if msg := validateSubscription(sub); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	if err := c.store.Subscriptions.UpdateSubscription(reqCtx, sub); err != nil {
		return c.HandleError(ctx, err, "Failed to update subscription", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"subscription": sub})
}

// DeleteSubscription removes a subscription owned by the caller.
func (c *Controller) DeleteSubscription(ctx echo.Context) error {
	user := currentUser(ctx)
	if err := c.store.Subscriptions.DeleteSubscription(ctx.Request().Context(), ctx.Param("id"), user.ID); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Subscription not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete subscription", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (c *Controller) defaultMethods() entities.StringList {
	if c.Settings != nil && len(c.Settings.Notification.DefaultMethods) > 0 {
		return slices.Clone(entities.StringList(c.Settings.Notification.DefaultMethods))
	}
	return entities.StringList{alerting.MethodEmail, alerting.MethodWeb}
}

func (r *subscriptionRequest) applyTo(sub *entities.Subscription) {
	if r.SensorID != nil {
		sub.SensorID = r.SensorID
	}
	if r.Location != nil {
		sub.Location = r.Location
	}
	if r.SensorType != nil {
		sub.SensorType = r.SensorType
	}
	if r.AlertTypes != nil {
		sub.AlertTypes = entities.StringList(*r.AlertTypes)
	}
	if r.SeverityLevels != nil {
		sub.SeverityLevels = entities.StringList(*r.SeverityLevels)
	}
	if r.NotificationMethods != nil && len(*r.NotificationMethods) > 0 {
		sub.NotificationMethods = entities.StringList(*r.NotificationMethods)
	}
	if r.IsActive != nil {
		sub.IsActive = *r.IsActive
	}
	sub.Normalize()
}

// validateSubscription returns an error message, or "" when sub is valid.
func validateSubscription(sub *entities.Subscription) string {
	if !sub.HasMatchDimension() {
		return errMsgNoMatchDimension
	}
	if sub.SensorType != nil && !slices.Contains(sensorTypes, entities.SensorType(*sub.SensorType)) {
		return "Invalid sensor type"
	}
	for _, t := range sub.AlertTypes {
		if !slices.Contains(entities.AlertTypes(), entities.AlertType(t)) {
			return "Invalid alert type: " + t
		}
	}
	for _, s := range sub.SeverityLevels {
		if !slices.Contains(entities.Severities(), entities.Severity(s)) {
			return "Invalid severity level: " + s
		}
	}
	for _, m := range sub.NotificationMethods {
		if !slices.Contains(alerting.Methods(), m) {
			return "Invalid notification method: " + m
		}
	}
	return ""
}
