package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
)

type testEmailRequest struct {
	To string `json:"to"`
}

type welcomeEmailRequest struct {
	To   string `json:"to"`
	Name string `json:"name"`
}

func (c *Controller) initEmailRoutes() {
	g := c.Group.Group("/email")
	g.GET("/status", c.GetEmailStatus)

	protected := g.Group("", c.authMiddleware)
	protected.POST("/test", c.SendTestEmail)
	protected.POST("/welcome", c.SendWelcomeEmail)
}

func (c *Controller) emailStatus() email.Status {
	if c.mailer == nil {
		return email.Status{}
	}
	return c.mailer.Status()
}

// GetEmailStatus reports whether SMTP credentials are configured.
func (c *Controller) GetEmailStatus(ctx echo.Context) error {
	status := c.emailStatus()
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":     status,
		"configured": status.Configured,
		"connected":  status.Connected,
	})
}

// SendTestEmail verifies the SMTP connection, then sends the sample alert.
func (c *Controller) SendTestEmail(ctx echo.Context) error {
	var req testEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	to, ok := parseRecipient(req.To)
	if !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Email address is required"})
	}

	reqCtx := ctx.Request().Context()
	status := c.emailStatus()
	if c.mailer == nil || !c.mailer.TestConnection(reqCtx) {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error":  "Email service connection failed. Check your SMTP configuration.",
			"status": status,
		})
	}

	sample := email.SampleAlertData(alerting.FormatTimestamp(c.clock.Now(), c.Settings.Location()))
	if !c.mailer.SendAlertEmail(reqCtx, to, sample) {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error":  "Failed to send test email",
			"status": status,
		})
	}

	c.logInfoIfEnabled("test email sent", logger.String("user_id", currentUser(ctx).ID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Test email sent successfully",
		"status":  status,
	})
}

// SendWelcomeEmail sends the subscription welcome template to a recipient.
func (c *Controller) SendWelcomeEmail(ctx echo.Context) error {
	var req welcomeEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	to, ok := parseRecipient(req.To)
	if !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Email address is required"})
	}

	if c.mailer == nil || !c.mailer.SendWelcomeEmail(ctx.Request().Context(), to, strings.TrimSpace(req.Name)) {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error":  "Failed to send welcome email",
			"status": c.emailStatus(),
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome email sent successfully",
	})
}

// parseRecipient returns the bare address of a single recipient.
func parseRecipient(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", false
	}
	return addr.Address, true
}
