package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/labstack/echo/v4"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// initNotificationRoutes registers the in-app inbox routes. Every route
// requires authentication.
func (c *Controller) initNotificationRoutes() {
	notificationsGroup := c.Group.Group("/notifications", c.authMiddleware)

	// NTFY server connectivity probe for SMS and push provider setup
	notificationsGroup.GET("/check-ntfy-server", c.CheckNtfyServer)

	if c.inbox == nil {
		return
	}
	notificationsGroup.GET("", c.GetNotifications)
	notificationsGroup.GET("/unread/count", c.GetUnreadCount)
	notificationsGroup.PUT("/:id/read", c.MarkNotificationRead)
	notificationsGroup.DELETE("/:id", c.DeleteNotification)
	notificationsGroup.POST("/test", c.CreateTestNotification)
}

// GetNotifications returns the caller's inbox, newest first.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	user := currentUser(ctx)
	limit := parseLimit(ctx, defaultNotificationLimit, maxNotificationLimit)

	items := c.inbox.List(user.ID, limit)
	if items == nil {
		items = []notification.InboxItem{}
	}
	unread := c.inbox.UnreadCount(user.ID)

	c.logDebugIfEnabled("notifications retrieved",
		logger.String("user_id", user.ID),
		logger.Int("count", len(items)),
		logger.Int("total_unread", unread))

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": items,
		"count":         len(items),
		"unreadCount":   unread,
	})
}

// GetUnreadCount returns the count of unread notifications
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"unreadCount": c.inbox.UnreadCount(currentUser(ctx).ID),
	})
}

// MarkNotificationRead marks a notification as read
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	item, err := c.inbox.MarkRead(currentUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, notification.ErrInboxItemNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to mark notification as read", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":      "Notification marked as read",
		"notification": item,
	})
}

// DeleteNotification deletes a notification
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	if err := c.inbox.Delete(currentUser(ctx).ID, ctx.Param("id")); err != nil {
		if errors.Is(err, notification.ErrInboxItemNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete notification", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// CreateTestNotification delivers the sample alert to the caller through the
// web channel, so the inbox and any open alert stream receive it.
func (c *Controller) CreateTestNotification(ctx echo.Context) error {
	if c.channels == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification service not available",
		})
	}

	user := currentUser(ctx)
	data := email.SampleAlertData(alerting.FormatTimestamp(c.clock.Now(), c.Settings.Location()))
	if err := c.channels.Resolve(alerting.MethodWeb).Deliver(ctx.Request().Context(), user, data); err != nil {
		return c.HandleError(ctx, err, "Failed to create test notification", http.StatusInternalServerError)
	}

	c.logDebugIfEnabled("test notification created", logger.String("user_id", user.ID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

const (
	ntfyProbeTimeout  = 5 * time.Second
	ntfyHealthPath    = "/v1/health"
	maxNtfyHostLength = 260
)

// Cloud instance metadata endpoints are never probed.
var blockedNtfyHosts = []string{
	"169.254.169.254",
	"fd00:ec2::254",
}

var hostnameLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)

// NtfyServerCheckResponse reports which scheme reached an ntfy server.
// Recommended is "https", "http" or "unreachable".
type NtfyServerCheckResponse struct {
	Recommended string `json:"recommended"`
	HTTPS       bool   `json:"https"`
	HTTP        bool   `json:"http"`
}

// CheckNtfyServer tells the settings UI whether a push gateway host speaks
// ntfy over https or http.
// GET /api/v2/notifications/check-ntfy-server?host=<hostname[:port]>
func (c *Controller) CheckNtfyServer(ctx echo.Context) error {
	host := ctx.QueryParam("host")
	if host == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "host parameter is required"})
	}
	if !isValidNtfyHost(host) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid host parameter"})
	}
	return ctx.JSON(http.StatusOK, probeNtfyServer(ctx.Request().Context(), host))
}

// isValidNtfyHost accepts a bare hostname or IP with an optional port and
// rejects schemes, paths, userinfo and metadata addresses.
func isValidNtfyHost(host string) bool {
	if host == "" || len(host) > maxNtfyHostLength || strings.Contains(host, "://") {
		return false
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return false
		}
		name = h
	}

	bare := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	if slices.Contains(blockedNtfyHosts, bare) {
		return false
	}
	if net.ParseIP(bare) != nil {
		return true
	}
	for label := range strings.SplitSeq(name, ".") {
		if !hostnameLabelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// isNtfyHealthResponse requires a 200 with {"healthy": true}, so an unrelated
// web server on the same port is not mistaken for ntfy.
func isNtfyHealthResponse(r *http.Response) bool {
	if r.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Healthy *bool `json:"healthy"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&body); err != nil {
		return false
	}
	return body.Healthy != nil && *body.Healthy
}

// probeNtfyServer tries https first and falls back to http.
func probeNtfyServer(ctx context.Context, host string) NtfyServerCheckResponse {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
			addr = "[" + host + "]"
		}
	}

	client := &http.Client{
		Timeout: ntfyProbeTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	healthy := func(scheme string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+addr+ntfyHealthPath, http.NoBody)
		if err != nil {
			return false
		}
		r, err := client.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = r.Body.Close() }()
		return isNtfyHealthResponse(r)
	}

	switch {
	case healthy("https"):
		return NtfyServerCheckResponse{Recommended: "https", HTTPS: true}
	case healthy("http"):
		return NtfyServerCheckResponse{Recommended: "http", HTTP: true}
	default:
		return NtfyServerCheckResponse{Recommended: "unreachable"}
	}
}
