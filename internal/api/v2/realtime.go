package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamMaxMsgSize = 4 * 1024

	// MessageTypeConnected is the first frame sent on every stream.
	MessageTypeConnected = "connected"

	defaultWebsocketRate = 10.0 // connection attempts per minute
	rateLimitWindow      = time.Minute
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers always send Origin on upgrade. Tools that omit it are let through.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func (c *Controller) initRealtimeRoutes() {
	if c.hub == nil {
		return
	}

	perMinute := c.Settings.HTTP.WebsocketRate
	if perMinute <= 0 {
		perMinute = defaultWebsocketRate
	}
	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(perMinute / rateLimitWindow.Seconds()),
				Burst:     int(perMinute),
				ExpiresIn: rateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, map[string]string{"error": "Unable to identify client"})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many alert stream connection attempts, please wait before trying again",
			})
		},
	}

	c.Group.GET("/ws/alerts", c.StreamAlerts, middleware.RateLimiterWithConfig(rateLimiterConfig))
}

// StreamAlerts upgrades to a websocket and forwards every new alert, plus
// the caller's own inbox notifications when the request is authenticated.
// Anonymous connections receive alerts only.
func (c *Controller) StreamAlerts(ctx echo.Context) error {
	userID := ""
	if user, err := c.resolveUser(ctx); err == nil && user != nil {
		userID = user.ID
	}

	conn, err := streamUpgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		c.logDebugIfEnabled("alert stream upgrade failed", logger.Error(err))
		return nil
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(streamMaxMsgSize)

	client := c.hub.Register(userID)
	defer c.hub.Unregister(client)

	c.logDebugIfEnabled("alert stream connected",
		logger.String("user_id", userID),
		logger.String("ip", ctx.RealIP()))

	// Reader: consumes pongs and detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg notification.Message) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := write(notification.Message{
		Type:      MessageTypeConnected,
		Data:      map[string]bool{"authenticated": userID != ""},
		Timestamp: c.clock.Now(),
	}); err != nil {
		return nil
	}

	pingTicker := time.NewTicker(streamPingPeriod)
	defer pingTicker.Stop()

	// This goroutine is the only writer on conn.
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return nil
			}
			if err := write(msg); err != nil {
				return nil
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		case <-c.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return nil
		}
	}
}
