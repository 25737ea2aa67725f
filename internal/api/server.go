// Package api hosts the HTTP server that serves the v2 API.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	apiv2 "github.com/coastcare/coastal-alerts/internal/api/v2"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	bodyLimit           = "2M"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// Server owns the echo instance and the v2 controller mounted on it.
type Server struct {
	echo *echo.Echo
	ctrl *apiv2.Controller
	http *http.Server
	log  logger.Logger
}

// NewServer builds the echo stack and registers every route.
func NewServer(deps apiv2.Deps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if deps.Log == nil {
		deps.Log = logger.NewSlogLogger(os.Stderr, logger.LogLevelInfo, nil)
	}
	log := deps.Log.With(logger.String("component", "http"))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("remote_ip", v.RemoteIP),
				logger.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			log.Debug("request", fields...)
			return nil
		},
	}))

	ctrl, err := apiv2.New(e, deps)
	if err != nil {
		return nil, err
	}

	s := &Server{echo: e, ctrl: ctrl, log: log}

	settings := ctrl.Settings
	readTimeout, writeTimeout := settings.HTTP.ReadTimeout.Std(), settings.HTTP.WriteTimeout.Std()
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	s.http = &http.Server{
		Addr:              settings.HTTP.Listen,
		Handler:           e,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	return s, nil
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start listens until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops websocket streams and background sends, then drains
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ctrl.Shutdown()
	return s.http.Shutdown(ctx)
}
