// Package errors wraps the standard errors package and adds optional
// telemetry reporting through Sentry.
package errors

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	New    = stderrors.New
	Is     = stderrors.Is
	As     = stderrors.As
	Join   = stderrors.Join
	Unwrap = stderrors.Unwrap
)

// Newf returns a formatted error. Use %w to wrap a cause.
func Newf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

var telemetryEnabled atomic.Bool

// TelemetryConfig configures Sentry reporting.
type TelemetryConfig struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// InitTelemetry initialises the Sentry client. An empty DSN leaves telemetry
// disabled and Capture becomes a no-op.
func InitTelemetry(cfg TelemetryConfig) error {
	if cfg.DSN == "" {
		telemetryEnabled.Store(false)
		return nil
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  rate,
	}); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	telemetryEnabled.Store(true)
	return nil
}

// TelemetryEnabled reports whether InitTelemetry configured a client.
func TelemetryEnabled() bool {
	return telemetryEnabled.Load()
}

// FlushTelemetry waits up to timeout for buffered events to be sent.
func FlushTelemetry(timeout time.Duration) {
	if !telemetryEnabled.Load() {
		return
	}
	sentry.Flush(timeout)
}

// Capture reports err tagged with the component that observed it.
func Capture(err error, component string) {
	if err == nil || !telemetryEnabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}

// CapturePanic converts a recovered panic value into an error, reports it and
// returns it so callers can record the failure.
func CapturePanic(recovered any, component string) error {
	var err error
	switch v := recovered.(type) {
	case error:
		err = fmt.Errorf("panic: %w", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}
	Capture(err, component)
	return err
}
