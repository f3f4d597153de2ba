package handlers

import (
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"teampulse-backend/internal/config"
)

var sentryEnabled bool

// SetupSentry initializes Sentry error reporting when a DSN is configured.
// Without one, CaptureError is a no-op and the server runs normally.
func SetupSentry(e *echo.Echo, cfg *config.Config) {
	if cfg.Sentry.DSN == "" {
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn: cfg.Sentry.DSN,
	})
	if err != nil {
		e.Logger.Warnf("Sentry initialization failed: %v", err)
		return
	}

	sentryEnabled = true
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
}

// CaptureError reports an error to Sentry if it is configured.
func CaptureError(err error) {
	if !sentryEnabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}
