package sentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/solanize/solanize-client/internal/apptracker"
)

// We need these variables to be able to mock sentry.CaptureMessage and sentry.CaptureException in tests since
// package level functions cannot be mocked
var (
	captureMessageFunc   = sentry.CaptureMessage
	captureExceptionFunc = sentry.CaptureException
	InitFunc             = sentry.Init
	FlushFunc            = sentry.Flush
)

type sentryTracker struct {
	flushTimeout time.Duration
}

var _ apptracker.AppTracker = (*sentryTracker)(nil)

func (s *sentryTracker) CaptureMessage(message string) {
	captureMessageFunc(message)
}

func (s *sentryTracker) CaptureException(exception error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		captureExceptionFunc(exception)
	})
}

func (s *sentryTracker) Flush() {
	FlushFunc(s.flushTimeout)
}

func NewSentryTracker(dsn string, env string, flushFreq int) (*sentryTracker, error) {
	if err := InitFunc(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return nil, fmt.Errorf("unable to initialize sentry: %w", err)
	}

	return &sentryTracker{flushTimeout: time.Second * time.Duration(flushFreq)}, nil
}
