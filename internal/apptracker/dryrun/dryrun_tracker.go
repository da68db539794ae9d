package dryrun

import (
	"context"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/apptracker"
)

// DryRunTracker logs what would have been reported. It is used when no Sentry DSN is configured.
type DryRunTracker struct{}

var _ apptracker.AppTracker = (*DryRunTracker)(nil)

func (d *DryRunTracker) CaptureMessage(message string) {
	log.Ctx(context.Background()).Infof("[tracker] %s", message)
}

func (d *DryRunTracker) CaptureException(exception error, tags map[string]string) {
	log.Ctx(context.Background()).WithField("tags", tags).Errorf("[tracker] %v", exception)
}

func (d *DryRunTracker) Flush() {}
