package repository

import (
	"context"

	"github.com/user/slotwatch/internal/entity"
)

// SiteProbe defines the contract for one retailer-specific availability check.
type SiteProbe interface {
	// Check runs the login/classify protocol once. It never returns a Go error;
	// failures are reported as ScrapeError or Indeterminate outcomes.
	Check(ctx context.Context) entity.ProbeOutcome
	// Close releases the probe's page-access session.
	Close() error
}
