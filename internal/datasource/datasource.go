// Package datasource reads PeopleSoft monitoring tables. The two tables
// of interest are PS_MSG_INST (Integration Broker message instances,
// MSG_STATUS='7' means error) and PSPRCSRQST (Process Monitor requests,
// RUNSTATUS='14' means error).
package datasource

import (
	"context"
	"time"

	"github.com/psops/sentry/internal/models"
)

// DefaultLookback is the fetch window applied when a caller does not
// specify one.
const DefaultLookback = 24 * time.Hour

// Source reads error records and health counts from a PeopleSoft
// database. Implementations must be safe for concurrent use.
type Source interface {
	// FetchIBErrors returns Integration Broker messages in error state
	// whose timestamp falls inside the lookback window, newest first.
	FetchIBErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error)

	// FetchProcessErrors returns Process Monitor requests in error state
	// whose begin time falls inside the lookback window, newest first.
	FetchProcessErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error)

	// FetchSummary returns current counts across both tables without a
	// time window.
	FetchSummary(ctx context.Context) (models.SystemSummary, error)

	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error

	Close() error
}
