// Package storage defines the persistence contract for assembled
// samples. Backends live in subpackages.
package storage

import (
	"context"
	"time"

	"github.com/d21d3q/goco2mon/internal/monitor"
)

// Store persists completed samples. Implementations de-duplicate by
// timestamp so a resumed logging session never double-writes.
type Store interface {
	// Append persists the given samples. Incomplete samples and
	// samples at or before the newest stored timestamp are skipped.
	Append(ctx context.Context, samples []monitor.Sample) error
	// Last returns the most recent stored sample.
	Last(ctx context.Context) (monitor.Sample, bool, error)
	// Range returns samples within the half-open interval [from, to),
	// oldest first.
	Range(ctx context.Context, from, to time.Time) ([]monitor.Sample, error)
	Close() error
}
