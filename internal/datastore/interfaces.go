// Package datastore persists diagnosis results and serves them back newest first.
package datastore

import (
	"context"
	"time"
)

// Store is the prediction history. Implementations are safe for concurrent use.
type Store interface {
	// Append writes one record stamped with the store clock and returns it with
	// its assigned ID. The write is all-or-nothing.
	Append(ctx context.Context, filename, label string, confidence float64) (PredictionRecord, error)

	// History returns up to limit records ordered by creation time, newest first,
	// with the record ID breaking ties. A limit of 0 yields an empty slice.
	History(ctx context.Context, limit int) ([]PredictionRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Clock supplies record timestamps.
type Clock func() time.Time

// UTCClock is the default clock.
func UTCClock() time.Time {
	return time.Now().UTC()
}
