package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lungcheck/internal/logger"
	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

// Operation names used in logs and metrics.
const (
	opAppend  = "append"
	opHistory = "history"
	opCount   = "count"
	opPing    = "ping"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db      *gorm.DB
	backend string
	clock   Clock
	metrics *metrics.DatastoreMetrics

	writeMu sync.Mutex // serialises appends
	closeMu sync.Once
}

// Option configures a GormStore.
type Option func(*GormStore)

// WithClock overrides the record timestamp source.
func WithClock(clock Clock) Option {
	return func(s *GormStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *metrics.DatastoreMetrics) Option {
	return func(s *GormStore) {
		s.metrics = m
	}
}

// NewGormStore wraps an open gorm connection and migrates the schema.
func NewGormStore(db *gorm.DB, backend string, opts ...Option) (*GormStore, error) {
	s := &GormStore{
		db:      db,
		backend: backend,
		clock:   UTCClock,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.AutoMigrate(&PredictionRecord{}); err != nil {
		return nil, databaseError(fmt.Errorf("schema migration failed: %w", err), "auto_migrate", backend)
	}
	return s, nil
}

// Append implements Store.
func (s *GormStore) Append(ctx context.Context, filename, label string, confidence float64) (PredictionRecord, error) {
	if !ValidLabel(label) {
		return PredictionRecord{}, invalidArgument("label", label, "unknown diagnosis label %q", label)
	}

	start := time.Now()
	record := PredictionRecord{
		Filename:   filename,
		Label:      label,
		Confidence: confidence,
	}

	s.writeMu.Lock()
	record.CreatedAt = s.clock()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	})
	s.writeMu.Unlock()

	s.observe(opAppend, start, err)
	if err != nil {
		GetLogger().Error("failed to store prediction",
			logger.String("filename", filename),
			logger.String("label", label),
			logger.Error(err))
		return PredictionRecord{}, persistenceError(err, opAppend,
			"filename", filename,
			"label", label)
	}

	GetLogger().Debug("prediction stored",
		logger.Uint64("id", uint64(record.ID)),
		logger.String("label", label),
		logger.Float64("confidence", confidence))
	return record, nil
}

// History implements Store.
func (s *GormStore) History(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit < 0 {
		return nil, invalidArgument("limit", limit, "history limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		return []PredictionRecord{}, nil
	}

	start := time.Now()
	records := make([]PredictionRecord, 0, min(limit, 100))
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	s.observe(opHistory, start, err)
	if err != nil {
		return nil, persistenceError(err, opHistory, "limit", limit)
	}
	if s.metrics != nil {
		s.metrics.RecordResultSize(opHistory, len(records))
	}
	return records, nil
}

// Count implements Store.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := s.db.WithContext(ctx).Model(&PredictionRecord{}).Count(&n).Error
	s.observe(opCount, start, err)
	if err != nil {
		return 0, persistenceError(err, opCount)
	}
	return n, nil
}

// Ping implements Store and refreshes the connection pool gauges.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return databaseError(err, opPing, s.backend)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return databaseError(err, opPing, s.backend)
	}
	if s.metrics != nil {
		stats := sqlDB.Stats()
		s.metrics.UpdateConnectionMetrics(stats.OpenConnections, stats.InUse, stats.Idle)
	}
	return nil
}

// Close releases the underlying connection pool. Calling Close more than once is a no-op.
func (s *GormStore) Close() error {
	var closeErr error
	s.closeMu.Do(func() {
		sqlDB, err := s.db.DB()
		if err != nil {
			closeErr = databaseError(err, "close", s.backend)
			return
		}
		if err := sqlDB.Close(); err != nil {
			closeErr = databaseError(err, "close", s.backend)
			return
		}
		GetLogger().Debug("database connection closed", logger.String("backend", s.backend))
	})
	return closeErr
}

func (s *GormStore) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		s.metrics.RecordError(operation, categorizeError(err))
	}
	s.metrics.RecordOperation(operation, status, time.Since(start).Seconds())
}
