package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/logger"
)

// Open connects to the backend selected by settings.Database.Type, applies the pool
// settings and migrates the schema.
func Open(settings *conf.Settings, opts ...Option) (*GormStore, error) {
	cfg := settings.Database

	var (
		dialector gorm.Dialector
		location  string
		err       error
	)
	switch cfg.Type {
	case conf.DatabaseSQLite, "":
		dialector, location, err = sqliteDialector(&cfg)
	case conf.DatabaseMySQL:
		dialector, location, err = mysqlDialector(&cfg)
	case conf.DatabasePostgres:
		dialector, location, err = postgresDialector(&cfg)
	default:
		err = fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		return nil, databaseError(err, "open", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger(&cfg),
	})
	if err != nil {
		return nil, databaseError(fmt.Errorf("failed to open %s database: %w", cfg.Type, err), "open", cfg.Type)
	}

	if err := configurePool(db, &cfg); err != nil {
		return nil, databaseError(err, "configure_pool", cfg.Type)
	}

	store, err := NewGormStore(db, cfg.Type, opts...)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	GetLogger().Info("database opened",
		logger.String("backend", cfg.Type),
		logger.String("location", location))
	return store, nil
}

func gormLogger(cfg *conf.DatabaseSettings) *logger.GormLoggerAdapter {
	slow := cfg.SlowQuery
	if slow == 0 {
		slow = 200 * time.Millisecond
	}
	adapter := logger.NewGormLoggerAdapter(GetLogger(), slow)
	if cfg.Debug {
		return adapter.Verbose()
	}
	return adapter
}

func configurePool(db *gorm.DB, cfg *conf.DatabaseSettings) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}

	if isMemorySQLite(cfg) {
		// each connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return nil
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}
