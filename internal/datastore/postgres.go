package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/logger"
)

func postgresDialector(cfg *conf.DatabaseSettings) (gorm.Dialector, string, error) {
	if cfg.DSN == "" {
		return nil, "", fmt.Errorf("database.dsn is required for postgres")
	}
	return postgres.Open(cfg.DSN), logger.RedactSensitiveData(cfg.DSN), nil
}
