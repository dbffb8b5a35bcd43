package datastore

import (
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/lungcheck/internal/conf"
)

// mysqlDialector opens a MySQL connection from cfg.DSN. parseTime is forced on so
// created_at scans into time.Time.
func mysqlDialector(cfg *conf.DatabaseSettings) (gorm.Dialector, string, error) {
	if cfg.DSN == "" {
		return nil, "", fmt.Errorf("database.dsn is required for mysql")
	}

	parsed, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	parsed.ParseTime = true
	if parsed.Params == nil {
		parsed.Params = map[string]string{}
	}
	if _, ok := parsed.Params["charset"]; !ok {
		parsed.Params["charset"] = "utf8mb4"
	}

	location := fmt.Sprintf("%s/%s", parsed.Addr, parsed.DBName)
	return mysql.Open(parsed.FormatDSN()), location, nil
}
