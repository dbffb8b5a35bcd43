package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/lungcheck/internal/conf"
)

const memoryPath = ":memory:"

// sqlitePragmas are appended to file database DSNs.
const sqlitePragmas = "_journal_mode=WAL&_busy_timeout=5000"

func isMemorySQLite(cfg *conf.DatabaseSettings) bool {
	if cfg.Type != conf.DatabaseSQLite && cfg.Type != "" {
		return false
	}
	return sqlitePath(cfg) == memoryPath || strings.Contains(cfg.DSN, "mode=memory")
}

func sqlitePath(cfg *conf.DatabaseSettings) string {
	if cfg.Path == "" {
		return conf.DefaultSQLitePath
	}
	return cfg.Path
}

func sqliteDialector(cfg *conf.DatabaseSettings) (gorm.Dialector, string, error) {
	if cfg.DSN != "" {
		return sqlite.Open(cfg.DSN), cfg.DSN, nil
	}

	path := sqlitePath(cfg)
	if path == memoryPath {
		return sqlite.Open(memoryPath), memoryPath, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return sqlite.Open(path + "?" + sqlitePragmas), path, nil
}
