package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Connect opens a GORM connection for the given driver and DSN. SQLite is
// the development default; MySQL carries production deployments.
func Connect(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch driver {
	case DriverSQLite:
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	case DriverMySQL:
		conn, err = gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", driver, err)
	}
	return conn, nil
}

// ConnectMemory opens an in-memory SQLite database, used by tests.
func ConnectMemory() (*gorm.DB, error) {
	return Connect(DriverSQLite, ":memory:")
}
