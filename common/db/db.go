package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/logger"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// DB wraps the catalog database handle
type DB struct {
	*sql.DB
	driver string
	log    *logger.Logger
}

// New opens the catalog database named by the config
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	return Open(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
}

// Open opens and pings a database with the given driver ("pgx" or "sqlite")
func Open(ctx context.Context, driver, dsn string, log *logger.Logger) (*DB, error) {
	switch driver {
	case "pgx", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// one connection keeps ":memory:" databases alive across queries
		handle.SetMaxOpenConns(1)
	} else {
		handle.SetMaxOpenConns(4)
		handle.SetConnMaxIdleTime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("catalog database connected", "driver", driver)

	return &DB{
		DB:     handle,
		driver: driver,
		log:    log,
	}, nil
}

// Driver returns the driver name the handle was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database handle
func (db *DB) Close() error {
	db.log.Info("closing catalog database")
	return db.DB.Close()
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}
