package bootstrap

import (
	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/db"
	"github.com/lyzr/entityeditor/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB        bool
	skipCache     bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	catalog       *catalog.Catalog
	dbInitHook    func(*db.DB) error
}

// WithoutDB skips the SQL catalog even when a DSN is configured
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithCatalog uses c instead of loading a catalog
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithDBInitHook runs a custom function after DB initialization
// Useful for creating the catalog schema and seeding it.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
