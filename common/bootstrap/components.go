package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/entityeditor/common/cache"
	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/db"
	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/telemetry"
	"github.com/lyzr/entityeditor/common/validation"
)

// Components holds all initialized service dependencies
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	// Catalog and what is derived from it
	Catalog     *catalog.Catalog
	Identifiers *identifiers.Catalog
	Resolver    *relationships.Resolver
	Validator   *validation.Validator
	Roles       submission.RoleIDs

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}

	// a redis cache is probed with a lookup for a key that never exists
	if c.Cache != nil {
		if _, _, err := c.Cache.Get(ctx, "health"); err != nil {
			return fmt.Errorf("cache unhealthy: %w", err)
		}
	}

	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
