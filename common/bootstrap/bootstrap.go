package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/entityeditor/common/cache"
	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/db"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/telemetry"
	"github.com/lyzr/entityeditor/common/validation"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database (only when the catalog lives in SQL)
	if !options.skipDB && components.Config.UsesSQLCatalog() {
		components.Logger.Info("connecting to catalog database",
			"driver", components.Config.Database.Driver,
		)
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			return components.DB.Close()
		})

		// Run DB init hook if provided
		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx) // Cleanup what we've initialized
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Load the catalog and derive the editors' shared state from it
	if err := loadCatalog(ctx, components, options); err != nil {
		components.Shutdown(ctx)
		return nil, err
	}

	// 5. Initialize cache (if not skipped)
	if !options.skipCache && components.Config.Cache.Enabled {
		components.Logger.Info("initializing cache",
			"backend", components.Config.Cache.Backend,
		)

		components.Cache, err = cache.New(ctx, components.Config.Cache, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 6. Initialize telemetry (if not skipped)
	tcfg := components.Config.Telemetry
	if !options.skipTelemetry && (tcfg.EnablePprof || tcfg.EnableMetrics) {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(tcfg, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}

		components.addCleanup(func() error {
			return components.Telemetry.Stop(ctx)
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
		"identifier_types", len(components.Catalog.IdentifierTypes),
		"relationship_types", len(components.Catalog.RelationshipTypes),
	)

	return components, nil
}

func loadCatalog(ctx context.Context, components *Components, options *options) error {
	var err error
	switch {
	case options.catalog != nil:
		components.Catalog = options.catalog
	case components.DB != nil:
		components.Catalog, err = catalog.LoadSQL(ctx, components.DB.DB)
	case components.Config.Editor.CatalogPath != "":
		components.Catalog, err = catalog.LoadFile(components.Config.Editor.CatalogPath)
	default:
		components.Catalog, err = catalog.Default()
	}
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	components.Identifiers, err = components.Catalog.Identifiers()
	if err != nil {
		return fmt.Errorf("failed to compile identifier types: %w", err)
	}

	components.Resolver = relationships.NewResolver(components.Catalog.RelationshipTypes, components.Logger)

	components.Validator, err = validation.NewValidator(validation.DefaultRules(), components.Identifiers)
	if err != nil {
		return fmt.Errorf("failed to build validator: %w", err)
	}

	components.Roles, err = submission.RoleIDsFromCatalog(components.Catalog)
	if err != nil {
		return fmt.Errorf("failed to resolve relationship roles: %w", err)
	}
	return nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
