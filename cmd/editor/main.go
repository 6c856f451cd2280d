package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/routes"
	"github.com/lyzr/entityeditor/common/bootstrap"
	"github.com/lyzr/entityeditor/common/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (config, logger, catalog, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "editor")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap editor: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Expire idle sessions until shutdown
	go serviceContainer.SessionService.Run(ctx)

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	startServer(ctx, e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "editor",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "editor",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterSessionRoutes(e, serviceContainer)
	routes.RegisterUnifiedRoutes(e, serviceContainer)
	routes.RegisterIdentifierRoutes(e, serviceContainer)
	routes.RegisterSearchRoutes(e, serviceContainer)
}

// startServer serves until ctx is cancelled, then drains in-flight requests
func startServer(ctx context.Context, e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	srv := server.New("editor", port, e, components.Logger)

	components.Logger.Info("Starting editor", "port", port)
	if err := srv.Serve(ctx); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
