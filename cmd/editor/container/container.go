package container

import (
	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/bootstrap"
	"github.com/lyzr/entityeditor/common/cache"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/ratelimit"
	"github.com/lyzr/entityeditor/common/session"
)

// Container holds all initialized services and clients (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Clients
	Search     *clients.SearchClient
	Submission *clients.SubmissionClient

	// Services
	SessionService    *service.SessionService
	IdentifierService *service.IdentifierService

	// Submission rate limiting, shared through Redis when the cache is
	RateLimiter ratelimit.Limiter
}

// NewContainer initializes all services and clients once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	search := clients.NewSearchClient(cfg.Search, components.Cache, components.Logger)
	submissionClient := clients.NewSubmissionClient(cfg.Editor.SubmissionURL, components.Logger)

	deps := session.Deps{
		Identifiers:    components.Identifiers,
		Resolver:       components.Resolver,
		Validator:      components.Validator,
		Roles:          components.Roles,
		Poster:         submissionClient,
		DebounceWindow: cfg.Editor.DebounceWindow,
		Logger:         components.Logger,
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(components.Logger)
	if rc, ok := components.Cache.(*cache.RedisCache); ok {
		limiter = ratelimit.NewRedisLimiter(rc.Client(), "entityeditor:ratelimit:", components.Logger)
	}

	return &Container{
		Components:        components,
		Search:            search,
		Submission:        submissionClient,
		SessionService:    service.NewSessionService(deps, cfg.Editor.SessionTTL, components.Telemetry, components.Logger),
		IdentifierService: service.NewIdentifierService(components.Identifiers),
		RateLimiter:       limiter,
	}, nil
}
