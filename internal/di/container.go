package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/platform/config"
	"github.com/yemalin/api/internal/repositories"
	"github.com/yemalin/api/internal/services"
)

// Repositories bundles the persistence contracts the service layer relies on.
// Production wiring provides Firestore-backed implementations; tests supply
// in-memory ones.
type Repositories struct {
	Carts           repositories.CartRepository
	MarketingConfig repositories.MarketingConfigRepository
	Waitlist        repositories.WaitlistRepository
	Emails          repositories.EmailRepository
	VIPStats        repositories.VIPStatsRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Carts      services.CartManager
	Marketing  services.MarketingManager
	VIP        services.VIPService
	Analytics  services.AnalyticsService
	Dispatcher services.NotificationDispatcher
}

// ContainerDeps carries everything required to assemble the runtime services.
type ContainerDeps struct {
	Config       config.Config
	Repositories Repositories

	// Sender delivers notification jobs. Defaults to the logging sender when
	// no transport is configured.
	Sender notifications.Sender

	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories Repositories
	Services     Services
}

// NewContainer constructs the runtime dependencies. The marketing manager is
// hydrated from the store before the container is returned.
func NewContainer(ctx context.Context, deps ContainerDeps) (*Container, error) {
	if err := validateRepositories(deps.Repositories); err != nil {
		return nil, err
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	sender := deps.Sender
	if sender == nil {
		sender = notifications.NewLoggingSender(logger)
	}

	svc, err := buildServices(ctx, deps, sender, clock, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Repositories,
		Services:     svc,
	}, nil
}

// Close drains the notification dispatcher. Repository clients are owned by
// the caller and closed separately.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Services.Dispatcher == nil {
		return nil
	}
	return c.Services.Dispatcher.Close(ctx)
}

func validateRepositories(reg Repositories) error {
	switch {
	case reg.Carts == nil:
		return errors.New("cart repository is required")
	case reg.MarketingConfig == nil:
		return errors.New("marketing config repository is required")
	case reg.Waitlist == nil:
		return errors.New("waitlist repository is required")
	case reg.Emails == nil:
		return errors.New("email repository is required")
	case reg.VIPStats == nil:
		return errors.New("vip stats repository is required")
	}
	return nil
}

func buildServices(
	ctx context.Context,
	deps ContainerDeps,
	sender notifications.Sender,
	clock func() time.Time,
	logger func(ctx context.Context, event string, fields map[string]any),
) (Services, error) {
	var svc Services

	dispatcher, err := services.NewNotificationDispatcher(services.NotificationDispatcherDeps{
		Sender:    sender,
		Workers:   deps.Config.Notifications.Workers,
		QueueSize: deps.Config.Notifications.QueueSize,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification dispatcher: %w", err)
	}
	svc.Dispatcher = dispatcher

	cartManager, err := services.NewCartManager(services.CartManagerDeps{
		Repository: deps.Repositories.Carts,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart manager: %w", err)
	}
	svc.Carts = cartManager

	marketingManager, err := services.NewMarketingManager(services.MarketingManagerDeps{
		ConfigRepository: deps.Repositories.MarketingConfig,
		Waitlist:         deps.Repositories.Waitlist,
		Emails:           deps.Repositories.Emails,
		Dispatcher:       dispatcher,
		Clock:            clock,
		Logger:           logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build marketing manager: %w", err)
	}
	marketingManager.Load(ctx)
	svc.Marketing = marketingManager

	vipService, err := services.NewVIPService(services.VIPServiceDeps{
		Stats:     deps.Repositories.VIPStats,
		Marketing: marketingManager,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build vip service: %w", err)
	}
	svc.VIP = vipService

	analyticsService, err := services.NewAnalyticsService(services.AnalyticsServiceDeps{
		Emails: deps.Repositories.Emails,
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build analytics service: %w", err)
	}
	svc.Analytics = analyticsService

	return svc, nil
}
