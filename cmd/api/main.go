package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/yemalin/api/internal/di"
	"github.com/yemalin/api/internal/handlers"
	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/payments"
	"github.com/yemalin/api/internal/platform/auth"
	"github.com/yemalin/api/internal/platform/config"
	pfirestore "github.com/yemalin/api/internal/platform/firestore"
	"github.com/yemalin/api/internal/platform/idempotency"
	"github.com/yemalin/api/internal/platform/jobs"
	"github.com/yemalin/api/internal/platform/observability"
	"github.com/yemalin/api/internal/platform/secrets"
	platformstorage "github.com/yemalin/api/internal/platform/storage"
	firestoreRepo "github.com/yemalin/api/internal/repositories/firestore"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	cartRepo, err := firestoreRepo.NewCartRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	marketingRepo, err := firestoreRepo.NewMarketingConfigRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise marketing config repository", zap.Error(err))
	}
	waitlistRepo, err := firestoreRepo.NewWaitlistRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise waitlist repository", zap.Error(err))
	}
	emailRepo, err := firestoreRepo.NewEmailRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise email repository", zap.Error(err))
	}
	vipStatsRepo, err := firestoreRepo.NewVIPStatsRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise vip stats repository", zap.Error(err))
	}

	serviceLogger := observability.ServiceLogger(logger.Named("services"))

	sender, senderCleanup, err := buildNotificationSender(ctx, cfg, serviceLogger)
	if err != nil {
		logger.Fatal("failed to initialise notification sender", zap.Error(err))
	}
	defer senderCleanup()

	container, err := di.NewContainer(ctx, di.ContainerDeps{
		Config: cfg,
		Repositories: di.Repositories{
			Carts:           cartRepo,
			MarketingConfig: marketingRepo,
			Waitlist:        waitlistRepo,
			Emails:          emailRepo,
			VIPStats:        vipStatsRepo,
		},
		Sender: sender,
		Logger: serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Close(drainCtx); err != nil {
			logger.Warn("notification dispatcher drain error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	if strings.TrimSpace(cfg.Security.AdminToken.Secret) == "" {
		logger.Fatal("admin token secret is required for the admin API")
	}
	adminTokens, err := auth.NewAdminTokenManager(cfg.Security.AdminToken)
	if err != nil {
		logger.Fatal("failed to initialise admin token manager", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	if strings.TrimSpace(cfg.Stripe.APIKey) == "" {
		logger.Fatal("stripe api key is required for payment method management")
	}
	paymentsLogger := logger.Named("payments")
	vault, err := payments.NewStripeVault(payments.StripeVaultConfig{
		APIKey: cfg.Stripe.APIKey,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			paymentsLogger.Debug("stripe log", zFields...)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe vault", zap.Error(err))
	}

	imageSigner := buildImageURLSigner(cfg, logger)

	cartHandlers := handlers.NewCartHandlers(authenticator, container.Services.Carts, imageSigner)
	meHandlers := handlers.NewMeHandlers(authenticator, container.Services.VIP, vault)
	marketingHandlers := handlers.NewMarketingHandlers(
		container.Services.Marketing,
		handlers.WithWaitlistRateLimit(cfg.RateLimits.WaitlistPerMinute, time.Minute),
	)
	adminHandlers := handlers.NewAdminHandlers(container.Services.Analytics, container.Services.Marketing)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthVersion(strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))),
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := firestoreProvider.Client(ctx)
			return err
		}),
	)

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithMarketingRoutes(marketingHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithAdminMiddlewares(adminTokens.RequireAdminToken(), idempotencyMiddleware),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("yemalin api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildNotificationSender prefers the Pub/Sub transport when a project is
// configured and falls back to the logging sender otherwise.
func buildNotificationSender(
	ctx context.Context,
	cfg config.Config,
	serviceLogger func(context.Context, string, map[string]any),
) (notifications.Sender, func(), error) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	topicName := strings.TrimSpace(cfg.PubSub.NotificationTopic)
	if projectID == "" || topicName == "" {
		return notifications.NewLoggingSender(serviceLogger), func() {}, nil
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicName)

	notifier, err := jobs.NewPubSubNotifier(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	cleanup := func() {
		topic.Stop()
		_ = client.Close()
	}
	return notifier, cleanup, nil
}

// buildImageURLSigner returns nil when media signing is not configured, in
// which case cart items omit the signed image URL.
func buildImageURLSigner(cfg config.Config, logger *zap.Logger) handlers.ImageURLSigner {
	bucket := strings.TrimSpace(cfg.Storage.MediaBucket)
	email := strings.TrimSpace(cfg.Storage.SignerEmail)
	key := strings.TrimSpace(cfg.Storage.SignerPrivateKey)
	if bucket == "" || email == "" || key == "" {
		logger.Info("media signing not configured; cart image urls disabled")
		return nil
	}

	signer, err := platformstorage.NewServiceAccountSigner(email, key)
	if err != nil {
		logger.Fatal("failed to parse storage signer key", zap.Error(err))
	}
	client, err := platformstorage.NewClient(signer)
	if err != nil {
		logger.Fatal("failed to initialise signed url client", zap.Error(err))
	}

	lifetime := cfg.Storage.SignedURLLifetime
	return func(ctx context.Context, imageRef string) (string, error) {
		object, err := mediaObjectPath(imageRef)
		if err != nil {
			return "", err
		}
		result, err := client.SignedDownloadURL(ctx, bucket, object, platformstorage.DownloadOptions{
			ExpiresIn: lifetime,
		})
		if err != nil {
			return "", err
		}
		return result.URL, nil
	}
}

// mediaObjectPath maps a cart image reference of the form
// "<productID>/<fileName>" onto the media bucket layout.
func mediaObjectPath(imageRef string) (string, error) {
	productID, fileName, ok := strings.Cut(strings.TrimSpace(imageRef), "/")
	if !ok {
		return "", fmt.Errorf("image ref %q must be productID/fileName", imageRef)
	}
	return platformstorage.BuildMediaPath(platformstorage.KindProductImage, platformstorage.MediaPathParams{
		ProductID: productID,
		FileName:  fileName,
	})
}
