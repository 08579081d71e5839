package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/assetdeck/api/internal/handlers"
	"github.com/assetdeck/api/internal/payments"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/config"
	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
	"github.com/assetdeck/api/internal/platform/jobs"
	"github.com/assetdeck/api/internal/platform/observability"
	"github.com/assetdeck/api/internal/platform/secrets"
	platformstorage "github.com/assetdeck/api/internal/platform/storage"
	firestoreRepo "github.com/assetdeck/api/internal/repositories/firestore"
	"github.com/assetdeck/api/internal/services"
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

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("configuration is incomplete", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	signer, err := platformstorage.NewAccountSigner(cfg.Storage.SignerKey)
	if err != nil {
		logger.Fatal("failed to parse storage signer key", zap.Error(err))
	}
	storageClient, err := platformstorage.NewClient(signer, cfg.Storage.AssetsBucket)
	if err != nil {
		logger.Fatal("failed to initialise signed url client", zap.Error(err))
	}

	publisher, pubsubClient, err := newOrderEventPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise order event publisher", zap.Error(err))
	}
	if publisher == nil {
		logger.Warn("order events topic not configured; order events will not be published")
	}
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	userRepo, err := firestoreRepo.NewUserRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}
	assetRepo, err := firestoreRepo.NewAssetRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise asset repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	contentRepo, err := firestoreRepo.NewContentRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise content repository", zap.Error(err))
	}
	ticketRepo, err := firestoreRepo.NewTicketRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise ticket repository", zap.Error(err))
	}
	webhookEventRepo, err := firestoreRepo.NewWebhookEventRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise webhook event repository", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:        cfg.Stripe.APIKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Logger:        observability.EventLogger(logger.Named("stripe")),
		Clock:         time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
	}

	tokenIssuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialise token issuer", zap.Error(err))
	}

	userService, err := services.NewUserService(services.UserServiceDeps{
		Users:  userRepo,
		Tokens: tokenIssuer,
		Clock:  time.Now,
		Logger: observability.EventLogger(logger.Named("users")),
	})
	if err != nil {
		logger.Fatal("failed to initialise user service", zap.Error(err))
	}

	assetService, err := services.NewAssetService(services.AssetServiceDeps{
		Assets:       assetRepo,
		Users:        userRepo,
		Storage:      storageClient,
		SignedURLTTL: cfg.Storage.SignedURLTTL,
		Clock:        time.Now,
		Logger:       observability.EventLogger(logger.Named("assets")),
	})
	if err != nil {
		logger.Fatal("failed to initialise asset service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Assets:    assetRepo,
		Users:     userRepo,
		Orders:    orderRepo,
		Payments:  stripeProvider,
		Publisher: publisher,
		BaseURL:   cfg.Server.BaseURL,
		Clock:     time.Now,
		Logger:    observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	webhookService, err := services.NewWebhookService(services.WebhookServiceDeps{
		Orders:    orderRepo,
		Users:     userRepo,
		Events:    webhookEventRepo,
		Publisher: publisher,
		Clock:     time.Now,
		Logger:    observability.EventLogger(logger.Named("webhooks")),
	})
	if err != nil {
		logger.Fatal("failed to initialise webhook service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: orderRepo,
		Clock:  time.Now,
		Logger: observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	contentService, err := services.NewContentService(services.ContentServiceDeps{
		Content: contentRepo,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("content")),
	})
	if err != nil {
		logger.Fatal("failed to initialise content service", zap.Error(err))
	}

	ticketService, err := services.NewTicketService(services.TicketServiceDeps{
		Tickets: ticketRepo,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("tickets")),
	})
	if err != nil {
		logger.Fatal("failed to initialise ticket service", zap.Error(err))
	}

	sweeper, err := services.NewOrderSweeper(services.OrderSweeperDeps{
		Orders:     orderRepo,
		Publisher:  publisher,
		Interval:   cfg.Sweep.Interval,
		PendingAge: cfg.Sweep.PendingAge,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("sweeper")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order sweeper", zap.Error(err))
	}

	authHandlers := handlers.NewAuthHandlers(userService)
	assetHandlers := handlers.NewAssetHandlers(assetService)
	contentHandlers := handlers.NewContentHandlers(contentService)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	orderHandlers := handlers.NewOrderHandlers(orderService)
	meHandlers := handlers.NewMeHandlers(userService)
	ticketHandlers := handlers.NewTicketHandlers(ticketService)
	adminHandlers := handlers.NewAdminHandlers(userService, ticketService)
	webhookHandlers := handlers.NewWebhookHandlers(stripeProvider, webhookService)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithTokenVerifier(tokenIssuer),
		handlers.WithPublicRoutes(
			authHandlers.Routes,
			assetHandlers.PublicRoutes,
			contentHandlers.PublicRoutes,
		),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
		handlers.WithAuthedRoutes(
			checkoutHandlers.Routes,
			orderHandlers.Routes,
			assetHandlers.AuthedRoutes,
			meHandlers.Routes,
			ticketHandlers.Routes,
		),
		handlers.WithModeratorRoutes(contentHandlers.ModeratorRoutes),
		handlers.WithAdminRoutes(
			assetHandlers.AdminRoutes,
			adminHandlers.Routes,
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(sweepCtx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("assetdeck api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	sweepCancel()
	<-sweepDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	envLabel := strings.ToLower(lookup("API_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func newOrderEventPublisher(ctx context.Context, cfg config.Config) (services.OrderEventPublisher, *pubsub.Client, error) {
	topicName := strings.TrimSpace(cfg.Jobs.OrderTopic)
	if topicName == "" {
		return nil, nil, nil
	}
	projectID := strings.TrimSpace(cfg.Jobs.ProjectID)
	if projectID == "" {
		return nil, nil, errors.New("order events topic configured without a project id")
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := jobs.NewPubSubOrderEventPublisher(client.Topic(topicName))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, client, nil
}
