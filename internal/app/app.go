package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/config"
	"github.com/fsdevblog/paperify-pay/internal/metrics"
	"github.com/fsdevblog/paperify-pay/internal/repository/docstore"
	"github.com/fsdevblog/paperify-pay/internal/repository/pgrepo"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/fsdevblog/paperify-pay/internal/storage"
	"github.com/fsdevblog/paperify-pay/internal/transport/api"
	"github.com/fsdevblog/paperify-pay/internal/transport/stripegw"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	uploadsSubdir     = "uploads/payments"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address":       a.Config.RunAddress,
		"documentStore": a.Config.UsesDocumentStore(),
		"dataDir":       a.Config.DataDir,
		"stripe":        a.Config.Stripe.SecretKey != "",
		"s3":            a.Config.S3.Bucket != "",
	}).Info("starting app")

	unitOfWork, closeStore, storeErr := a.initStore(notifyCtx)
	if storeErr != nil {
		return fmt.Errorf("app run: %s", storeErr.Error())
	}
	defer closeStore()

	screenshots, scErr := a.initScreenshots(notifyCtx)
	if scErr != nil {
		return fmt.Errorf("app run: %s", scErr.Error())
	}

	collector := metrics.New()
	checkout, webhooks := a.initGateway()

	reviewers := service.NewEmailAuthorizer(a.Config.SuperuserEmails...)
	services, sErr := service.Factory(service.FactoryArgs{
		UOW:        unitOfWork,
		Authorizer: reviewers,
		Orders: service.OrderConfig{
			TTL:           a.Config.OrderTTL(),
			PaymentNumber: a.Config.PaymentNumber,
		},
		Referrals: service.ReferralConfig{
			RequiredPaidReferrals: a.Config.ReferralRequiredPaidUsers,
			FreePaperLimit:        a.Config.ReferralFreePaperLimit,
		},
		Checkout: checkout,
		Webhooks: webhooks,
		Metrics:  collector,
		Logger:   a.Logger,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router, rErr := api.New(api.RouterArgs{
		Logger:          a.Logger,
		OrderService:    services.OrderService,
		LedgerService:   services.LedgerService,
		ReferralService: services.ReferralService,
		GatewayService:  services.GatewayService,
		Screenshots:     screenshots,
		Reviewers:       reviewers,
		Metrics:         collector,
		JWTSecretKey:    []byte(a.Config.JWTUserSecret),
		PublishableKey:  a.Config.Stripe.PublishableKey,
	})
	if rErr != nil {
		return fmt.Errorf("app run: %s", rErr.Error())
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initStore выбирает хранилище записей: postgres, если задан DSN, иначе JSON файлы в DataDir.
func (a *App) initStore(ctx context.Context) (uow.UOW, func(), error) {
	if a.Config.UsesDocumentStore() {
		store, err := docstore.Open(a.Config.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		unitOfWork := docstore.NewUnitOfWork(store)
		if regErr := docstore.RegisterRepositories(unitOfWork); regErr != nil {
			return nil, nil, fmt.Errorf("init store: %w", regErr)
		}
		a.Logger.WithField("dir", store.Dir()).Info("using JSON document store")
		return unitOfWork, func() {}, nil
	}

	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return nil, nil, fmt.Errorf("init store: %w", connErr)
	}
	unitOfWork := uow.NewUnitOfWork(conn).SetMaxAttempts(a.Config.DBTxAttempts)
	if regErr := pgrepo.RegisterRepositories(unitOfWork); regErr != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init store: %w", regErr)
	}
	return unitOfWork, conn.Close, nil
}

func (a *App) initScreenshots(ctx context.Context) (api.ScreenshotStore, error) {
	s3conf := storage.S3Config{
		Bucket:          a.Config.S3.Bucket,
		Region:          a.Config.S3.Region,
		Endpoint:        a.Config.S3.Endpoint,
		AccessKeyID:     a.Config.S3.AccessKeyID,
		SecretAccessKey: a.Config.S3.SecretAccessKey,
	}
	if s3conf.IsEnabled() {
		store, err := storage.NewS3Store(ctx, s3conf)
		if err != nil {
			return nil, fmt.Errorf("init screenshots: %w", err)
		}
		return store, nil
	}

	store, err := storage.NewDiskStore(filepath.Join(a.Config.DataDir, uploadsSubdir))
	if err != nil {
		return nil, fmt.Errorf("init screenshots: %w", err)
	}
	return store, nil
}

// initGateway клиенты Stripe создаются только при наличии ключей. Без них сервис отвечает
// domain.ErrUnconfigured на операции шлюза.
func (a *App) initGateway() (service.CheckoutClient, service.WebhookParser) {
	var (
		checkout service.CheckoutClient
		webhooks service.WebhookParser
	)
	if a.Config.Stripe.SecretKey != "" {
		checkout = stripegw.NewClient(a.Config.Stripe.SecretKey, a.Config.Stripe.Currency, a.Logger)
	} else {
		a.Logger.Warn("stripe secret key is not set, checkout is disabled")
	}
	if a.Config.Stripe.WebhookSecret != "" {
		webhooks = stripegw.NewWebhookVerifier(a.Config.Stripe.WebhookSecret)
	} else {
		a.Logger.Warn("stripe webhook secret is not set, webhooks are disabled")
	}
	return checkout, webhooks
}
