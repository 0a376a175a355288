package vpnbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/Keen-VPN/vpn-backend-service/internal/cache"
	"github.com/Keen-VPN/vpn-backend-service/internal/config"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/jwt"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/rabbitmq"
	"github.com/Keen-VPN/vpn-backend-service/internal/migrations"
	"github.com/Keen-VPN/vpn-backend-service/internal/paymentprovider"
	authservice "github.com/Keen-VPN/vpn-backend-service/internal/services/auth"
	sessionservice "github.com/Keen-VPN/vpn-backend-service/internal/services/session"
	subservice "github.com/Keen-VPN/vpn-backend-service/internal/services/subscription"
	"github.com/Keen-VPN/vpn-backend-service/internal/storage/repository"

	_ "github.com/Keen-VPN/vpn-backend-service/docs"
)

const (
	rabbitMaxRetries = 5
	rabbitRetryDelay = 3 * time.Second
)

// App инкапсулирует HTTP-сервер и подключения к внешним ресурсам.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: базу, кеш, брокер, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, rabbitMaxRetries, rabbitRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEntitlementQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, db, jwtMaker, cfg.Blacklist.RetentionWindow)
	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, publisher, logger)
	sessionService := sessionservice.NewSessionService(db, logger)

	stripeClient := paymentprovider.NewStripeClient(cfg.StripeSecretKey)
	appstoreClient := paymentprovider.NewAppStoreClient(cfg.AppleSharedSecret, cfg.AppleVerifyURL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, subscriptionService, sessionService, stripeClient, appstoreClient)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и корректно останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		if dbErr := a.db.DB.Close(); dbErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", dbErr))
		}
		return err
	}
}
