// Package vpnbackend собирает HTTP-приложение VPN-бэкенда: маршруты,
// middleware и жизненный цикл сервера.
package vpnbackend

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Keen-VPN/vpn-backend-service/internal/config"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/account/remove"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/auth/refresh"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/auth/signin"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/health"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/session/list"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/session/start"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/session/stop"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/subscription/checkout"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/subscription/read"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/subscription/verify"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/webhook/applewebhook"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/handlers/webhook/stripewebhook"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/paymentprovider"
	authservice "github.com/Keen-VPN/vpn-backend-service/internal/services/auth"
	sessionservice "github.com/Keen-VPN/vpn-backend-service/internal/services/session"
	subservice "github.com/Keen-VPN/vpn-backend-service/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	authService *authservice.AuthService,
	subscriptionService *subservice.SubscriptionService,
	sessionService *sessionservice.SessionService,
	stripeClient *paymentprovider.StripeClient,
	appstoreClient *paymentprovider.AppStoreClient,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.VersionGateMiddleware(logger, cfg.MinAppVersion))

		// Открытые конечные точки
		r.Post("/auth/signin", signin.New(logger, authService).ServeHTTP)
		r.Post("/auth/refresh", refresh.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, authService))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Delete("/account", remove.New(logger, authService).ServeHTTP)
			r.Get("/subscription", read.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscription/verify", verify.New(logger, appstoreClient, subscriptionService).ServeHTTP)
			r.Post("/subscription/checkout", checkout.New(logger, stripeClient, cfg.Stripe).ServeHTTP)
			r.Post("/sessions", start.New(logger, sessionService).ServeHTTP)
			r.Put("/sessions/{id}", stop.New(logger, sessionService).ServeHTTP)
			r.Get("/sessions/list", list.New(logger, sessionService).ServeHTTP)
		})

		// Webhook endpoints (без аутентификации)
		r.Post("/webhooks/stripe", stripewebhook.New(logger, subscriptionService, cfg.StripeWebhookSecret).ServeHTTP)
		r.Post("/webhooks/apple", applewebhook.New(logger, subscriptionService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
