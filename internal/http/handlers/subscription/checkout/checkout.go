// Package checkout реализует HTTP-обработчик создания Stripe checkout-сессии.
//
// Handler создаёт сессию оплаты в режиме подписки и возвращает ссылку,
// по которой клиент переходит к оплате. Состояние подписки меняется
// позже, когда Stripe пришлёт webhook об оплате.
package checkout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/Keen-VPN/vpn-backend-service/internal/config"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/paymentprovider"
)

// Handler отвечает за обработку запросов на создание checkout-сессии.
type Handler struct {
	log    *slog.Logger
	stripe StripeClient
	cfg    config.Stripe
}

// StripeClient описывает клиент создания checkout-сессий.
type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutSessionRequest) (*paymentprovider.CheckoutSessionResponse, error)
}

// New создает новый Handler с переданными логгером, клиентом Stripe и настройками.
func New(log *slog.Logger, stripe StripeClient, cfg config.Stripe) *Handler {
	return &Handler{
		log:    log,
		stripe: stripe,
		cfg:    cfg,
	}
}

// ServeHTTP godoc
// @Summary Создать Stripe checkout-сессию
// @Description Создаёт сессию оплаты подписки и возвращает ссылку для перехода к оплате.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.OKResponse "Ссылка на оплату"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 502 {object} response.ErrorResponse "Stripe недоступен"
// @Security BearerAuth
// @Router /subscription/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	email, _ := r.Context().Value(middlewarectx.User).(string)

	session, err := h.stripe.CreateCheckoutSession(r.Context(), paymentprovider.CheckoutSessionRequest{
		PriceID:           h.cfg.StripePriceID,
		CustomerEmail:     email,
		ClientReferenceID: userUID,
		SuccessURL:        h.cfg.CheckoutSuccessURL,
		CancelURL:         h.cfg.CheckoutCancelURL,
	})
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	log.Info("checkout session created", slog.String("session_id", session.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"checkout_url": session.URL,
		"session_id":   session.ID,
	}))
}
