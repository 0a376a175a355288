// Package read реализует HTTP-обработчик чтения текущего состояния подписки.
//
// Handler возвращает снимок подписки текущего пользователя и рассчитанный
// признак права доступа к VPN.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// Handler отвечает за обработку запросов на чтение подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения подписки.
type Service interface {
	GetSnapshot(ctx context.Context, userUID string) (*models.SubscriptionSnapshot, error)
	Entitled(ctx context.Context, userUID string) (bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущее состояние подписки
// @Description Возвращает снимок подписки пользователя и признак права доступа к VPN.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.OKResponse "Снимок подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"

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

	snapshot, err := h.service.GetSnapshot(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read subscription snapshot", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	entitled, err := h.service.Entitled(r.Context(), userUID)
	if err != nil {
		log.Error("failed to compute entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	log.Info("subscription snapshot read",
		slog.String("status", string(snapshot.Status)),
		slog.Bool("entitled", entitled))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":     snapshot.Status,
		"period_end": snapshot.PeriodEnd,
		"plan":       snapshot.Plan,
		"entitled":   entitled,
	}))
}
