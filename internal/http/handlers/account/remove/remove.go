// Package remove реализует HTTP-обработчик удаления учётной записи.
//
// UID пользователя берётся из контекста, заполненного JWT-middleware.
// Личность провайдера помечается удалённой, поэтому повторный вход
// внутри окна хранения будет отклонён.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
)

// Handler отвечает за обработку запросов на удаление учётной записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления учётной записи.
type Service interface {
	DeleteAccount(ctx context.Context, userUID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить учётную запись
// @Description Удаляет учётную запись текущего пользователя и блокирует её повторное создание на окно хранения.
// @Tags Account
// @Produce  json
// @Success 200 {object} response.OKResponse "Учётная запись удалена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /account [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.remove"

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

	if err := h.service.DeleteAccount(r.Context(), userUID); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not delete account"))
		return
	}

	log.Info("account deleted", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted": true,
	}))
}
