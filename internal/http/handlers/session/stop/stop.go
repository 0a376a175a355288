// Package stop реализует HTTP-обработчик закрытия VPN-сессии.
//
// ID сессии берётся из URL, счётчики трафика приходят накопленными
// за всю сессию в теле запроса.
package stop

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	session "github.com/Keen-VPN/vpn-backend-service/internal/services/session"
)

// Handler отвечает за обработку запросов на закрытие сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики закрытия сессии.
type Service interface {
	Stop(ctx context.Context, sessionID, userUID string, bytesIn, bytesOut int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Закрыть VPN-сессию
// @Description Фиксирует завершение подключения и объём переданного трафика.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param id path string true "ID сессии"
// @Param request body models.DummySessionStop true "Счётчики трафика"
// @Success 200 {object} response.OKResponse "Сессия закрыта"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Открытая сессия не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /sessions/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.stop"

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

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		log.Error("session id missing in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("session id is required"))
		return
	}

	var req models.DummySessionStop
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.Stop(r.Context(), sessionID, userUID, req.BytesIn, req.BytesOut)
	if errors.Is(err, session.ErrSessionNotFound) {
		log.Info("open session not found", slog.String("session_id", sessionID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("session not found"))
		return
	}
	if err != nil {
		log.Error("failed to stop session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not stop session"))
		return
	}

	log.Info("session stopped", slog.String("session_id", sessionID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"stopped": true,
	}))
}
