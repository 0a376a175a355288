// Package start реализует HTTP-обработчик открытия VPN-сессии.
package start

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// Handler отвечает за обработку запросов на открытие сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики открытия сессии.
type Service interface {
	Start(ctx context.Context, userUID, serverLocation, clientIP string) (string, error)
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
// @Summary Открыть VPN-сессию
// @Description Регистрирует новое подключение пользователя к VPN-серверу.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param request body models.DummySessionStart true "Данные подключения"
// @Success 200 {object} response.OKResponse "ID открытой сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /sessions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.start"

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

	var req models.DummySessionStart
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

	clientIP := req.ClientIP
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}

	sessionID, err := h.service.Start(r.Context(), userUID, req.ServerLocation, clientIP)
	if err != nil {
		log.Error("failed to start session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not start session"))
		return
	}

	log.Info("session started", slog.String("session_id", sessionID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"session_id": sessionID,
	}))
}
