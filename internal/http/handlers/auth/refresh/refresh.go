// Package refresh реализует HTTP-обработчик обновления пары токенов
// по действующему refresh-токену.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	auth "github.com/Keen-VPN/vpn-backend-service/internal/services/auth"
)

// Handler отвечает за обработку запросов на обновление токенов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления токенов.
type Service interface {
	Refresh(ctx context.Context, userUID, refreshToken string) (token, refresh string, err error)
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
// @Summary Обновить пару токенов
// @Description Проверяет refresh-токен и выдает новые JWT и refresh-токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.DummyRefresh true "UID пользователя и refresh-токен"
// @Success 200 {object} response.OKResponse "Новая пара токенов"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный refresh-токен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /auth/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRefresh
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

	token, refresh, err := h.service.Refresh(r.Context(), req.UserUID, req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidRefreshToken) {
		log.Info("refresh rejected, token mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid refresh token"))
		return
	}
	if err != nil {
		log.Error("failed to refresh tokens", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not refresh tokens"))
		return
	}

	log.Info("tokens refreshed", slog.String("user_uid", req.UserUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":         token,
		"refresh_token": refresh,
	}))
}
