// Package signin реализует HTTP-обработчик входа через внешнего провайдера.
//
// Handler принимает JSON с данными личности провайдера (Google, Apple или
// Firebase), валидирует их и обменивает на пару токенов: JWT и refresh-токен.
// Учётная запись создаётся при первом входе автоматически.
package signin

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

// Handler отвечает за обработку запросов на вход.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	SignIn(ctx context.Context, identity models.ProviderIdentity) (token, refresh string, user *models.User, err error)
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
// @Summary Вход через внешнего провайдера
// @Description Обменивает проверенные данные личности Google/Apple/Firebase на JWT и refresh-токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.DummySignIn true "Данные личности провайдера"
// @Success 200 {object} response.OKResponse "Токены и профиль пользователя"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Учётная запись недавно удалена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /auth/signin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signin"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySignIn
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

	identity := models.ProviderIdentity{
		Provider: req.Provider,
		Subject:  req.Subject,
		Email:    req.Email,
	}
	token, refresh, user, err := h.service.SignIn(r.Context(), identity)
	if errors.Is(err, auth.ErrAccountDeleted) {
		log.Info("sign-in rejected, account recently deleted")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("account was recently deleted"))
		return
	}
	if err != nil {
		log.Error("failed to sign in", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not sign in"))
		return
	}

	log.Info("user signed in", slog.String("user_uid", user.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":         token,
		"refresh_token": refresh,
		"user_uid":      user.UID,
		"email":         user.Email,
	}))
}
