// Package list реализует HTTP-обработчик просмотра истории VPN-сессий.
//
// Handler возвращает страницу сессий текущего пользователя (новые первыми)
// и агрегированную статистику по всем его сессиям.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// Handler отвечает за обработку запросов на просмотр сессий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики просмотра сессий.
type Service interface {
	List(ctx context.Context, userUID string, limit, offset int) ([]*models.Session, error)
	Stats(ctx context.Context, userUID string) (*models.SessionStats, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary История VPN-сессий
// @Description Возвращает страницу сессий пользователя и агрегаты по трафику.
// @Tags Sessions
// @Produce  json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.OKResponse "Сессии и статистика"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /sessions/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.list"

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

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.service.List(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list sessions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list sessions"))
		return
	}

	stats, err := h.service.Stats(r.Context(), userUID)
	if err != nil {
		log.Error("failed to count session stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list sessions"))
		return
	}

	log.Info("sessions listed", slog.Int("count", len(sessions)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sessions": toItems(sessions),
		"stats":    stats,
	}))
}

// item — представление сессии в JSON-ответе.
type item struct {
	ID             string  `json:"id"`
	ServerLocation string  `json:"server_location"`
	ConnectedAt    string  `json:"connected_at"`
	DisconnectedAt *string `json:"disconnected_at"`
	BytesIn        int64   `json:"bytes_in"`
	BytesOut       int64   `json:"bytes_out"`
}

func toItems(sessions []*models.Session) []item {
	items := make([]item, 0, len(sessions))
	for _, s := range sessions {
		it := item{
			ID:             s.ID,
			ServerLocation: s.ServerLocation,
			ConnectedAt:    s.ConnectedAt.Format(time.RFC3339),
			BytesIn:        s.BytesIn,
			BytesOut:       s.BytesOut,
		}
		if s.DisconnectedAt != nil {
			v := s.DisconnectedAt.Format(time.RFC3339)
			it.DisconnectedAt = &v
		}
		items = append(items, it)
	}
	return items
}
