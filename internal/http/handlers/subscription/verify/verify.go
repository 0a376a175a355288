// Package verify реализует HTTP-обработчик проверки чека App Store.
//
// Handler отправляет чек в Apple, превращает последнюю покупку из ответа
// в кандидата обновления подписки и передаёт его сервису подписок.
// Устаревшие или дублирующиеся чеки сервис молча отклоняет, ответ
// при этом содержит актуальное состояние подписки.
package verify

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	"github.com/Keen-VPN/vpn-backend-service/internal/paymentprovider"
)

// Handler отвечает за обработку запросов на проверку чеков App Store.
type Handler struct {
	log      *slog.Logger
	verifier Verifier
	service  Service
	validate *validator.Validate
}

// Verifier описывает клиент проверки чеков App Store.
type Verifier interface {
	VerifyReceipt(ctx context.Context, receiptData string) (*paymentprovider.VerifyReceiptResponse, error)
}

// Service описывает интерфейс применения событий подписки.
type Service interface {
	ApplyProviderEvent(ctx context.Context, userUID string, candidate models.CandidateUpdate) (*models.SubscriptionSnapshot, error)
}

// New создает новый Handler с переданными логгером, клиентом Apple и сервисом.
func New(log *slog.Logger, verifier Verifier, service Service) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверить чек App Store
// @Description Проверяет чек покупки в Apple и обновляет состояние подписки пользователя.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyVerifyReceipt true "Чек App Store"
// @Success 200 {object} response.OKResponse "Актуальное состояние подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или невалидный чек"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Apple недоступен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /subscription/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verify"

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

	var req models.DummyVerifyReceipt
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

	verifyResp, err := h.verifier.VerifyReceipt(r.Context(), req.ReceiptData)
	if err != nil {
		log.Error("failed to verify receipt with apple", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not verify receipt"))
		return
	}
	if verifyResp.Status != 0 || len(verifyResp.LatestReceiptInfo) == 0 {
		log.Info("receipt rejected by apple", slog.Int("apple_status", verifyResp.Status))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid receipt"))
		return
	}

	candidate := candidateFromReceipt(verifyResp.LatestReceiptInfo[len(verifyResp.LatestReceiptInfo)-1])
	snapshot, err := h.service.ApplyProviderEvent(r.Context(), userUID, candidate)
	if err != nil {
		log.Error("failed to apply receipt", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update subscription"))
		return
	}

	log.Info("receipt processed", slog.String("status", string(snapshot.Status)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":     snapshot.Status,
		"period_end": snapshot.PeriodEnd,
		"plan":       snapshot.Plan,
	}))
}

// candidateFromReceipt собирает кандидата обновления из последней покупки.
// Отменённая покупка даёт статус cancelled, действующая — active,
// истёкшая — inactive.
func candidateFromReceipt(info paymentprovider.LatestReceiptInfo) models.CandidateUpdate {
	candidate := models.CandidateUpdate{
		Status:     models.StatusInactive,
		CustomerID: info.OriginalTransactionID,
		Plan:       info.ProductID,
		Provider:   "apple",
	}

	expiresAt := parseMSTimestamp(info.ExpiresDateMS)
	candidate.PeriodEnd = expiresAt

	switch {
	case info.CancellationDateMS != "":
		candidate.Status = models.StatusCancelled
	case expiresAt != nil && expiresAt.After(time.Now().UTC()):
		candidate.Status = models.StatusActive
	}
	return candidate
}

func parseMSTimestamp(ms string) *time.Time {
	if ms == "" {
		return nil
	}
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(v).UTC()
	return &t
}
