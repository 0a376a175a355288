// Package stripewebhook реализует приём server-to-server событий Stripe.
//
// Handler проверяет подпись из заголовка Stripe-Signature, превращает
// событие жизненного цикла подписки в кандидата обновления и передаёт
// его сервису подписок. Устаревшие и дублирующиеся события сервис
// молча отклоняет, webhook при этом отвечает 200, чтобы Stripe
// не повторял доставку.
package stripewebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// Service описывает интерфейс применения событий подписки.
type Service interface {
	ApplyProviderEvent(ctx context.Context, userUID string, candidate models.CandidateUpdate) (*models.SubscriptionSnapshot, error)
}

// Handler отвечает за обработку webhook-запросов Stripe.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Payload описывает используемую часть события Stripe.
type Payload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			Customer          string            `json:"customer"`
			Status            string            `json:"status"`
			CurrentPeriodEnd  int64             `json:"current_period_end"`
			ClientReferenceID string            `json:"client_reference_id"`
			Metadata          map[string]string `json:"metadata"`
			Plan              struct {
				ID string `json:"id"`
			} `json:"plan"`
		} `json:"object"`
	} `json:"data"`
}

// verifySignature проверяет заголовок Stripe-Signature: подпись v1 считается
// как HMAC-SHA256 от строки "<timestamp>.<body>" в hex.
func (h *Handler) verifySignature(body []byte, header string) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ServeHTTP godoc
// @Summary Webhook Stripe
// @Description Принимает события жизненного цикла подписки от Stripe. Подпись обязательна.
// @Tags Webhooks
// @Accept  json
// @Success 200 "Событие принято"
// @Failure 400 "Некорректное тело"
// @Failure 401 "Неверная подпись"
// @Failure 500 "Ошибка обработки"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripe"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	candidate, userUID, handled := candidateFromEvent(payload)
	if !handled {
		log.Info("ignored webhook event", slog.String("type", payload.Type))
		w.WriteHeader(http.StatusOK)
		return
	}
	if userUID == "" {
		log.Error("webhook event without user reference",
			slog.String("type", payload.Type),
			slog.String("event_id", payload.ID))
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.service.ApplyProviderEvent(r.Context(), userUID, candidate); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed",
		slog.String("type", payload.Type),
		slog.String("event_id", payload.ID))
	w.WriteHeader(http.StatusOK)
}

// Обрабатываемые типы событий Stripe.
const (
	CheckoutSessionCompleted   = "checkout.session.completed"
	CustomerSubscriptionUpdate = "customer.subscription.updated"
	CustomerSubscriptionDelete = "customer.subscription.deleted"
)

// candidateFromEvent строит кандидата обновления по типу события.
// Возвращает false, если тип события не обрабатывается.
func candidateFromEvent(payload Payload) (models.CandidateUpdate, string, bool) {
	obj := payload.Data.Object
	candidate := models.CandidateUpdate{
		CustomerID: obj.Customer,
		Plan:       obj.Plan.ID,
		Provider:   "stripe",
	}

	userUID := obj.Metadata["user_uid"]
	if userUID == "" {
		userUID = obj.ClientReferenceID
	}

	switch payload.Type {
	case CheckoutSessionCompleted:
		// У checkout-сессии нет даты окончания периода: активация проходит
		// как смена статуса, дату принесёт следующее событие подписки.
		candidate.Status = models.StatusActive
	case CustomerSubscriptionUpdate:
		candidate.Status = statusFromStripe(obj.Status)
		candidate.PeriodEnd = periodEndFromUnix(obj.CurrentPeriodEnd)
	case CustomerSubscriptionDelete:
		candidate.Status = models.StatusCancelled
		candidate.PeriodEnd = periodEndFromUnix(obj.CurrentPeriodEnd)
	default:
		return models.CandidateUpdate{}, "", false
	}
	return candidate, userUID, true
}

// statusFromStripe переводит статус подписки Stripe в доменный статус.
func statusFromStripe(status string) models.SubscriptionStatus {
	switch status {
	case "active":
		return models.StatusActive
	case "trialing":
		return models.StatusTrialing
	case "past_due":
		return models.StatusPastDue
	case "canceled":
		return models.StatusCancelled
	default:
		return models.StatusInactive
	}
}

func periodEndFromUnix(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
