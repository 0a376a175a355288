// Package applewebhook реализует приём App Store Server Notifications V2.
//
// Уведомление приходит как JWS в поле signedPayload. Handler извлекает
// полезную нагрузку уведомления и вложенной транзакции, превращает тип
// уведомления в кандидата обновления подписки и передаёт его сервису.
// Пользователь определяется по appAccountToken транзакции, куда клиент
// при покупке кладёт UID пользователя.
package applewebhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
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

// Handler отвечает за обработку уведомлений App Store.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// notificationBody — тело запроса App Store.
type notificationBody struct {
	SignedPayload string `json:"signedPayload"`
}

// notificationPayload — полезная нагрузка уведомления V2.
type notificationPayload struct {
	NotificationType string `json:"notificationType"`
	Subtype          string `json:"subtype"`
	Data             struct {
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	} `json:"data"`
}

// transactionPayload — полезная нагрузка вложенной транзакции.
type transactionPayload struct {
	ProductID             string `json:"productId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	AppAccountToken       string `json:"appAccountToken"`
	ExpiresDate           int64  `json:"expiresDate"`    // миллисекунды unix-времени
	RevocationDate        int64  `json:"revocationDate"` // миллисекунды unix-времени
}

// decodeJWSPayload извлекает полезную нагрузку JWS без проверки цепочки x5c.
func decodeJWSPayload(token string, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return errors.New("malformed jws token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

// ServeHTTP godoc
// @Summary Webhook App Store
// @Description Принимает server-to-server уведомления App Store о подписках.
// @Tags Webhooks
// @Accept  json
// @Success 200 "Уведомление принято"
// @Failure 400 "Некорректное тело"
// @Failure 500 "Ошибка обработки"
// @Router /webhooks/apple [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.apple"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req notificationBody
	if err := json.Unmarshal(body, &req); err != nil || req.SignedPayload == "" {
		log.Error("failed to unmarshal webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var notification notificationPayload
	if err := decodeJWSPayload(req.SignedPayload, &notification); err != nil {
		log.Error("failed to decode signed payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var transaction transactionPayload
	if err := decodeJWSPayload(notification.Data.SignedTransactionInfo, &transaction); err != nil {
		log.Error("failed to decode transaction info", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	candidate, handled := candidateFromNotification(notification.NotificationType, transaction)
	if !handled {
		log.Info("ignored notification", slog.String("type", notification.NotificationType))
		w.WriteHeader(http.StatusOK)
		return
	}
	if transaction.AppAccountToken == "" {
		log.Error("notification without app account token",
			slog.String("type", notification.NotificationType))
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.service.ApplyProviderEvent(r.Context(), transaction.AppAccountToken, candidate); err != nil {
		log.Error("failed to process notification", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("notification processed",
		slog.String("type", notification.NotificationType),
		slog.String("subtype", notification.Subtype))
	w.WriteHeader(http.StatusOK)
}

// Обрабатываемые типы уведомлений App Store.
const (
	NotificationSubscribed     = "SUBSCRIBED"
	NotificationDidRenew       = "DID_RENEW"
	NotificationDidFailToRenew = "DID_FAIL_TO_RENEW"
	NotificationExpired        = "EXPIRED"
	NotificationRefund         = "REFUND"
	NotificationRevoke         = "REVOKE"
)

// candidateFromNotification строит кандидата обновления по типу уведомления.
func candidateFromNotification(notificationType string, tx transactionPayload) (models.CandidateUpdate, bool) {
	candidate := models.CandidateUpdate{
		CustomerID: tx.OriginalTransactionID,
		Plan:       tx.ProductID,
		Provider:   "apple",
		PeriodEnd:  periodEndFromMilli(tx.ExpiresDate),
	}

	switch notificationType {
	case NotificationSubscribed, NotificationDidRenew:
		candidate.Status = models.StatusActive
	case NotificationDidFailToRenew:
		candidate.Status = models.StatusPastDue
	case NotificationExpired:
		candidate.Status = models.StatusInactive
	case NotificationRefund, NotificationRevoke:
		candidate.Status = models.StatusCancelled
	default:
		return models.CandidateUpdate{}, false
	}
	return candidate, true
}

func periodEndFromMilli(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
