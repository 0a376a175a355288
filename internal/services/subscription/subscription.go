// Package services содержит бизнес-логику применения событий платёжных
// провайдеров к состоянию подписки пользователя.
//
// Сама проверка "можно ли перезаписать снимок" живёт в чистой функции
// subscription.Decide; здесь вокруг неё построен цикл
// чтение-решение-запись. Запись условная: она проходит только если снимок
// не менялся с момента чтения, иначе снимок перечитывается и решение
// принимается заново (ограниченное число раз). Так две конкурентные
// доставки вебхука не могут затереть друг друга.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	"github.com/Keen-VPN/vpn-backend-service/internal/storage/repository"
	"github.com/Keen-VPN/vpn-backend-service/internal/subscription"
)

// maxApplyAttempts ограничивает число повторов цикла чтение-решение-запись
// при конкурентной записи снимка.
const maxApplyAttempts = 3

// entitlementCacheTTL задаёт время жизни кешированного результата
// проверки права доступа.
const entitlementCacheTTL = 5 * time.Minute

var reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subscription_reconciliations_total",
	Help: "Число обработанных событий платёжных провайдеров по исходу.",
}, []string{"provider", "outcome"})

// SnapshotRepository определяет методы для работы со снимками подписок в хранилище.
type SnapshotRepository interface {
	// GetSubscriptionSnapshot возвращает текущий снимок подписки пользователя.
	GetSubscriptionSnapshot(ctx context.Context, userUID string) (*models.SubscriptionSnapshot, error)
	// UpdateSubscriptionSnapshot записывает снимок, если он не менялся с prevUpdatedAt.
	UpdateSubscriptionSnapshot(ctx context.Context, userUID string, next models.SubscriptionSnapshot, prevUpdatedAt time.Time) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует события об изменении подписки.
type EventPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// EntitlementEvent описывает применённое изменение подписки,
// публикуемое в обменник entitlements.
type EntitlementEvent struct {
	UserUID   string                    `json:"user_uid"`
	Status    models.SubscriptionStatus `json:"status"`
	PeriodEnd *time.Time                `json:"period_end,omitempty"`
	Plan      string                    `json:"plan,omitempty"`
	Provider  string                    `json:"provider"`
}

// SubscriptionService применяет события провайдеров и отвечает на вопрос,
// есть ли у пользователя право доступа к VPN.
type SubscriptionService struct {
	repo      SnapshotRepository
	cache     Cache
	publisher EventPublisher
	log       *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SnapshotRepository, cache Cache, publisher EventPublisher, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// ApplyProviderEvent применяет событие провайдера к снимку подписки пользователя.
//
// Отклонённое событие — штатный исход (устаревшая, дублирующая или
// конкурентная доставка): метод возвращает неизменённый текущий снимок
// и nil-ошибку. Ошибка возвращается только для некорректного кандидата
// или при сбое хранилища.
func (s *SubscriptionService) ApplyProviderEvent(ctx context.Context, userUID string, candidate models.CandidateUpdate) (*models.SubscriptionSnapshot, error) {
	const op = "services.subscription.ApplyProviderEvent"

	var lastErr error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		current, err := s.repo.GetSubscriptionSnapshot(ctx, userUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		decision, err := subscription.Decide(time.Now().UTC(), *current, candidate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !decision.Allow {
			reconciliationsTotal.WithLabelValues(candidate.Provider, "rejected").Inc()
			s.log.Info("provider event rejected as stale or duplicate",
				slog.String("user_uid", userUID),
				slog.String("candidate_status", string(candidate.Status)),
				slog.String("current_status", string(current.Status)))
			return current, nil
		}

		err = s.repo.UpdateSubscriptionSnapshot(ctx, userUID, decision.Next, current.UpdatedAt)
		if errors.Is(err, repository.ErrSnapshotConflict) {
			lastErr = err
			s.log.Warn("snapshot changed concurrently, retrying",
				slog.String("user_uid", userUID),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		reconciliationsTotal.WithLabelValues(candidate.Provider, "applied").Inc()
		s.log.Info("subscription snapshot updated",
			slog.String("user_uid", userUID),
			slog.String("status", string(decision.Next.Status)))

		if err := s.cache.Invalidate(entitlementKey(userUID)); err != nil {
			s.log.Warn("failed to invalidate entitlement cache", sl.Err(err))
		}
		if s.publisher != nil {
			event := EntitlementEvent{
				UserUID:   userUID,
				Status:    decision.Next.Status,
				PeriodEnd: decision.Next.PeriodEnd,
				Plan:      decision.Next.Plan,
				Provider:  candidate.Provider,
			}
			if err := s.publisher.Publish("entitlements", "changed", event); err != nil {
				s.log.Warn("failed to publish entitlement event", sl.Err(err))
			}
		}

		next := decision.Next
		return &next, nil
	}

	return nil, fmt.Errorf("%s: %w", op, lastErr)
}

// GetSnapshot возвращает текущий снимок подписки пользователя.
func (s *SubscriptionService) GetSnapshot(ctx context.Context, userUID string) (*models.SubscriptionSnapshot, error) {
	return s.repo.GetSubscriptionSnapshot(ctx, userUID)
}

// Entitled отвечает, есть ли у пользователя сейчас право доступа к VPN:
// статус active или trialing, и оплаченный период ещё не истёк.
// Результат кешируется.
func (s *SubscriptionService) Entitled(ctx context.Context, userUID string) (bool, error) {
	var cached bool
	key := entitlementKey(userUID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read entitlement cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	snap, err := s.repo.GetSubscriptionSnapshot(ctx, userUID)
	if err != nil {
		return false, err
	}

	entitled := snap.Status == models.StatusActive || snap.Status == models.StatusTrialing
	if entitled && snap.PeriodEnd != nil && snap.PeriodEnd.Before(time.Now().UTC()) {
		entitled = false
	}

	if err := s.cache.Set(key, entitled, entitlementCacheTTL); err != nil {
		s.log.Warn("failed to cache entitlement", sl.Err(err))
	}
	return entitled, nil
}

func entitlementKey(userUID string) string {
	return fmt.Sprintf("entitlement:%s", userUID)
}
