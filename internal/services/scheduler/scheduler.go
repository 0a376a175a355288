// Package services содержит планировщик уведомлений о заканчивающихся подписках.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Keen-VPN/vpn-backend-service/internal/lib/sl"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// scanInterval задаёт период между проходами планировщика.
const scanInterval = 12 * time.Hour

// SubscriptionRepository описывает выборку подписок для уведомлений.
type SubscriptionRepository interface {
	// FindSubscriptionsExpiringTomorrow возвращает пользователей,
	// у которых оплаченный период заканчивается завтра.
	FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.User, error)
}

// NoticePublisher публикует уведомления в очередь.
type NoticePublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// SchedulerService периодически находит заканчивающиеся подписки
// и публикует уведомления для отправителя писем.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher NoticePublisher
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher NoticePublisher, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Run выполняет первый проход сразу и далее по тикеру,
// пока контекст не будет отменён.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runFindExpiringSubscriptions(ctx)

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runFindExpiringSubscriptions(ctx)
		}
	}
}

func (s *SchedulerService) runFindExpiringSubscriptions(ctx context.Context) {
	s.log.Info("starting scan for subscriptions expiring tomorrow")
	users, err := s.repo.FindSubscriptionsExpiringTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(users) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", "count", len(users))
	for _, user := range users {
		notice := models.ExpiringNotice{
			UserUID: user.UID,
			Email:   user.Email,
			Plan:    user.Subscription.Plan,
		}
		if user.Subscription.PeriodEnd != nil {
			notice.PeriodEnd = *user.Subscription.PeriodEnd
		}
		if err := s.publisher.Publish("notifications", "expiring", notice); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
