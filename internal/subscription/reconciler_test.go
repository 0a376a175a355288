package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

func tp(t time.Time) *time.Time { return &t }

func TestDecide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		current   models.SubscriptionSnapshot
		candidate models.CandidateUpdate
		wantAllow bool
	}{
		{
			name:      "первая активация из inactive",
			current:   models.SubscriptionSnapshot{Status: models.StatusInactive},
			candidate: models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 30)), CustomerID: "cus_1", Plan: "monthly"},
			wantAllow: true,
		},
		{
			name:      "active не перезаписывает active более старой датой",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 30)), CustomerID: "cus_1"},
			candidate: models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 15)), CustomerID: "cus_2"},
			wantAllow: false,
		},
		{
			name:      "active не перезаписывает active даже более новой датой",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 30))},
			candidate: models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 90))},
			wantAllow: false,
		},
		{
			name:      "active не перезаписывает active без дат",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive},
			candidate: models.CandidateUpdate{Status: models.StatusActive},
			wantAllow: false,
		},
		{
			name:      "отмена активной подписки всегда разрешена",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 30))},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			wantAllow: true,
		},
		{
			name:      "отмена активной подписки без даты разрешена",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled},
			wantAllow: true,
		},
		{
			name:      "реактивация после отмены разрешена",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(1, 0, 0))},
			wantAllow: true,
		},
		{
			name:      "активация из trialing разрешена",
			current:   models.SubscriptionSnapshot{Status: models.StatusTrialing, PeriodEnd: tp(d.AddDate(0, 0, 7))},
			candidate: models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(d.AddDate(0, 0, 3))},
			wantAllow: true,
		},
		{
			name:      "активация из past_due разрешена",
			current:   models.SubscriptionSnapshot{Status: models.StatusPastDue},
			candidate: models.CandidateUpdate{Status: models.StatusActive},
			wantAllow: true,
		},
		{
			name:      "одинаковый статус: кандидат с более поздней датой принимается",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled, PeriodEnd: tp(d.AddDate(0, 1, 0))},
			wantAllow: true,
		},
		{
			name:      "одинаковый статус: кандидат с более ранней датой отклоняется",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled, PeriodEnd: tp(d.AddDate(0, -1, 0))},
			wantAllow: false,
		},
		{
			name:      "одинаковый статус: равные даты отклоняются",
			current:   models.SubscriptionSnapshot{Status: models.StatusPastDue, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusPastDue, PeriodEnd: tp(d)},
			wantAllow: false,
		},
		{
			name:      "кандидат приносит дату там, где её не было",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			wantAllow: true,
		},
		{
			name:      "смена статуса без даты принимается",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusPastDue},
			wantAllow: true,
		},
		{
			name:      "повтор статуса без даты отклоняется",
			current:   models.SubscriptionSnapshot{Status: models.StatusCancelled, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusCancelled},
			wantAllow: false,
		},
		{
			name:      "повтор inactive без дат отклоняется",
			current:   models.SubscriptionSnapshot{Status: models.StatusInactive},
			candidate: models.CandidateUpdate{Status: models.StatusInactive},
			wantAllow: false,
		},
		{
			name:      "выход из active в past_due без даты принимается",
			current:   models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: tp(d)},
			candidate: models.CandidateUpdate{Status: models.StatusPastDue},
			wantAllow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(now, tt.current, tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, got.Allow)

			if tt.wantAllow {
				assert.Equal(t, tt.candidate.Status, got.Next.Status)
				assert.Equal(t, tt.candidate.PeriodEnd, got.Next.PeriodEnd)
				assert.Equal(t, tt.candidate.CustomerID, got.Next.CustomerID)
				assert.Equal(t, tt.candidate.Plan, got.Next.Plan)
				assert.Equal(t, now, got.Next.UpdatedAt)
			} else {
				assert.Zero(t, got.Next)
			}
		})
	}
}

func TestDecide_InvalidCandidate(t *testing.T) {
	now := time.Now().UTC()
	current := models.SubscriptionSnapshot{Status: models.StatusActive}

	tests := []struct {
		name   string
		status models.SubscriptionStatus
	}{
		{name: "пустой статус", status: ""},
		{name: "неизвестный статус", status: "paused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(now, current, models.CandidateUpdate{Status: tt.status})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCandidate)
		})
	}
}

// Повторный вызов с теми же аргументами должен давать тот же результат:
// Decide — чистая функция, отклонение ничего не меняет.
func TestDecide_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	current := models.SubscriptionSnapshot{Status: models.StatusActive, PeriodEnd: &end, CustomerID: "cus_1"}
	candidate := models.CandidateUpdate{Status: models.StatusActive, PeriodEnd: tp(end.AddDate(0, 1, 0)), CustomerID: "cus_2"}

	first, err := Decide(now, current, candidate)
	require.NoError(t, err)
	second, err := Decide(now, current, candidate)
	require.NoError(t, err)

	assert.False(t, first.Allow)
	assert.Equal(t, first, second)
	assert.Equal(t, models.StatusActive, current.Status)
	assert.Equal(t, "cus_1", current.CustomerID)
}
