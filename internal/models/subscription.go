// Package models содержит доменные структуры, описывающие состояние подписки
// пользователя VPN, а также вспомогательные типы для работы с данными
// из внешних источников (JSON-запросы, события платёжных провайдеров).
package models

import (
	"fmt"
	"time"
)

// SubscriptionStatus представляет статус подписки пользователя.
type SubscriptionStatus string

// Допустимые статусы подписки.
const (
	StatusInactive  SubscriptionStatus = "inactive"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusTrialing  SubscriptionStatus = "trialing"
)

// ParseSubscriptionStatus проверяет, что строка является одним из
// пяти известных статусов подписки, и возвращает типизированное значение.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case StatusInactive, StatusActive, StatusCancelled, StatusPastDue, StatusTrialing:
		return SubscriptionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown subscription status: %q", s)
	}
}

// SubscriptionSnapshot представляет собой сохранённое состояние подписки
// одного пользователя. PeriodEnd может быть nil — это означает,
// что дата окончания оплаченного периода неизвестна.
type SubscriptionSnapshot struct {
	Status     SubscriptionStatus // Статус подписки
	PeriodEnd  *time.Time         // Момент окончания оплаченного периода
	CustomerID string             // Идентификатор клиента у платёжного провайдера
	Plan       string             // Название тарифного плана
	UpdatedAt  time.Time          // Время последней успешной записи (для диагностики)
}

// CandidateUpdate представляет предлагаемое новое состояние подписки,
// построенное из одного входящего события платёжного провайдера.
// События приходят асинхронно, возможны дубликаты и нарушение порядка.
type CandidateUpdate struct {
	Status     SubscriptionStatus // Новый статус подписки
	PeriodEnd  *time.Time         // Предлагаемая дата окончания периода
	CustomerID string             // Идентификатор клиента у провайдера
	Plan       string             // Название тарифного плана
	Provider   string             // Источник события: stripe или apple
}

// DummyVerifyReceipt используется для приёма чека App Store из JSON-запроса.
type DummyVerifyReceipt struct {
	ReceiptData string `json:"receipt_data" validate:"required"` // base64-чек из приложения
}

// DummyCheckout используется для приёма данных на создание Stripe checkout-сессии.
type DummyCheckout struct {
	Plan string `json:"plan,omitempty"` // Тарифный план (опционально, по умолчанию monthly)
}
