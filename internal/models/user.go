// Package models содержит доменную модель пользователя VPN-сервиса.
// Пользователь создаётся при первом входе через внешнего провайдера
// аутентификации (Google, Apple, Firebase) и хранит текущий снимок подписки.
package models

import "time"

// User представляет пользователя VPN-сервиса.
type User struct {
	UID              string               // Уникальный идентификатор пользователя
	Email            string               // Электронная почта
	Provider         string               // Провайдер аутентификации: google, apple или firebase
	ProviderSubject  string               // Идентификатор пользователя у провайдера (sub из ID-токена)
	Role             string               // Роль пользователя, admin или user
	RefreshTokenHash string               // bcrypt-хэш refresh-токена
	Subscription     SubscriptionSnapshot // Текущий снимок подписки
	CreatedAt        time.Time            // Дата регистрации
}

// ProviderIdentity описывает личность пользователя, уже извлечённую
// из проверенного ID-токена внешнего провайдера. Проверка подписи токена
// выполняется вне сервиса и здесь не повторяется.
type ProviderIdentity struct {
	Provider string // google, apple или firebase
	Subject  string // sub из ID-токена
	Email    string // Электронная почта из ID-токена
}

// DummySignIn используется для приёма данных входа из JSON-запроса
// до их валидации и преобразования в ProviderIdentity.
type DummySignIn struct {
	Provider string `json:"provider" validate:"required,oneof=google apple firebase"` // Провайдер аутентификации
	Subject  string `json:"subject" validate:"required"`  // Идентификатор пользователя у провайдера
	Email    string `json:"email" validate:"required"`    // Электронная почта
}

// DummyRefresh используется для приёма refresh-токена из JSON-запроса.
type DummyRefresh struct {
	UserUID      string `json:"user_uid" validate:"required,uuid"` // Идентификатор пользователя
	RefreshToken string `json:"refresh_token" validate:"required"` // Refresh-токен
}
