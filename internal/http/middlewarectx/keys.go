// Package middlewarectx содержит HTTP-middleware приложения: проверку JWT,
// ограничение частоты запросов и контроль минимальной версии клиента.
// Здесь же определены типизированные ключи контекста запроса.
package middlewarectx

// Key — типизированный ключ контекста запроса.
type Key string

const (
	// User — электронная почта аутентифицированного пользователя.
	User Key = "user"
	// Role — роль аутентифицированного пользователя.
	Role Key = "role"
	// UserUID — уникальный идентификатор аутентифицированного пользователя.
	UserUID Key = "user_uid"
)
