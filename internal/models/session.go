// Package models содержит модель сессии VPN-подключения,
// используемую для записи телеметрии подключений пользователей.
package models

import "time"

// Session представляет одну сессию VPN-подключения пользователя.
// DisconnectedAt равен nil, пока сессия не завершена.
type Session struct {
	ID             string     // Уникальный идентификатор сессии (uuid)
	UserUID        string     // Идентификатор пользователя
	ServerLocation string     // Локация VPN-сервера, например "de-fra-1"
	ClientIP       string     // IP-адрес клиента на момент подключения
	ConnectedAt    time.Time  // Время установления подключения
	DisconnectedAt *time.Time // Время завершения подключения
	BytesIn        int64      // Принято байт за сессию
	BytesOut       int64      // Отправлено байт за сессию
}

// DummySessionStart используется для приёма данных о новом подключении
// из JSON-запроса до их валидации.
type DummySessionStart struct {
	ServerLocation string `json:"server_location" validate:"required"` // Локация VPN-сервера
	ClientIP       string `json:"client_ip,omitempty"`                 // IP-адрес клиента (опционально)
}

// DummySessionStop используется для приёма данных о завершении подключения.
// Счётчики байт приходят накопленными за всю сессию.
type DummySessionStop struct {
	BytesIn  int64 `json:"bytes_in" validate:"gte=0"`  // Принято байт
	BytesOut int64 `json:"bytes_out" validate:"gte=0"` // Отправлено байт
}

// SessionStats содержит агрегированную статистику по сессиям пользователя.
type SessionStats struct {
	TotalSessions int   `json:"total_sessions"`  // Количество сессий
	TotalBytesIn  int64 `json:"total_bytes_in"`  // Суммарно принято байт
	TotalBytesOut int64 `json:"total_bytes_out"` // Суммарно отправлено байт
}
