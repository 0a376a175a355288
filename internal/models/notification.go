package models

import "time"

// ExpiringNotice описывает сообщение о подписке, период которой
// заканчивается завтра. Публикуется планировщиком в очередь уведомлений
// и потребляется отправителем писем.
type ExpiringNotice struct {
	UserUID   string    `json:"user_uid"`   // Идентификатор пользователя
	Email     string    `json:"email"`      // Адрес для уведомления
	Plan      string    `json:"plan"`       // Тарифный план подписки
	PeriodEnd time.Time `json:"period_end"` // Дата окончания оплаченного периода
}
