// Package subscription реализует правила согласования состояния подписки.
//
// События платёжных провайдеров (Stripe, Apple) приходят асинхронно:
// порядок доставки не гарантируется, возможны дубликаты и параллельная
// доставка событий об одной и той же подписке. Decide решает, разрешено ли
// кандидату перезаписать сохранённый снимок, так, чтобы оплаченный доступ
// пользователя никогда не был молча отозван устаревшим или дублирующим
// событием.
//
// Decide — чистая функция без ввода-вывода и скрытого состояния, поэтому
// её можно вызывать из любого числа конкурентных обработчиков без блокировок.
// Гонка чтение-решение-запись вокруг Decide закрывается вызывающей стороной
// (см. services/subscription).
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// ErrInvalidCandidate возвращается, если статус кандидата отсутствует
// или не является одним из пяти известных значений. Отсутствующий PeriodEnd
// ошибкой не считается — это допустимое состояние.
var ErrInvalidCandidate = errors.New("invalid candidate update")

// Decision представляет результат согласования.
// При Allow == false поле Next не заполняется: вызывающая сторона
// оставляет текущий снимок без изменений. Отклонение — ожидаемый исход
// конкурентной доставки, а не ошибка.
type Decision struct {
	Allow bool
	Next  models.SubscriptionSnapshot
}

// Decide решает, может ли кандидат перезаписать текущий снимок подписки.
//
// Правила применяются в порядке приоритета, побеждает первое совпавшее:
//
//  1. active не перезаписывает active — даже с более поздней датой окончания.
//     Два почти одновременных события "подписка активна" (например, из
//     customer.subscription.updated и из обработчика оплаченного инвойса)
//     не должны затирать друг другу CustomerID и PeriodEnd.
//  2. Переход в active из любого неактивного статуса разрешён всегда;
//     переход из active в cancelled разрешён всегда.
//  3. Иначе сравниваются даты окончания периода: кандидат принимается,
//     если приносит дату там, где её не было, или строго более позднюю.
//     Кандидат без даты принимается только при смене статуса.
//  4. Всё остальное отклоняется.
//
// При Allow новый снимок целиком заменяет статус, дату, CustomerID и план
// значениями кандидата, UpdatedAt выставляется в now.
func Decide(now time.Time, current models.SubscriptionSnapshot, candidate models.CandidateUpdate) (Decision, error) {
	if _, err := models.ParseSubscriptionStatus(string(candidate.Status)); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}

	if current.Status == models.StatusActive && candidate.Status == models.StatusActive {
		return Decision{}, nil
	}

	if current.Status != models.StatusActive && candidate.Status == models.StatusActive {
		return Decision{Allow: true, Next: next(now, candidate)}, nil
	}
	if current.Status == models.StatusActive && candidate.Status == models.StatusCancelled {
		return Decision{Allow: true, Next: next(now, candidate)}, nil
	}

	switch {
	case candidate.PeriodEnd == nil:
		if candidate.Status != current.Status {
			return Decision{Allow: true, Next: next(now, candidate)}, nil
		}
		return Decision{}, nil
	case current.PeriodEnd == nil:
		return Decision{Allow: true, Next: next(now, candidate)}, nil
	case candidate.PeriodEnd.After(*current.PeriodEnd):
		return Decision{Allow: true, Next: next(now, candidate)}, nil
	}

	return Decision{}, nil
}

func next(now time.Time, candidate models.CandidateUpdate) models.SubscriptionSnapshot {
	return models.SubscriptionSnapshot{
		Status:     candidate.Status,
		PeriodEnd:  candidate.PeriodEnd,
		CustomerID: candidate.CustomerID,
		Plan:       candidate.Plan,
		UpdatedAt:  now,
	}
}
