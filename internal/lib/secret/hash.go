// Package secret реализует функции для безопасного хеширования и проверки
// refresh-токенов.
//
// GetHash создает bcrypt-хеш токена для безопасного хранения: в базе
// никогда не лежит сам токен, только его хэш.
// CompareHash сравнивает сохранённый bcrypt-хеш с предъявленным токеном.
package secret

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash принимает refresh-токен и возвращает его bcrypt‑хэш.
func GetHash(token string) (string, error) {
	const op = "secret.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает bcrypt‑хэш с предъявленным токеном.
//
// Возвращает nil, если токен соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalToken string) error {
	const op = "secret.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalToken)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
