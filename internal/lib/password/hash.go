// Package password реализует функции для безопасного хеширования и проверки
// операторского ключа доступа.
//
// GetHash создает bcrypt-хеш ключа для хранения в конфигурации.
// CompareHash сравнивает сохранённый bcrypt-хеш с предъявленным ключом.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash принимает ключ и возвращает его bcrypt‑хэш.
func GetHash(key string) (string, error) {
	const op = "password.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает bcrypt‑хэш с предъявленным ключом.
//
// Возвращает nil, если ключ соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalKey string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalKey)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
