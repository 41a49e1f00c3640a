// Package repository реализует хранилище данных на основе PostgreSQL
// для долговечной очереди отложенной сверки подписок. Таблица переживает
// перезапуски сервиса: задача сверки не теряется, даже если сообщение
// в очередь не ушло.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с задачами сверки.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "repository.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'pending_reconciliations'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check pending_reconciliations table: %w", err)
	}
	if !exists {
		return fmt.Errorf("required table pending_reconciliations is missing")
	}
	return nil
}
