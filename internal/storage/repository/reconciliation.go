package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// CreatePending вставляет новую задачу сверки и возвращает её ID.
func (s *Storage) CreatePending(ctx context.Context, p models.PendingReconciliation) (int, error) {
	const op = "repository.CreatePending"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO pending_reconciliations (user_uid, plan_id, payment_intent_id, status)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.UserUID, p.PlanID, p.PaymentIntentID, models.ReconciliationPending).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPending возвращает задачи, ожидающие повторной попытки, начиная с самых старых.
func (s *Storage) ListPending(ctx context.Context, limit int) ([]*models.PendingReconciliation, error) {
	const op = "repository.ListPending"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, payment_intent_id, attempts, status, created_at, updated_at
			  FROM pending_reconciliations
			  WHERE status = $1
			  ORDER BY created_at
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, models.ReconciliationPending, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PendingReconciliation
	for rows.Next() {
		var p models.PendingReconciliation
		if err := rows.Scan(&p.ID, &p.UserUID, &p.PlanID, &p.PaymentIntentID,
			&p.Attempts, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// IncrementAttempts увеличивает счётчик попыток задачи и возвращает новое значение.
func (s *Storage) IncrementAttempts(ctx context.Context, id int) (int, error) {
	const op = "repository.IncrementAttempts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE pending_reconciliations
			  SET attempts = attempts + 1, updated_at = NOW()
			  WHERE id = $1
			  RETURNING attempts`
	var attempts int
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// MarkResolved помечает задачу как успешно свёрстанную с удалённым хранилищем.
func (s *Storage) MarkResolved(ctx context.Context, id int) error {
	return s.setStatus(ctx, "repository.MarkResolved", id, models.ReconciliationResolved)
}

// MarkManual помечает задачу как требующую ручного разбора.
func (s *Storage) MarkManual(ctx context.Context, id int) error {
	return s.setStatus(ctx, "repository.MarkManual", id, models.ReconciliationManual)
}

func (s *Storage) setStatus(ctx context.Context, op string, id int, status string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE pending_reconciliations
			  SET status = $1, updated_at = NOW()
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: no task with id %d", op, id)
	}
	return nil
}

// ResolveByUser закрывает все незакрытые задачи пользователя и возвращает их число.
// Используется после ручного выравнивания подписки оператором.
func (s *Storage) ResolveByUser(ctx context.Context, userUID string) (int, error) {
	const op = "repository.ResolveByUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE pending_reconciliations
			  SET status = $1, updated_at = NOW()
			  WHERE user_uid = $2 AND status != $1`
	res, err := s.DB.ExecContext(ctx, query, models.ReconciliationResolved, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}
