// Package localstate реализует типизированное локальное состояние сессии
// поверх Redis: текущий пользователь, выбранный тариф, текущий анализ,
// кеш прежних анализов, зеркало диагностического журнала и счётчик
// повторных отправок email.
//
// Повреждённое (неразбираемое) значение по контракту считается отсутствующим:
// чтение возвращает found = false и никогда не отдаёт ошибку разбора наружу.
package localstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/billing-gateway/internal/config"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

const (
	selectionTTL     = time.Hour
	submissionWindow = 24 * time.Hour
	// submissionKeep ограничивает длину списка отметок, чтобы ключ не рос бесконечно.
	submissionKeep = 50
)

// Store инкапсулирует подключение к Redis и схему ключей локального состояния.
type Store struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Store, error) {
	const op = "localstate.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{Db: db}, nil
}

func (s *Store) get(ctx context.Context, key string, result any) (bool, error) {
	const op = "localstate.get"
	val, err := s.Db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	// Повреждённое значение считается отсутствующим.
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Db.Set(ctx, key, jsonData, expiration).Err()
}

func (s *Store) remove(ctx context.Context, key string) error {
	return s.Db.Del(ctx, key).Err()
}

// SaveUser сохраняет локальную копию пользователя сессии.
func (s *Store) SaveUser(ctx context.Context, sid string, user models.User) error {
	return s.set(ctx, "user:"+sid, user, 0)
}

// GetUser возвращает локальную копию пользователя сессии.
func (s *Store) GetUser(ctx context.Context, sid string) (*models.User, bool, error) {
	var user models.User
	found, err := s.get(ctx, "user:"+sid, &user)
	if err != nil || !found {
		return nil, false, err
	}
	return &user, true, nil
}

// RemoveUser очищает локальную копию пользователя (выход из сессии).
func (s *Store) RemoveUser(ctx context.Context, sid string) error {
	return s.remove(ctx, "user:"+sid)
}

// SaveSelection сохраняет выбранный тариф на время оформления.
func (s *Store) SaveSelection(ctx context.Context, sid string, sel models.Selection) error {
	return s.set(ctx, "selection:"+sid, sel, selectionTTL)
}

// GetSelection возвращает выбранный тариф текущего оформления.
func (s *Store) GetSelection(ctx context.Context, sid string) (*models.Selection, bool, error) {
	var sel models.Selection
	found, err := s.get(ctx, "selection:"+sid, &sel)
	if err != nil || !found {
		return nil, false, err
	}
	return &sel, true, nil
}

// ClearSelection сбрасывает незавершённое оформление.
func (s *Store) ClearSelection(ctx context.Context, sid string) error {
	return s.remove(ctx, "selection:"+sid)
}

// SaveCurrentAnalysis сохраняет текущий анализ сессии.
func (s *Store) SaveCurrentAnalysis(ctx context.Context, sid string, a models.Analysis) error {
	return s.set(ctx, "analysis:"+sid, a, 0)
}

// GetCurrentAnalysis возвращает текущий анализ сессии.
func (s *Store) GetCurrentAnalysis(ctx context.Context, sid string) (*models.Analysis, bool, error) {
	var a models.Analysis
	found, err := s.get(ctx, "analysis:"+sid, &a)
	if err != nil || !found {
		return nil, false, err
	}
	return &a, true, nil
}

// AppendAnalysis добавляет завершённый анализ в кеш прежних анализов.
func (s *Store) AppendAnalysis(ctx context.Context, sid string, a models.Analysis) error {
	var list []models.Analysis
	if _, err := s.get(ctx, "analyses:"+sid, &list); err != nil {
		return err
	}
	list = append(list, a)
	return s.set(ctx, "analyses:"+sid, list, 0)
}

// ListAnalyses возвращает кеш прежних анализов сессии.
func (s *Store) ListAnalyses(ctx context.Context, sid string) ([]models.Analysis, error) {
	var list []models.Analysis
	if _, err := s.get(ctx, "analyses:"+sid, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveDiagLog зеркалирует диагностический журнал целиком.
func (s *Store) SaveDiagLog(ctx context.Context, entries []models.LogEntry) error {
	return s.set(ctx, "diaglog", entries, 0)
}

// LoadDiagLog загружает зеркальную копию диагностического журнала.
func (s *Store) LoadDiagLog(ctx context.Context) ([]models.LogEntry, bool, error) {
	var entries []models.LogEntry
	found, err := s.get(ctx, "diaglog", &entries)
	if err != nil || !found {
		return nil, false, err
	}
	return entries, true, nil
}

// RecordSubmission фиксирует отправку email в скользящем окне.
func (s *Store) RecordSubmission(ctx context.Context, email string, now time.Time) error {
	const op = "localstate.RecordSubmission"
	key := "elig:submissions:" + email
	pipe := s.Db.TxPipeline()
	pipe.LPush(ctx, key, strconv.FormatInt(now.UnixNano(), 10))
	pipe.LTrim(ctx, key, 0, submissionKeep-1)
	pipe.Expire(ctx, key, submissionWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountRecentSubmissions возвращает число отправок email за окно window.
func (s *Store) CountRecentSubmissions(ctx context.Context, email string, window time.Duration, now time.Time) (int, error) {
	const op = "localstate.CountRecentSubmissions"
	key := "elig:submissions:" + email
	values, err := s.Db.LRange(ctx, key, 0, submissionKeep-1).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	cutoff := now.Add(-window).UnixNano()
	count := 0
	for _, v := range values {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		if ts >= cutoff {
			count++
		}
	}
	return count, nil
}
