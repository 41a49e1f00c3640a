// Package backendfn реализует клиента внешних backend-функций.
//
// Каждая функция — непрозрачный RPC поверх HTTP, возвращающий конверт
// {success, data?, error?}. Клиент не интерпретирует внутренности данных,
// только разворачивает конверт и сообщает об ошибке вызова.
package backendfn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/magabrotheeeer/billing-gateway/internal/config"
)

// Client — HTTP-клиент backend-функций с анонимным ключом доступа.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient создаёт нового клиента backend-функций.
func NewClient(cfg config.Backend) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) call(ctx context.Context, name string, payload any, out any) error {
	const op = "backendfn.call"

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/functions/v1/"+name, &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: %s: decode response: %w", op, name, err)
	}
	if !env.Success {
		return fmt.Errorf("%s: %s: %s", op, name, env.Error)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: %s: decode data: %w", op, name, err)
		}
	}
	return nil
}

// CreatePaymentIntent создаёт платёжное намерение на заданную сумму.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int, currency string, metadata map[string]string) (*PaymentIntent, error) {
	var intent PaymentIntent
	err := c.call(ctx, "create-payment-intent", map[string]any{
		"amount":   amount,
		"currency": currency,
		"metadata": metadata,
	}, &intent)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateSubscription создаёт подписку у провайдера для пользователя.
func (c *Client) CreateSubscription(ctx context.Context, userUID, priceID string) (*SubscriptionInfo, error) {
	var info SubscriptionInfo
	err := c.call(ctx, "create-subscription", map[string]string{
		"user_uid": userUID,
		"price_id": priceID,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// HandlePaymentSuccess фиксирует успешный платёж в удалённом хранилище.
func (c *Client) HandlePaymentSuccess(ctx context.Context, userUID, planID, paymentIntentID string) error {
	return c.call(ctx, "handle-payment-success", map[string]string{
		"user_uid":          userUID,
		"plan":              planID,
		"payment_intent_id": paymentIntentID,
	}, nil)
}

// CheckTrialEligibility запрашивает удалённую оценку риска для email.
func (c *Client) CheckTrialEligibility(ctx context.Context, email string) (*EligibilityResult, error) {
	var res EligibilityResult
	err := c.call(ctx, "check-trial-eligibility", map[string]string{"email": email}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CheckWebhookStatus возвращает состояние доставки вебхуков.
func (c *Client) CheckWebhookStatus(ctx context.Context) (*WebhookStatus, error) {
	var status WebhookStatus
	err := c.call(ctx, "check-webhook-status", nil, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FixSubscription принудительно выставляет тариф по известному успешному платежу.
func (c *Client) FixSubscription(ctx context.Context, userUID, planID string) error {
	return c.call(ctx, "fix-subscription", map[string]string{
		"user_uid": userUID,
		"plan":     planID,
	}, nil)
}

// GetSubscription возвращает авторитетное состояние подписки пользователя.
func (c *Client) GetSubscription(ctx context.Context, userUID string) (*SubscriptionInfo, error) {
	var info SubscriptionInfo
	err := c.call(ctx, "get-subscription", map[string]string{"user_uid": userUID}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
