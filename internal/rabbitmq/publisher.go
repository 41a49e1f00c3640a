package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Queue публикует задачи сверки в очередь сообщений.
type Queue struct {
	ch *amqp.Channel
}

// NewQueue создает новый экземпляр Queue.
func NewQueue(ch *amqp.Channel) *Queue {
	return &Queue{ch: ch}
}

// PublishReconciliationTask отправляет задачу сверки в очередь.
func (q *Queue) PublishReconciliationTask(task models.ReconciliationTask) error {
	return PublishMessage(q.ch, ReconciliationExchange, TaskRoutingKey, task)
}
