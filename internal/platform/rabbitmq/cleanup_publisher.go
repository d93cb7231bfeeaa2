package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"asset-catalog/internal/model"
)

// CleanupPublisher enqueues file removal retries on a durable queue.
type CleanupPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCleanupPublisher(conn *amqp.Connection, queueName string) *CleanupPublisher {
	return &CleanupPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *CleanupPublisher) PublishFileCleanup(ctx context.Context, job model.FileCleanupJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal cleanup job failed: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    job.EnqueuedAt,
		},
	); err != nil {
		return fmt.Errorf("publish cleanup job failed: %w", err)
	}
	return nil
}
