package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"asset-catalog/internal/model"
	"asset-catalog/internal/platform/rabbitmq"
)

type FileRemover interface {
	Remove(ctx context.Context, name string) error
}

// FileCleanupWorker retries stored-file removals that failed during a
// request. Each job gets exactly one attempt; leftovers are the sweeper's.
type FileCleanupWorker struct {
	conn      *amqp.Connection
	files     FileRemover
	queueName string
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileCleanupWorker(conn *amqp.Connection, files FileRemover, queueName string, log zerolog.Logger) *FileCleanupWorker {
	return &FileCleanupWorker{
		conn:      conn,
		files:     files,
		queueName: queueName,
		log:       log.With().Str("worker", "file_cleanup").Logger(),
	}
}

func (w *FileCleanupWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.log.Info().Str("queue", w.queueName).Msg("file cleanup worker started")
	return nil
}

func (w *FileCleanupWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.FileCleanupJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.FilePath == "" {
		w.log.Error().Err(err).Bytes("body", d.Body).Msg("decode cleanup job failed")
		_ = d.Nack(false, false)
		return
	}

	if err := w.files.Remove(ctx, job.FilePath); err != nil {
		w.log.Error().Err(err).Str("file", job.FilePath).Str("reason", job.Reason).Msg("cleanup retry failed")
		_ = d.Nack(false, false)
		return
	}

	w.log.Info().Str("file", job.FilePath).Str("reason", job.Reason).Msg("stored file cleaned up")
	_ = d.Ack(false)
}

func (w *FileCleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
