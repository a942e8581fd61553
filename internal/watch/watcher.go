// Package watch tails the dead-letter queue and prints received payloads
// for inspection.
package watch

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Receiver is the SQS surface the watcher needs.
type Receiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler consumes one message body. Returning an error leaves the
// message on the queue for redelivery.
type Handler func(body string) error

// Config tunes the receive loop.
type Config struct {
	QueueURL string

	// WaitSeconds is the long-poll duration per receive. Default 20.
	WaitSeconds int32

	// MaxMessages is the batch size per receive. Default 10.
	MaxMessages int32
}

// Watcher drains dead-letter messages until its context ends.
type Watcher struct {
	client  Receiver
	cfg     Config
	handler Handler
	logger  *zap.Logger
}

// New builds a queue watcher.
func New(client Receiver, cfg Config, handler Handler, logger *zap.Logger) *Watcher {
	if cfg.WaitSeconds <= 0 {
		cfg.WaitSeconds = 20
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{client: client, cfg: cfg, handler: handler, logger: logger}
}

// Run long-polls the queue, hands each message to the handler, and
// deletes handled messages. It returns when the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Watching dead-letter queue",
		zap.String("queue_url", w.cfg.QueueURL))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.cfg.QueueURL),
			MaxNumberOfMessages: w.cfg.MaxMessages,
			WaitTimeSeconds:     w.cfg.WaitSeconds,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("Receive failed", zap.Error(err))
			continue
		}

		for _, msg := range out.Messages {
			body := aws.ToString(msg.Body)
			if err := w.handler(body); err != nil {
				w.logger.Error("Handler failed, leaving message on queue",
					zap.String("message_id", aws.ToString(msg.MessageId)),
					zap.Error(err))
				continue
			}

			_, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(w.cfg.QueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				w.logger.Error("Failed to delete message",
					zap.String("message_id", aws.ToString(msg.MessageId)),
					zap.Error(err))
			}
		}
	}
}
