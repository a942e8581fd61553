// Package deadletter publishes rejected documents to an SQS queue so they
// can be inspected and replayed out of band.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/datamolt/searchload/pkg/ingest"
)

// MaxMessageBytes is the serialized-payload ceiling per queue message,
// kept under the SQS 256KB limit with headroom for attributes.
const MaxMessageBytes = 230 * 1024

// Payload is the wire contract for one dead-letter message.
type Payload struct {
	ErrorMessage  string                `json:"error_message"`
	FailedRecords []ingest.FailedRecord `json:"failed_records"`
	FileKey       string                `json:"file_key"`
	Source        string                `json:"source"`
	Timestamp     string                `json:"timestamp"`
	MessagePart   int                   `json:"message_part,omitempty"`
	TotalParts    int                   `json:"total_parts,omitempty"`
}

// QueueClient is the SQS surface the reporter needs.
type QueueClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Config holds reporter settings.
type Config struct {
	QueueURL string
	Enabled  bool
}

// Reporter publishes failure payloads. Publishing is best effort: errors
// are logged and never propagate to the ingestion run.
type Reporter struct {
	client   QueueClient
	queueURL string
	enabled  bool
	maxBytes int
	logger   *zap.Logger
	now      func() time.Time
}

// NewReporter builds a dead-letter reporter. A nil client or disabled
// config yields a reporter that drops everything silently.
func NewReporter(client QueueClient, cfg Config, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		client:   client,
		queueURL: cfg.QueueURL,
		enabled:  cfg.Enabled && client != nil && cfg.QueueURL != "",
		maxBytes: MaxMessageBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Report publishes the failed records for one file, splitting across
// multiple messages when the serialized payload would exceed the ceiling.
func (r *Reporter) Report(ctx context.Context, fileKey string, failed []ingest.FailedRecord) {
	if !r.enabled || len(failed) == 0 {
		return
	}

	payloads := r.split(fileKey, failed)
	for _, p := range payloads {
		body, err := json.Marshal(p)
		if err != nil {
			r.logger.Error("Failed to encode dead-letter payload",
				zap.String("file", fileKey),
				zap.Error(err))
			return
		}

		_, err = r.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(r.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			r.logger.Error("Failed to publish dead-letter message",
				zap.String("file", fileKey),
				zap.Int("message_part", p.MessagePart),
				zap.Int("total_parts", p.TotalParts),
				zap.Error(err))
			continue
		}
		r.logger.Info("Published dead-letter message",
			zap.String("file", fileKey),
			zap.Int("records", len(p.FailedRecords)),
			zap.Int("message_part", p.MessagePart),
			zap.Int("total_parts", p.TotalParts))
	}
}

// split partitions the failed records into payloads that each serialize
// under the size ceiling. Record sizes are estimated from the first record,
// so the partition is approximate but deterministic.
func (r *Reporter) split(fileKey string, failed []ingest.FailedRecord) []Payload {
	build := func(records []ingest.FailedRecord) Payload {
		return Payload{
			ErrorMessage:  fmt.Sprintf("%d document(s) rejected during bulk ingestion", len(failed)),
			FailedRecords: records,
			FileKey:       fileKey,
			Source:        "searchload",
			Timestamp:     r.now().UTC().Format(time.RFC3339),
		}
	}

	whole := build(failed)
	if size(whole) <= r.maxBytes {
		return []Payload{whole}
	}

	base := build(nil)
	budget := r.maxBytes - size(base)
	avg := size(Payload{FailedRecords: failed[:1]}) - size(Payload{})
	if avg <= 0 {
		avg = 1
	}

	perMessage := budget / avg
	if perMessage < 1 {
		perMessage = 1
	}

	totalParts := (len(failed) + perMessage - 1) / perMessage
	payloads := make([]Payload, 0, totalParts)
	for part := 0; part < totalParts; part++ {
		lo := part * perMessage
		hi := lo + perMessage
		if hi > len(failed) {
			hi = len(failed)
		}
		p := build(failed[lo:hi])
		p.MessagePart = part + 1
		p.TotalParts = totalParts
		payloads = append(payloads, p)
	}
	return payloads
}

func size(p Payload) int {
	body, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(body)
}
