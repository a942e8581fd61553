package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReceiver serves queued messages once, then cancels the context so
// the loop terminates.
type fakeReceiver struct {
	messages []types.Message
	served   bool
	deleted  []string
	cancel   context.CancelFunc
}

func (f *fakeReceiver) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.served {
		f.cancel()
		return &sqs.ReceiveMessageOutput{}, nil
	}
	f.served = true
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeReceiver) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func makeMessage(id, body string) types.Message {
	return types.Message{
		MessageId:     aws.String(id),
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh-" + id),
	}
}

func TestRunHandlesAndDeletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &fakeReceiver{
		messages: []types.Message{makeMessage("1", `{"a":1}`), makeMessage("2", `{"b":2}`)},
		cancel:   cancel,
	}

	var handled []string
	w := New(rec, Config{QueueURL: "https://queue.example/dlq"}, func(body string) error {
		handled = append(handled, body)
		return nil
	}, nil)

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, handled)
	assert.Equal(t, []string{"rh-1", "rh-2"}, rec.deleted)
}

func TestRunHandlerErrorLeavesMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &fakeReceiver{
		messages: []types.Message{makeMessage("1", "keep"), makeMessage("2", "delete")},
		cancel:   cancel,
	}

	w := New(rec, Config{QueueURL: "https://queue.example/dlq"}, func(body string) error {
		if body == "keep" {
			return errors.New("replay later")
		}
		return nil
	}, nil)

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"rh-2"}, rec.deleted)
}
