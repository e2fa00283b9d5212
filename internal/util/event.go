package util

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/nats-io/nats.go"
)

// ProcessWithTimeout runs callback on its own goroutine and gives up waiting
// once timeout elapses. The callback keeps running after a timeout; its
// context is cancelled so it can stop early.
func ProcessWithTimeout(ctx context.Context, timeout time.Duration, data []byte, callback func(ctx context.Context, data []byte) error) error {
	if timeout <= 0 {
		return callback(ctx, data)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callback(ctx, data)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("processing timeout for message: %s", string(data))
	case err := <-done:
		return err
	}
}

type eventPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// PublishEvent marshals data and publishes it synchronously, returning once
// the stream has acknowledged the message.
func PublishEvent(js eventPublisher, subject string, data any, opts ...nats.PubOpt) (*nats.PubAck, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return js.Publish(subject, payload, opts...)
}
