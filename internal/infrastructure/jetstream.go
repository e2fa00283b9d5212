package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	defaultNatsMaxRetries      = 10
	defaultNatsBackoffFactor   = 2.0
	defaultNatsMinJitter       = 100 * time.Millisecond
	defaultNatsMaxJitter       = 2 * time.Second
	defaultNatsConnectTimeout  = 5 * time.Second
	defaultNatsDrainTimeout    = 10 * time.Second
	defaultNatsPingInterval    = 30 * time.Second
	defaultNatsPingOutstanding = 3
	defaultJetStreamMaxWait    = 5 * time.Second
)

// NewJetstream opens the single NATS connection shared by every publisher and
// subscriber of the process.
func NewJetstream(cfg config.NatsJetstreamConfig) (*nats.Conn, nats.JetStreamContext, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil, errors.New("nats jetstream url is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultNatsMaxRetries
	}

	policy := newBackoffPolicy(
		cfg.ReconnectFactor, defaultNatsBackoffFactor,
		cfg.MinJitter, defaultNatsMinJitter,
		cfg.MaxJitter, defaultNatsMaxJitter,
	)

	nc, err := nats.Connect(cfg.URL,
		nats.Name(config.ServiceName),
		nats.Timeout(defaultNatsConnectTimeout),
		nats.DrainTimeout(defaultNatsDrainTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxRetries),
		nats.PingInterval(defaultNatsPingInterval),
		nats.MaxPingsOutstanding(defaultNatsPingOutstanding),
		nats.CustomReconnectDelay(policy.delay),
		nats.DisconnectErrHandler(func(conn *nats.Conn, disErr error) {
			if disErr != nil {
				logrus.Warnf("nats disconnected: %v", disErr)
				return
			}
			logrus.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logrus.Infof("nats reconnected: %s", conn.ConnectedUrl())
		}),
		nats.ErrorHandler(func(conn *nats.Conn, sub *nats.Subscription, asyncErr error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logrus.WithField("subject", subject).WithError(asyncErr).Error("nats async error")
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			logrus.Warnf("nats connection closed: %v", conn.LastError())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(256),
		nats.MaxWait(defaultJetStreamMaxWait),
	)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"url":         cfg.URL,
		"max_retries": maxRetries,
	}).Info("nats jetstream connection established")

	return nc, js, nil
}

// EnsureStream creates the stream when it does not exist yet, otherwise
// updates it in place to the given configuration.
func EnsureStream(ctx context.Context, jsm nats.JetStreamManager, streamConfig *nats.StreamConfig) error {
	stream, err := jsm.StreamInfo(streamConfig.Name, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream %s: %w", streamConfig.Name, err)
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", streamConfig.Name)
		_, err = jsm.AddStream(streamConfig, nats.Context(ctx))
		if err != nil {
			return fmt.Errorf("create stream %s: %w", streamConfig.Name, err)
		}
		return nil
	}

	logrus.Infof("updating stream: %s", streamConfig.Name)
	_, err = jsm.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("update stream %s: %w", streamConfig.Name, err)
	}

	logrus.Infof("stream %s is ready", streamConfig.Name)

	return nil
}

func CloseJetstream(nc *nats.Conn) error {
	if nc == nil {
		return nil
	}

	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}

	return nil
}
