package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/coin-tick-pipeline/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultBackoffFactor  = 2.0
	defaultMinJitter      = 100 * time.Millisecond
	defaultMaxJitter      = 1 * time.Second
	defaultMaxIdleConns   = 10
	defaultMaxOpenConns   = 100
	defaultConnLifetime   = 1 * time.Hour
)

// NewPostgresConnection connects to the table store, retrying with backoff
// until cfg.MaxRetry extra attempts are exhausted.
func NewPostgresConnection(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn is required")
	}

	connectTimeout := cfg.PingInterval
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	maxRetry := max(cfg.MaxRetry, 0)
	policy := newBackoffPolicy(
		cfg.ReconnectFactor, defaultBackoffFactor,
		cfg.MinJitter, defaultMinJitter,
		cfg.MaxJitter, defaultMaxJitter,
	)

	var lastErr error
	for attempt := 0; attempt <= maxRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		db, err := sqlx.ConnectContext(attemptCtx, "postgres", cfg.DSN)
		cancel()
		if err == nil {
			applyPoolLimits(db, cfg)
			logrus.WithField("max_retry", maxRetry).Info("postgres connection established")
			return db, nil
		}

		lastErr = err
		if attempt == maxRetry {
			break
		}

		wait := policy.delay(attempt)
		logrus.WithFields(logrus.Fields{
			"attempt":      attempt + 1,
			"max_retry":    maxRetry,
			"retry_in":     wait.String(),
			"postgres_dsn": maskDSN(cfg.DSN),
		}).Warnf("postgres connection failed: %v", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("connect postgres after %d attempts: %w", maxRetry+1, lastErr)
}

func applyPoolLimits(db *sqlx.DB, cfg config.DatabaseConfig) {
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = defaultMaxIdleConns
	}

	maxOpenConns := cfg.MaxActiveConns
	if maxOpenConns <= 0 {
		maxOpenConns = defaultMaxOpenConns
	}

	maxConnLifetime := cfg.MaxConnLifetime
	if maxConnLifetime <= 0 {
		maxConnLifetime = defaultConnLifetime
	}

	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(maxConnLifetime)
	if cfg.PingInterval > 0 {
		db.SetConnMaxIdleTime(cfg.PingInterval)
	}
}

// StartPostgresHealthCheck pings the store on every interval until ctx is done.
func StartPostgresHealthCheck(ctx context.Context, db *sqlx.DB, interval time.Duration) {
	if db == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, interval)
				err := db.PingContext(pingCtx)
				cancel()
				if err != nil {
					logrus.WithError(err).Error("postgres health check failed")
				}
			}
		}
	}()
}

func maskDSN(dsn string) string {
	idx := strings.Index(dsn, "@")
	if idx == -1 {
		return dsn
	}

	prefix := dsn[:idx]
	credsIdx := strings.LastIndex(prefix, "://")
	if credsIdx == -1 {
		return "***" + dsn[idx:]
	}

	return prefix[:credsIdx+3] + "***" + dsn[idx:]
}
