package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const maxDialDelay = 60 * time.Second

type ConnectionOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
	Logger        *slog.Logger
}

// DialWithRetry tries to connect to RabbitMQ with exponential backoff.
// It respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, cfg ConnectionOptions) (*amqp091.Connection, error) {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var lastErr error
	sleep := cfg.Delay
	for i := 1; i <= cfg.RetryAttempts; i++ {
		conn, err := amqp091.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				cfg.Logger.Info("rabbitmq - dial - connected", slog.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == cfg.RetryAttempts {
			break
		}

		cfg.Logger.Warn("rabbitmq - dial - failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
		sleep *= 2
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w",
		cfg.RetryAttempts, lastErr)
}
