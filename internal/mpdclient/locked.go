package mpdclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// KeepaliveInterval keeps idle connections under MPD's default
// connection_timeout of 60 seconds.
const KeepaliveInterval = 60 * time.Second

// Locked serializes access to a Client so that a background keepalive and
// a foreground loop never interleave requests on the same connection.
type Locked struct {
	mu     sync.Mutex
	client Client
}

func NewLocked(c Client) *Locked {
	return &Locked{client: c}
}

// Do runs fn while holding the connection.
func (l *Locked) Do(fn func(Client) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.client)
}

func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.client.Close()
}

// Keepalive issues a status query every interval until ctx is done. It gives
// up after maxRetries consecutive failures.
func Keepalive(ctx context.Context, l *Locked, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := l.Do(func(c Client) error {
				_, err := c.Status()
				return err
			})
			if err == nil {
				failures = 0
				continue
			}
			failures++
			logger.Warn("keepalive failed", "attempt", failures, "error", err)
			if failures >= maxRetries {
				return fmt.Errorf("failed keepalive: %w", err)
			}
		}
	}
}
