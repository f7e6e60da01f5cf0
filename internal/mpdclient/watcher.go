package mpdclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fhs/gompd/v2/mpd"
)

// Subsystems the display reacts to.
var Subsystems = []string{"player", "mixer", "options", "playlist", "subscription", "sticker"}

// ErrWatcherClosed is returned by Wait once the underlying watcher is gone.
var ErrWatcherClosed = errors.New("watcher event channel closed")

// Waiter blocks until the server reports a change.
type Waiter interface {
	Wait(ctx context.Context) ([]string, error)
	Close() error
}

// Watcher is a Waiter on a dedicated idle connection.
type Watcher struct {
	w        *mpd.Watcher
	failures int // consecutive, across calls
	log      *slog.Logger
}

// NewWatcher opens an idle connection watching the given subsystems.
func NewWatcher(ep Endpoint, logger *slog.Logger, names ...string) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w, err := mpd.NewWatcher(ep.Network, ep.Addr, ep.Password, names...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{w: w, log: logger}, nil
}

// Wait has no client-side timeout. After the first event it drains whatever
// else is already queued so that one call returns the whole change set.
// The server's "playlist" subsystem is reported as "queue".
func (w *Watcher) Wait(ctx context.Context) ([]string, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-w.w.Error:
			if !ok {
				return nil, ErrWatcherClosed
			}
			w.failures++
			w.log.Warn("watcher error", "attempt", w.failures, "error", err)
			if w.failures >= maxRetries {
				return nil, fmt.Errorf("watcher: %w", err)
			}
		case name, ok := <-w.w.Event:
			if !ok {
				return nil, ErrWatcherClosed
			}
			w.failures = 0
			changed := []string{normalizeSubsystem(name)}
			for {
				select {
				case more, ok := <-w.w.Event:
					if !ok {
						return changed, nil
					}
					changed = appendUnique(changed, normalizeSubsystem(more))
					continue
				default:
				}
				return changed, nil
			}
		}
	}
}

func (w *Watcher) Close() error {
	return w.w.Close()
}

func normalizeSubsystem(name string) string {
	if name == "playlist" {
		return "queue"
	}
	return name
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
