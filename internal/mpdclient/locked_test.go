package mpdclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-mpd-display/internal/mpdclient"
	"go-mpd-display/internal/mpdclient/mpdtest"
)

func TestLockedSerializesCallers(t *testing.T) {
	fake := mpdtest.New()
	locked := mpdclient.NewLocked(fake)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locked.Do(func(c mpdclient.Client) error {
				mu.Lock()
				inside++
				if inside > 1 {
					overlap = true
				}
				mu.Unlock()

				_, err := c.Status()
				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return err
			})
		}()
	}
	wg.Wait()

	if overlap {
		t.Fatal("expected Do callers to never overlap")
	}
	if got := fake.Calls("Status"); got != 8 {
		t.Fatalf("unexpected status calls: %d", got)
	}
}

func TestKeepaliveQueriesStatusUntilCancelled(t *testing.T) {
	fake := mpdtest.New()
	locked := mpdclient.NewLocked(fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mpdclient.Keepalive(ctx, locked, 5*time.Millisecond, nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for fake.Calls("Status") < 3 {
		if time.Now().After(deadline) {
			t.Fatal("keepalive never queried status")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Keepalive returned error: %v", err)
	}
}

func TestKeepaliveGivesUpAfterRepeatedFailures(t *testing.T) {
	fake := mpdtest.New()
	fake.StatusErr = mpdtest.ErrTransport
	locked := mpdclient.NewLocked(fake)

	err := mpdclient.Keepalive(context.Background(), locked, time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected keepalive error")
	}
	if got := fake.Calls("Status"); got != 5 {
		t.Fatalf("expected 5 attempts, got %d", got)
	}
}
