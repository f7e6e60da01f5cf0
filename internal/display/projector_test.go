package display

import (
	"sync"
	"testing"
	"time"
)

func TestProjectorAdvancesElapsed(t *testing.T) {
	snap := newSnapshot(Options{})
	snap.elapsed, snap.duration, snap.hasTime = 10*time.Second, time.Minute, true

	var (
		mu    sync.Mutex
		seen  []time.Duration
		ticks = make(chan struct{}, 16)
	)
	p := Projector{
		Interval: time.Millisecond,
		Step:     time.Second,
		Render: func(s Snapshot) {
			d, _ := s.Elapsed()
			mu.Lock()
			seen = append(seen, d)
			mu.Unlock()
			ticks <- struct{}{}
		},
	}

	cancel := make(chan struct{})
	go p.Run(cancel, snap)
	for range 3 {
		<-ticks
	}
	close(cancel)

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []time.Duration{11 * time.Second, 12 * time.Second, 13 * time.Second} {
		if seen[i] != want {
			t.Fatalf("tick %d rendered %v, want %v", i, seen[i], want)
		}
	}
	if d, _ := snap.Elapsed(); d != 10*time.Second {
		t.Fatal("projector mutated the caller's snapshot")
	}
}

func TestProjectorStopsAfterCancel(t *testing.T) {
	done := make(chan struct{})
	renders := 0
	p := Projector{
		Interval: 5 * time.Millisecond,
		Step:     time.Second,
		Render:   func(Snapshot) { renders++ },
	}

	cancel := make(chan struct{})
	close(cancel)
	go func() {
		p.Run(cancel, newSnapshot(Options{}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("projector did not stop")
	}
	if renders != 0 {
		t.Fatalf("expected no render after cancel, got %d", renders)
	}
}
