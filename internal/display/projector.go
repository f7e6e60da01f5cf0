package display

import "time"

// Projector keeps the elapsed clock moving between change notifications. It
// works on its own copy of the snapshot and is never joined: a tick that
// misses cancellation costs at most one extra redraw.
type Projector struct {
	Interval time.Duration // sleep between ticks
	Step     time.Duration // elapsed time added per tick
	Render   func(Snapshot)
}

// Run ticks until cancel is closed. It checks cancel after each sleep and
// returns without drawing once it is closed.
func (p Projector) Run(cancel <-chan struct{}, snap Snapshot) {
	for {
		time.Sleep(p.Interval)
		select {
		case <-cancel:
			return
		default:
		}
		snap.IncrementElapsed(p.Step)
		if p.Render != nil {
			p.Render(snap)
		}
	}
}
