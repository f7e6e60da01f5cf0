// Package display mirrors the server state in a local Snapshot and redraws
// it whenever the server reports a change.
package display

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"go-mpd-display/internal/mpdclient"
	"go-mpd-display/internal/signal"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
)

const helpText = "\n" +
	"  \x1b[1mh, ?\x1b[0m ......show help text\n" +
	"  \x1b[1mspace\x1b[0m .....pause/play\n" +
	"  \x1b[1mpk, nj\x1b[0m ....prev/next track\n" +
	"  \x1b[1mH, L\x1b[0m ......seek back/ahead\n" +
	"  \x1b[1m+0, -9\x1b[0m ....volume up/down\n" +
	"  \x1b[1mERSC\x1b[0m ......repeat, random, single, consume\n" +
	"  \x1b[1mF\x1b[0m .........shuffle (reorders queue in-place)\n" +
	"  \x1b[1m{, }\x1b[0m ......adjust current track rating\n" +
	"  \x1b[1mM\x1b[0m .........stops playback\n" +
	"  \x1b[1mx, X\x1b[0m ......crossfade up/down\n" +
	"  \x1b[1mq\x1b[0m .........quit\n"

// SizeFunc reports the terminal size.
type SizeFunc func() (width, height int, err error)

// TerminalSize queries the size of stdout.
func TerminalSize() (int, int, error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// Notifier is told when a new song starts playing and when the playback
// state changes.
type Notifier interface {
	SongChanged(snap Snapshot)
	StateChanged(snap Snapshot)
}

// Config assembles a Display.
type Config struct {
	Options  Options
	Token    string
	Out      io.Writer
	Size     SizeFunc
	Tick     time.Duration // projector interval, one second by default
	Notifier Notifier
	Logger   *slog.Logger
}

// Display runs the render loop. Only the loop goroutine touches the cache;
// projectors get clones.
type Display struct {
	conn      *mpdclient.Locked
	waiter    mpdclient.Waiter
	cache     *Cache
	coord     *signal.Coordinator
	screen    *screen
	size      SizeFunc
	projector Projector
	notifier  Notifier
	lastFile  string
	lastState mpdclient.State
	notified  bool
	log       *slog.Logger
}

func New(conn *mpdclient.Locked, waiter mpdclient.Waiter, cfg Config) *Display {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	size := cfg.Size
	if size == nil {
		size = TerminalSize
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}

	d := &Display{
		conn:     conn,
		waiter:   waiter,
		cache:    NewCache(conn, cfg.Options, logger),
		coord:    signal.NewCoordinator(cfg.Token),
		screen:   &screen{w: out},
		size:     size,
		notifier: cfg.Notifier,
		log:      logger,
	}
	d.projector = Projector{Interval: tick, Step: time.Second, Render: d.draw}
	return d
}

// Cache exposes the state cache.
func (d *Display) Cache() *Cache { return d.cache }

// Signal reports the current coordination state.
func (d *Display) Signal() signal.Signal { return d.coord.Signal() }

// Run performs the initial sync and loops until quit is signalled or ctx
// ends. Errors come only from the change watcher.
func (d *Display) Run(ctx context.Context) error {
	d.cache.SyncAll()
	d.notify()
	d.draw(d.cache.snap)

	for {
		switch d.coord.Signal() {
		case signal.Quit:
			d.log.Info("quit signalled")
			return nil
		case signal.Help:
			d.screen.frame(helpText)
		}

		cancel := make(chan struct{})
		if d.coord.Signal() == signal.Normal && d.cache.snap.state == mpdclient.Playing {
			go d.projector.Run(cancel, d.cache.Snapshot())
		}

		changed, err := d.waiter.Wait(ctx)
		close(cancel)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.log.Debug("idle returned", "subsystems", changed)

		d.apply(changed)
		if d.coord.Signal() == signal.Normal {
			d.draw(d.cache.snap)
		}
	}
}

func (d *Display) apply(changed []string) {
	if d.cache.Apply(changed) {
		err := d.conn.Do(func(c mpdclient.Client) error {
			_, err := d.coord.Refresh(c)
			return err
		})
		if err != nil {
			d.log.Debug("channel listing failed", "error", err)
		}
		d.log.Debug("signal evaluated", "signal", d.coord.Signal())
	}
	d.notify()
}

func (d *Display) notify() {
	if d.notifier == nil {
		return
	}
	snap := d.cache.snap
	if d.notified && snap.state != d.lastState {
		d.notifier.StateChanged(snap.Clone())
	}
	d.lastState, d.notified = snap.state, true

	if snap.state != mpdclient.Playing || snap.song.File == "" || snap.song.File == d.lastFile {
		return
	}
	d.lastFile = snap.song.File
	d.notifier.SongChanged(snap.Clone())
}

func (d *Display) draw(snap Snapshot) {
	width, height, err := d.size()
	if err != nil || width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}
	d.screen.frame(snap.Render(width, height))
}

// screen serializes whole frames from the loop and the projector. Frames
// may still arrive out of order; the loop always draws last in a cycle.
type screen struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *screen) frame(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, Frame(text))
}

// Frame wraps a full redraw in clear-and-home sequences. Line feeds carry a
// carriage return so the frame also draws correctly on a raw terminal.
func Frame(text string) string {
	return clearScreen + cursorHome + strings.ReplaceAll(text, "\n", "\r\n") + cursorHome
}
