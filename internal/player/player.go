// Package player runs the display and input sides of one session.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"go-mpd-display/internal/display"
	"go-mpd-display/internal/input"
	"go-mpd-display/internal/mpdclient"
	"go-mpd-display/internal/notify"
	"go-mpd-display/internal/signal"
)

// Mode selects which sides run in this process.
type Mode string

const (
	ModeBoth    Mode = "both"
	ModeDisplay Mode = "display"
	ModeInput   Mode = "input"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBoth, ModeDisplay, ModeInput:
		return m, nil
	case "":
		return ModeBoth, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want both, display or input)", s)
	}
}

func (m Mode) display() bool { return m == ModeBoth || m == ModeDisplay }
func (m Mode) input() bool   { return m == ModeBoth || m == ModeInput }

const (
	hideCursor     = "\x1b[?25l"
	showCursor     = "\x1b[?25h"
	altScreen      = "\x1b[?1049h"
	leaveAltScreen = "\x1b[?1049l"
)

// ErrDisconnected marks a session that ended because the server went away.
var ErrDisconnected = errors.New("disconnected from server")

// Dialer opens the connections a session needs. Every call yields a
// connection of its own.
type Dialer interface {
	Dial() (mpdclient.Client, error)
	Watch() (mpdclient.Waiter, error)
}

// EndpointDialer dials a real server.
type EndpointDialer struct {
	Endpoint mpdclient.Endpoint
	Logger   *slog.Logger
}

func (d EndpointDialer) Dial() (mpdclient.Client, error) {
	conn, err := mpdclient.Dial(d.Endpoint, d.Logger)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d EndpointDialer) Watch() (mpdclient.Waiter, error) {
	w, err := mpdclient.NewWatcher(d.Endpoint, d.Logger, mpdclient.Subsystems...)
	if err != nil {
		return nil, err
	}
	return w, nil
}

type Options struct {
	Mode    Mode
	Token   string // generated when empty
	Dialer  Dialer
	Display display.Options
	GNTP    *notify.Config // nil disables notifications

	Out  io.Writer        // defaults to stdout
	Keys input.KeyReader  // defaults to stdin in raw mode
	Size display.SizeFunc // defaults to the size of stdout
	Tick time.Duration    // projector interval

	Keepalive time.Duration // defaults to mpdclient.KeepaliveInterval
	QuitGrace time.Duration // input lingers this long after quit; defaults to input.DefaultQuitGrace
	Logger    *slog.Logger
}

// Run dials every connection up front, then runs the selected sides until
// quit. Dial failures are returned as is; a connection lost later is
// reported as ErrDisconnected.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Mode == "" {
		opts.Mode = ModeBoth
	}
	if opts.Token == "" {
		opts.Token = signal.NewToken()
	}
	if err := signal.ValidToken(opts.Token); err != nil {
		return err
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = mpdclient.KeepaliveInterval
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger = logger.With("session", opts.Token)

	var (
		disp      *display.Display
		dispConn  *mpdclient.Locked
		notifier  *notify.Notifier
		handler   *input.Handler
		inputConn *mpdclient.Locked
	)

	if opts.Mode.display() {
		client, err := opts.Dialer.Dial()
		if err != nil {
			return err
		}
		dispConn = mpdclient.NewLocked(client)
		defer dispConn.Close()

		waiter, err := opts.Dialer.Watch()
		if err != nil {
			return err
		}
		defer waiter.Close()

		if opts.GNTP != nil {
			notifier, err = notify.New(*opts.GNTP, dispConn, logger)
			if err != nil {
				logger.Warn("GNTP/Growl not available, notifications disabled", "error", err)
			}
		}

		cfg := display.Config{
			Options: opts.Display,
			Token:   opts.Token,
			Out:     out,
			Size:    opts.Size,
			Tick:    opts.Tick,
			Logger:  logger.With("component", "display"),
		}
		if notifier != nil {
			cfg.Notifier = notifier
		}
		disp = display.New(dispConn, waiter, cfg)
	}

	if opts.Mode.input() {
		client, err := opts.Dialer.Dial()
		if err != nil {
			return err
		}
		inputConn = mpdclient.NewLocked(client)
		defer inputConn.Close()

		handler = input.New(inputConn, opts.Token, logger.With("component", "input"))
		handler.SetKeepalive(opts.Keepalive)
		if opts.QuitGrace > 0 {
			handler.SetQuitGrace(opts.QuitGrace)
		}

		if opts.Keys == nil {
			tty, err := input.OpenTerminal(os.Stdin)
			if err != nil {
				return err
			}
			defer tty.Restore()
			opts.Keys = tty
		}
	}

	if disp != nil {
		io.WriteString(out, hideCursor+altScreen)
		defer io.WriteString(out, leaveAltScreen+showCursor)
	}
	logger.Info("session started", "mode", opts.Mode)

	g, gctx := errgroup.WithContext(ctx)
	inputCtx, stopInput := context.WithCancel(gctx)
	defer stopInput()

	if disp != nil {
		dispCtx, stopDisplay := context.WithCancel(gctx)
		g.Go(func() error {
			return mpdclient.Keepalive(dispCtx, dispConn, opts.Keepalive, logger.With("component", "display"))
		})
		g.Go(func() error {
			defer stopDisplay()
			// The display owns the session: once it is gone nothing is left
			// to read keys for.
			defer stopInput()
			return disp.Run(dispCtx)
		})
	}
	if handler != nil {
		g.Go(func() error {
			return handler.Run(inputCtx, opts.Keys)
		})
	}

	err := g.Wait()
	if notifier != nil {
		notifier.Wait()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	logger.Info("session ended")
	return nil
}
