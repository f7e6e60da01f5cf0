// Package input turns keystrokes into server commands on a connection of
// its own.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"go-mpd-display/internal/mpdclient"
	"go-mpd-display/internal/signal"
)

const (
	ctrlC = 3

	seekStep      = 10 * time.Second
	volumeStep    = 5
	crossfadeStep = time.Second

	minRating = -1 // deletes the sticker
	maxRating = 10

	// DefaultQuitGrace is how long the connection stays open after quit so a
	// display in another process can still list the quit channel. The server
	// drops a client's subscriptions when it disconnects.
	DefaultQuitGrace = 2 * time.Second
)

// KeyReader yields one keystroke per call.
type KeyReader interface {
	ReadKey() (rune, error)
}

// Handler maps keys onto playback commands and the help/quit handshake.
type Handler struct {
	conn      *mpdclient.Locked
	signaler  *signal.Signaler
	keepalive time.Duration
	quitGrace time.Duration
	log       *slog.Logger
}

func New(conn *mpdclient.Locked, token string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		conn:      conn,
		signaler:  signal.NewSignaler(token),
		keepalive: mpdclient.KeepaliveInterval,
		quitGrace: DefaultQuitGrace,
		log:       logger,
	}
}

// SetKeepalive overrides the keepalive interval.
func (h *Handler) SetKeepalive(d time.Duration) {
	if d > 0 {
		h.keepalive = d
	}
}

// SetQuitGrace overrides how long Run lingers after quit. Zero returns at once.
func (h *Handler) SetQuitGrace(d time.Duration) {
	if d >= 0 {
		h.quitGrace = d
	}
}

// HelpActive reports whether the help overlay was opened from this side.
func (h *Handler) HelpActive() bool { return h.signaler.HelpActive() }

// Run reads keys until quit is pressed or ctx ends, keeping the connection
// alive meanwhile. End of input counts as quit. After quit, Run holds the
// connection for the grace period or until ctx ends.
func (h *Handler) Run(ctx context.Context, r KeyReader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mpdclient.Keepalive(ctx, h.conn, h.keepalive, h.log)
	})
	g.Go(func() error {
		defer cancel()
		return h.readLoop(ctx, r)
	})
	return g.Wait()
}

type keyResult struct {
	key rune
	err error
}

func (h *Handler) readLoop(ctx context.Context, r KeyReader) error {
	// ReadKey cannot be interrupted; the reader goroutine is abandoned when
	// ctx ends and exits with the process.
	keys := make(chan keyResult)
	go func() {
		for {
			key, err := r.ReadKey()
			select {
			case keys <- keyResult{key, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-keys:
			if errors.Is(res.err, io.EOF) {
				h.log.Info("input closed, quitting")
				h.HandleKey('q')
				h.linger(ctx)
				return nil
			}
			if res.err != nil {
				return fmt.Errorf("failed to read key: %w", res.err)
			}
			if h.HandleKey(res.key) {
				h.linger(ctx)
				return nil
			}
		}
	}
}

// linger keeps the quit subscription alive until the display has had a
// chance to see it.
func (h *Handler) linger(ctx context.Context) {
	if h.quitGrace <= 0 {
		return
	}
	h.log.Debug("holding connection after quit", "grace", h.quitGrace)
	t := time.NewTimer(h.quitGrace)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// HandleKey acts on one keystroke and reports whether the input side should
// stop. While help is open only the help and quit keys are honoured.
func (h *Handler) HandleKey(key rune) (quit bool) {
	_ = h.conn.Do(func(c mpdclient.Client) error {
		quit = h.handle(c, key)
		return nil
	})
	return quit
}

func (h *Handler) handle(c mpdclient.Client, key rune) bool {
	switch key {
	case 'q', ctrlC:
		h.signaler.RequestQuit(c)
		return true
	case 'h', '?':
		h.signaler.ToggleHelp(c)
		return false
	}
	if h.signaler.HelpActive() {
		h.log.Debug("key ignored while help is open", "key", string(key))
		return false
	}

	var err error
	switch key {
	case ' ':
		if status(c).State == mpdclient.Playing {
			err = c.Pause(true)
		} else {
			err = c.Play()
		}
	case 'p', 'k':
		err = c.Previous()
	case 'n', 'j':
		err = c.Next()

	case '+', '=', '0', ')':
		err = stepVolume(c, volumeStep)
	case '-', '_', '9', '(':
		err = stepVolume(c, -volumeStep)

	case 'H':
		err = c.SeekTo(max(status(c).Elapsed-seekStep, 0))
	case 'L':
		err = c.SeekTo(status(c).Elapsed + seekStep)

	case '[', '{':
		err = adjustRating(c, -1)
	case ']', '}':
		err = adjustRating(c, 1)

	case 'E':
		err = c.SetRepeat(!status(c).Repeat)
	case 'R':
		err = c.SetRandom(!status(c).Random)
	case 'S':
		err = c.SetSingle(!status(c).Single)
	case 'C':
		err = c.SetConsume(!status(c).Consume)
	case 'F':
		err = c.Shuffle()

	case 'x':
		err = c.SetCrossfade(status(c).Crossfade + crossfadeStep)
	case 'X':
		if xfade := status(c).Crossfade; xfade >= crossfadeStep {
			err = c.SetCrossfade(xfade - crossfadeStep)
		}

	case 'M':
		err = c.Stop()
	default:
		h.log.Debug("unbound key", "key", strconv.QuoteRune(key))
	}
	if err != nil {
		h.log.Debug("command failed", "key", string(key), "error", err)
	}
	return false
}

// status treats a failed query as the zero status.
func status(c mpdclient.Client) mpdclient.Status {
	st, err := c.Status()
	if err != nil {
		return mpdclient.Status{SongPos: -1}
	}
	return st
}

// stepVolume leaves servers without a mixer (volume -1) alone.
func stepVolume(c mpdclient.Client, delta int) error {
	vol := status(c).Volume
	if vol < 0 {
		return nil
	}
	return c.SetVolume(min(max(vol+delta, 0), 100))
}

// adjustRating moves the current song's rating sticker by delta within
// [-1, 10]. An unreadable rating counts as -1, and -1 removes the sticker.
func adjustRating(c mpdclient.Client, delta int) error {
	song, err := c.CurrentSong()
	if err != nil {
		return err
	}
	if song.File == "" {
		return nil
	}

	rating := minRating
	if v, err := c.Sticker(song.File, "rating"); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			rating = n
		}
	}
	rating = min(max(rating+delta, minRating), maxRating)

	if rating == minRating {
		err := c.DeleteSticker(song.File, "rating")
		if errors.Is(err, mpdclient.ErrNoSticker) {
			return nil
		}
		return err
	}
	return c.SetSticker(song.File, "rating", strconv.Itoa(rating))
}
