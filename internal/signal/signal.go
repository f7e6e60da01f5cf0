// Package signal coordinates the help overlay and quit between the display
// and input sides through server pub/sub channels. The two sides share
// nothing but a session token, so they may live in different processes.
package signal

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"go-mpd-display/internal/mpdclient"
)

// Signal is the display-side coordination state.
type Signal int

const (
	Normal Signal = iota
	Help
	Quit
)

func (s Signal) String() string {
	switch s {
	case Help:
		return "help"
	case Quit:
		return "quit"
	default:
		return "normal"
	}
}

// NewToken returns a fresh session token usable in channel names.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Channels holds the channel names for one session.
type Channels struct {
	Help    string
	Quit    string
	Scratch string
}

func ChannelsFor(token string) Channels {
	return Channels{
		Help:    "help_" + token,
		Quit:    "quit_" + token,
		Scratch: "scratch_" + token,
	}
}

// Next evaluates the display-side transition given the channels currently
// subscribed on the server. Quit is terminal.
func Next(prev Signal, ch Channels, subscribed []string) Signal {
	switch {
	case prev == Quit:
		return Quit
	case slices.Contains(subscribed, ch.Help):
		return Help
	case prev == Help:
		return Normal
	case slices.Contains(subscribed, ch.Quit):
		return Quit
	default:
		return prev
	}
}

// Coordinator is the display side: it observes channel membership on every
// subscription change.
type Coordinator struct {
	ch     Channels
	signal Signal
}

func NewCoordinator(token string) *Coordinator {
	return &Coordinator{ch: ChannelsFor(token)}
}

func (c *Coordinator) Signal() Signal { return c.signal }

// Refresh lists the server's channels and applies the transition. Leaving
// help is evaluated again against the same listing, so a quit that arrived
// with the help close is not lost. A failed listing leaves the state
// unchanged.
func (c *Coordinator) Refresh(client mpdclient.Client) (Signal, error) {
	if c.signal == Quit {
		return Quit, nil
	}
	subscribed, err := client.Channels()
	if err != nil {
		return c.signal, err
	}
	next := Next(c.signal, c.ch, subscribed)
	if c.signal == Help && next == Normal {
		next = Next(Normal, c.ch, subscribed)
	}
	c.signal = next
	return c.signal, nil
}

// Signaler is the input side. Every channel operation ignores errors: failing
// to signal is the same as the key never having been pressed.
type Signaler struct {
	ch   Channels
	help bool
	quit bool
}

func NewSignaler(token string) *Signaler {
	return &Signaler{ch: ChannelsFor(token)}
}

// HelpActive reports whether this side has the help channel subscribed.
func (s *Signaler) HelpActive() bool { return s.help }

// Quitting reports whether quit has been requested locally.
func (s *Signaler) Quitting() bool { return s.quit }

// ToggleHelp opens or closes the help overlay. Closing also bounces the
// scratch channel so the display's pending wait returns promptly.
func (s *Signaler) ToggleHelp(client mpdclient.Client) {
	if !s.help {
		_ = client.Subscribe(s.ch.Help)
		s.help = true
		return
	}
	_ = client.Unsubscribe(s.ch.Help)
	_ = client.Subscribe(s.ch.Scratch)
	_ = client.Unsubscribe(s.ch.Scratch)
	s.help = false
}

// RequestQuit closes help if it is open and announces quit.
func (s *Signaler) RequestQuit(client mpdclient.Client) {
	if s.help {
		_ = client.Unsubscribe(s.ch.Help)
		s.help = false
	}
	_ = client.Subscribe(s.ch.Quit)
	s.quit = true
}

// ValidToken reports whether token can be embedded in a channel name. MPD
// accepts letters, digits and a few punctuation characters there.
func ValidToken(token string) error {
	if token == "" {
		return errors.New("empty session token")
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-.:", r):
		default:
			return fmt.Errorf("session token %q: invalid character %q", token, r)
		}
	}
	return nil
}
