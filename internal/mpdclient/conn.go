package mpdclient

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

const maxRetries = 5

// Endpoint describes how to reach the server.
type Endpoint struct {
	Network  string // "tcp" or "unix"
	Addr     string
	Password string
	Timeout  time.Duration
}

func (e Endpoint) String() string {
	return e.Network + ":" + e.Addr
}

// Conn is a Client backed by a gompd connection. It is not safe for
// concurrent use; wrap it in a Locked when more than one goroutine talks to it.
type Conn struct {
	ep     Endpoint
	client *mpd.Client
	log    *slog.Logger
}

// Dial connects to the server, failing fast when the address is unreachable.
func Dial(ep Endpoint, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := dial(ep)
	if err != nil {
		return nil, err
	}
	return &Conn{ep: ep, client: client, log: logger}, nil
}

func dial(ep Endpoint) (*mpd.Client, error) {
	if ep.Timeout > 0 {
		probe, err := net.DialTimeout(ep.Network, ep.Addr, ep.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MPD at %s: %w", ep, err)
		}
		probe.Close()
	}
	client, err := mpd.DialAuthenticated(ep.Network, ep.Addr, ep.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MPD at %s: %w", ep, err)
	}
	return client, nil
}

func (c *Conn) reconnect() error {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	for i := 0; i < maxRetries; i++ {
		client, err := dial(c.ep)
		if err != nil {
			c.log.Debug("reconnect attempt failed", "attempt", i+1, "max", maxRetries, "error", err)
			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second)
			}
			continue
		}
		if err := client.Ping(); err != nil {
			client.Close()
			c.log.Debug("reconnect ping failed", "error", err)
			continue
		}
		c.client = client
		c.log.Info("reconnected to MPD", "attempt", i+1)
		return nil
	}
	return fmt.Errorf("failed to reconnect after %d attempts", maxRetries)
}

// query runs a read-only request, redialing and retrying once if the
// connection was dropped underneath it.
func (c *Conn) query(fn func(*mpd.Client) error) error {
	return c.run(fn, true)
}

// do runs a command. A dropped connection is redialed for the next call but
// the command is not resent, since it may already have taken effect.
func (c *Conn) do(fn func(*mpd.Client) error) error {
	return c.run(fn, false)
}

func (c *Conn) run(fn func(*mpd.Client) error, retry bool) error {
	if c.client == nil {
		if err := c.reconnect(); err != nil {
			return err
		}
	}
	err := fn(c.client)
	if err == nil || !isConnError(err) {
		return err
	}
	c.log.Debug("connection lost, reconnecting", "error", err)
	if rerr := c.reconnect(); rerr != nil {
		return fmt.Errorf("%w (reconnect: %v)", err, rerr)
	}
	if !retry {
		return err
	}
	return fn(c.client)
}

func isConnError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "broken pipe")
}

func (c *Conn) Status() (Status, error) {
	var attrs mpd.Attrs
	err := c.query(func(m *mpd.Client) (err error) {
		attrs, err = m.Status()
		return err
	})
	if err != nil {
		return Status{SongPos: -1}, fmt.Errorf("failed to get status: %w", err)
	}
	return parseStatus(attrs), nil
}

func (c *Conn) CurrentSong() (Song, error) {
	var attrs mpd.Attrs
	err := c.query(func(m *mpd.Client) (err error) {
		attrs, err = m.CurrentSong()
		return err
	})
	if err != nil {
		return Song{Pos: -1}, fmt.Errorf("failed to get current song: %w", err)
	}
	return parseSong(attrs), nil
}

func (c *Conn) Queue() ([]Song, error) {
	var list []mpd.Attrs
	err := c.query(func(m *mpd.Client) (err error) {
		list, err = m.PlaylistInfo(-1, -1)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return parseSongs(list), nil
}

func (c *Conn) Search(tag, value string, window int) ([]Song, error) {
	filter := fmt.Sprintf("(%s == \"%s\")", tag, escapeFilter(value))
	var list []mpd.Attrs
	err := c.query(func(m *mpd.Client) (err error) {
		list, err = m.Search(filter, "window", "0:"+strconv.Itoa(window))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", filter, err)
	}
	return parseSongs(list), nil
}

// escapeFilter quotes a value for use inside an MPD filter expression.
func escapeFilter(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}

func (c *Conn) Sticker(uri, name string) (string, error) {
	var value string
	err := c.query(func(m *mpd.Client) error {
		s, err := m.StickerGet(uri, name)
		if err != nil {
			return err
		}
		value = s.Value
		return nil
	})
	if err != nil {
		if isNoSticker(err) {
			return "", ErrNoSticker
		}
		return "", fmt.Errorf("sticker %s on %q: %w", name, uri, err)
	}
	return value, nil
}

func isNoSticker(err error) bool {
	return strings.Contains(err.Error(), "no such sticker")
}

func (c *Conn) SetSticker(uri, name, value string) error {
	return c.do(func(m *mpd.Client) error { return m.StickerSet(uri, name, value) })
}

func (c *Conn) DeleteSticker(uri, name string) error {
	return c.do(func(m *mpd.Client) error { return m.StickerDelete(uri, name) })
}

func (c *Conn) Subscribe(channel string) error {
	return c.do(func(m *mpd.Client) error { return m.Command("subscribe %s", channel).OK() })
}

func (c *Conn) Unsubscribe(channel string) error {
	return c.do(func(m *mpd.Client) error { return m.Command("unsubscribe %s", channel).OK() })
}

func (c *Conn) Channels() ([]string, error) {
	var channels []string
	err := c.query(func(m *mpd.Client) (err error) {
		channels, err = m.Command("channels").Strings("channel")
		return err
	})
	return channels, err
}

func (c *Conn) Play() error {
	return c.do(func(m *mpd.Client) error { return m.Play(-1) })
}

func (c *Conn) Pause(pause bool) error {
	return c.do(func(m *mpd.Client) error { return m.Pause(pause) })
}

func (c *Conn) Previous() error {
	return c.do(func(m *mpd.Client) error { return m.Previous() })
}

func (c *Conn) Next() error {
	return c.do(func(m *mpd.Client) error { return m.Next() })
}

func (c *Conn) SetVolume(volume int) error {
	return c.do(func(m *mpd.Client) error { return m.SetVolume(volume) })
}

func (c *Conn) SeekTo(d time.Duration) error {
	return c.do(func(m *mpd.Client) error { return m.SeekCur(d, false) })
}

func (c *Conn) SetRepeat(on bool) error {
	return c.do(func(m *mpd.Client) error { return m.Repeat(on) })
}

func (c *Conn) SetRandom(on bool) error {
	return c.do(func(m *mpd.Client) error { return m.Random(on) })
}

func (c *Conn) SetSingle(on bool) error {
	return c.do(func(m *mpd.Client) error { return m.Single(on) })
}

func (c *Conn) SetConsume(on bool) error {
	return c.do(func(m *mpd.Client) error { return m.Consume(on) })
}

func (c *Conn) Shuffle() error {
	return c.do(func(m *mpd.Client) error { return m.Shuffle(-1, -1) })
}

func (c *Conn) SetCrossfade(d time.Duration) error {
	secs := int(d / time.Second)
	return c.do(func(m *mpd.Client) error { return m.Command("crossfade %d", secs).OK() })
}

func (c *Conn) Stop() error {
	return c.do(func(m *mpd.Client) error { return m.Stop() })
}

// Picture returns embedded artwork, falling back to the cover file next to
// the track.
func (c *Conn) Picture(uri string) ([]byte, error) {
	var art []byte
	err := c.query(func(m *mpd.Client) error {
		data, err := m.ReadPicture(uri)
		if err == nil && len(data) > 0 {
			art = data
			return nil
		}
		if err != nil && isConnError(err) {
			return err
		}
		data, err = m.AlbumArt(uri)
		if err != nil {
			return err
		}
		art = data
		return nil
	})
	return art, err
}

func (c *Conn) Ping() error {
	return c.query(func(m *mpd.Client) error { return m.Ping() })
}

func (c *Conn) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
