// Package notify sends Growl (GNTP) notifications for song and playback
// state changes.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cumulus13/go-gntp"

	"go-mpd-display/internal/display"
	"go-mpd-display/internal/mpdclient"
)

const (
	appName = "MPD Display"

	EventSongChange  = "song_change"
	EventPlayerState = "player_state"
)

// Config selects the GNTP endpoint.
type Config struct {
	Host     string
	Port     int
	IconMode string // binary, dataurl, fileurl, httpurl
	Timeout  time.Duration
}

type sendFunc func(event, title, message string, icon *gntp.Resource) error

// Notifier delivers notifications in the background so a slow Growl server
// never holds up a redraw.
type Notifier struct {
	conn *mpdclient.Locked
	send sendFunc
	log  *slog.Logger
	wg   sync.WaitGroup
}

// New registers with the GNTP server. Artwork is read through conn.
func New(cfg Config, conn *mpdclient.Locked, logger *slog.Logger) (*Notifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := gntp.NewClient(appName).
		WithHost(cfg.Host).
		WithPort(cfg.Port).
		WithTimeout(cfg.Timeout)

	switch strings.ToLower(cfg.IconMode) {
	case "dataurl":
		client.WithIconMode(gntp.IconModeDataURL)
	case "fileurl":
		client.WithIconMode(gntp.IconModeFileURL)
	case "httpurl":
		client.WithIconMode(gntp.IconModeHttpURL)
	default:
		client.WithIconMode(gntp.IconModeBinary)
	}

	songChange := gntp.NewNotificationType(EventSongChange).
		WithDisplayName("Song Changed")
	playerState := gntp.NewNotificationType(EventPlayerState).
		WithDisplayName("Player State")
	if err := client.Register([]*gntp.NotificationType{songChange, playerState}); err != nil {
		return nil, fmt.Errorf("failed to register with GNTP: %w", err)
	}

	send := func(event, title, message string, icon *gntp.Resource) error {
		opts := gntp.NewNotifyOptions()
		if icon != nil {
			opts.WithIcon(icon)
		}
		return client.NotifyWithOptions(event, title, message, opts)
	}
	return newNotifier(conn, send, logger), nil
}

func newNotifier(conn *mpdclient.Locked, send sendFunc, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{conn: conn, send: send, log: logger}
}

func (n *Notifier) SongChanged(snap display.Snapshot) {
	n.deliver(EventSongChange, snap.Title(), SongMessage(snap), snap.File())
}

func (n *Notifier) StateChanged(snap display.Snapshot) {
	title := StateTitle(snap.State())
	message := title
	if snap.State() == mpdclient.Playing && snap.File() != "" {
		message = SongMessage(snap)
	}
	n.deliver(EventPlayerState, title, message, snap.File())
}

// Wait blocks until every pending notification has been handed over.
func (n *Notifier) Wait() { n.wg.Wait() }

func (n *Notifier) deliver(event, title, message, uri string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		var icon *gntp.Resource
		if uri != "" {
			icon = n.albumArt(uri)
		}
		if err := n.send(event, title, message, icon); err != nil {
			n.log.Warn("failed to send notification", "event", event, "error", err)
		}
	}()
}

func (n *Notifier) albumArt(uri string) *gntp.Resource {
	var art []byte
	err := n.conn.Do(func(c mpdclient.Client) (err error) {
		art, err = c.Picture(uri)
		return err
	})
	if err != nil || len(art) == 0 {
		n.log.Debug("no album art", "uri", uri, "error", err)
		return nil
	}
	return gntp.LoadResourceFromBytes(art, ContentType(art))
}

// ContentType tells PNG artwork from everything else, which is assumed to
// be JPEG.
func ContentType(art []byte) string {
	if len(art) > 8 && art[0] == 0x89 && art[1] == 'P' && art[2] == 'N' && art[3] == 'G' {
		return "image/png"
	}
	return "image/jpeg"
}

// SongMessage is the notification body for the current song.
func SongMessage(snap display.Snapshot) string {
	pos, length := snap.QueuePosition()
	track := "?"
	if n := snap.AlbumTrack(); n >= 0 {
		track = strconv.Itoa(n)
	}
	elapsed, _ := snap.Elapsed()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d/%d/%s. %s\n", pos+1, length, track, snap.Title())
	fmt.Fprintf(&sb, "%s / %s\n", formatDuration(elapsed), formatDuration(snap.Duration()))
	if artist := snap.Artist(); artist != "" {
		fmt.Fprintf(&sb, "🎤 %s\n", artist)
	}
	if album := snap.Album(); album != "" {
		fmt.Fprintf(&sb, "💿 %s\n", album)
	}
	fmt.Fprintf(&sb, "📁 %s", snap.File())
	return sb.String()
}

func StateTitle(state mpdclient.State) string {
	switch state {
	case mpdclient.Playing:
		return "▶ Playing"
	case mpdclient.Paused:
		return "⏸ Paused"
	default:
		return "⏹ Stopped"
	}
}

func formatDuration(d time.Duration) string {
	sec := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
