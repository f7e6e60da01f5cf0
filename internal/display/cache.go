package display

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"go-mpd-display/internal/mpdclient"
)

// searchWindow bounds the album search; large enough to mean "every match".
const searchWindow = 1<<16 - 1

// Cache keeps a Snapshot in step with the server, querying only what a
// change notification says may have changed. Sync failures never reach the
// caller.
type Cache struct {
	conn *mpdclient.Locked
	snap Snapshot
	log  *slog.Logger
}

func NewCache(conn *mpdclient.Locked, opts Options, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{conn: conn, snap: newSnapshot(opts), log: logger}
}

// Snapshot returns an independent copy of the current state.
func (c *Cache) Snapshot() Snapshot {
	return c.snap.Clone()
}

// SyncAll performs the initial full sync.
func (c *Cache) SyncAll() {
	c.SyncStatus()
	c.SyncSong()
	c.SyncQueue()
	c.SyncRating()
}

// Apply refreshes the snapshot for one batch of changed subsystems and
// reports whether channel subscriptions changed. Status is refreshed on
// every batch because the projector depends on it.
func (c *Cache) Apply(changed []string) (subscription bool) {
	c.SyncStatus()
	for _, name := range changed {
		switch name {
		case "player":
			c.SyncSong()
			c.SyncRating()
		case "mixer", "options":
			// status only
		case "queue", "playlist":
			c.SyncQueue()
			c.SyncSong()
			c.SyncRating()
		case "sticker":
			c.SyncRating()
		case "subscription":
			subscription = true
		default:
			c.log.Debug("ignoring subsystem", "subsystem", name)
		}
	}
	return subscription
}

// SyncStatus overwrites every status-derived field. On failure the fields
// fall back to empty defaults.
func (c *Cache) SyncStatus() {
	var st mpdclient.Status
	err := c.conn.Do(func(cl mpdclient.Client) (err error) {
		st, err = cl.Status()
		return err
	})
	if err != nil {
		c.log.Debug("status sync failed", "error", err)
		st = mpdclient.Status{SongPos: -1}
	}

	s := &c.snap
	s.queuePos = st.SongPos
	s.queueLen = st.QueueLen
	s.elapsed, s.duration, s.hasTime = st.Elapsed, st.Duration, st.HasTime
	s.state = st.State
	s.volume = st.Volume
	s.toggles = [4]bool{st.Repeat, st.Random, st.Single, st.Consume}
	s.crossfade, s.hasCrossfade = st.Crossfade, st.HasCrossfade
}

// SyncSong refreshes the current song and the fields derived from its tags.
// The album size is only searched for when the album changed.
func (c *Cache) SyncSong() {
	var song mpdclient.Song
	err := c.conn.Do(func(cl mpdclient.Client) (err error) {
		song, err = cl.CurrentSong()
		return err
	})
	if err != nil {
		c.log.Debug("song sync failed", "error", err)
		return
	}

	s := &c.snap
	album := song.Tag("album")
	albumTotal := s.prevAlbumTotal
	if album != s.prevAlbum {
		albumTotal = c.AlbumSize(album)
	}
	s.prevAlbum, s.prevAlbumTotal = album, albumTotal

	s.song = song
	s.artist = song.Tag("artist")
	s.title = song.Tag("title")
	s.album = album
	s.date = song.Tag("date")
	s.albumTrack = parseTrack(song.Tag("track"))
	s.albumTotal = albumTotal
}

// SyncQueue refreshes the queue and recomputes which tags repeat on every row.
func (c *Cache) SyncQueue() {
	var queue []mpdclient.Song
	err := c.conn.Do(func(cl mpdclient.Client) (err error) {
		queue, err = cl.Queue()
		return err
	})
	if err != nil {
		c.log.Debug("queue sync failed", "error", err)
		return
	}
	c.snap.dittoTags = dittoTags(c.snap.opts.Format, queue, c.snap.opts.Verbose)
	c.snap.queue = queue
}

// SyncRating reads the "rating" sticker of the current song. A song without
// the sticker is simply unrated.
func (c *Cache) SyncRating() {
	uri := c.snap.song.File
	if uri == "" {
		c.snap.rating, c.snap.rated = "", false
		return
	}
	var rating string
	err := c.conn.Do(func(cl mpdclient.Client) (err error) {
		rating, err = cl.Sticker(uri, "rating")
		return err
	})
	switch {
	case errors.Is(err, mpdclient.ErrNoSticker):
		c.snap.rating, c.snap.rated = "", false
	case err != nil:
		c.log.Debug("rating sync failed", "uri", uri, "error", err)
	default:
		c.snap.rating, c.snap.rated = rating, true
	}
}

// AlbumSize counts the songs tagged with album, or returns -1 when the
// album is unset or the search fails.
func (c *Cache) AlbumSize(album string) int {
	if album == "" {
		return -1
	}
	var matches []mpdclient.Song
	err := c.conn.Do(func(cl mpdclient.Client) (err error) {
		matches, err = cl.Search("album", album, searchWindow)
		return err
	})
	if err != nil {
		c.log.Debug("album search failed", "album", album, "error", err)
		return -1
	}
	return len(matches)
}

// IncrementElapsed advances the cached elapsed time by n seconds.
func (c *Cache) IncrementElapsed(n int) {
	c.snap.IncrementElapsed(time.Duration(n) * time.Second)
}

// Render draws the cached snapshot.
func (c *Cache) Render(width, height int) string {
	return c.snap.Render(width, height)
}
