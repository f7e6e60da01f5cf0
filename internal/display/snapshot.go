package display

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"go-mpd-display/internal/mpdclient"
	"go-mpd-display/internal/queuewin"
)

const unknown = "?"

// ANSI color codes for terminal
const (
	colArtist = "\x1b[1;36m" // bold cyan
	colTitle  = "\x1b[1;34m" // bold blue
	colTrack  = "\x1b[32m"   // green
	colAlbum  = "\x1b[36m"   // cyan
	colDate   = "\x1b[33m"   // yellow
	colRating = "\x1b[35;1m" // bold magenta
	colPlay   = "\x1b[32m"   // green
	colPause  = "\x1b[31m"   // red
	colEaster = "\x1b[40m"   // black background
	colReset  = "\x1b[0m"
)

// Options are the operator's display preferences.
type Options struct {
	Format  []string // tags shown per queue row
	Verbose bool     // never hide tags that repeat across the whole queue
	Ratings bool
	Easter  bool
}

// Snapshot mirrors the server state the display needs. It is owned by a
// Cache; the projector only ever sees a Clone.
type Snapshot struct {
	opts      Options
	dittoTags []bool // parallel to opts.Format: value identical on every queue row

	prevAlbum      string
	prevAlbumTotal int

	song  mpdclient.Song
	queue []mpdclient.Song

	artist     string
	title      string
	album      string
	date       string
	albumTrack int // -1 when unknown
	albumTotal int // -1 when unknown

	queuePos int // -1 when nothing is selected
	queueLen int // 0 when unknown

	elapsed  time.Duration
	duration time.Duration
	hasTime  bool

	state        mpdclient.State
	volume       int
	toggles      [4]bool // repeat, random, single, consume
	crossfade    time.Duration
	hasCrossfade bool

	rating string
	rated  bool
}

func newSnapshot(opts Options) Snapshot {
	return Snapshot{
		opts:           opts,
		prevAlbumTotal: -1,
		song:           mpdclient.Song{Pos: -1},
		albumTrack:     -1,
		albumTotal:     -1,
		queuePos:       -1,
	}
}

// Clone copies the snapshot so it can be handed to another goroutine.
// Song tag maps are never mutated after a sync, so they are shared.
func (s Snapshot) Clone() Snapshot {
	s.opts.Format = append([]string(nil), s.opts.Format...)
	s.dittoTags = append([]bool(nil), s.dittoTags...)
	s.queue = append([]mpdclient.Song(nil), s.queue...)
	return s
}

// IncrementElapsed advances the elapsed time if a track is loaded.
func (s *Snapshot) IncrementElapsed(d time.Duration) {
	if s.hasTime {
		s.elapsed += d
	}
}

func (s Snapshot) Elapsed() (time.Duration, bool) { return s.elapsed, s.hasTime }

func (s Snapshot) State() mpdclient.State { return s.state }

func (s Snapshot) Duration() time.Duration { return s.duration }

// QueuePosition returns the 0-based queue position (-1 if none) and the
// queue length.
func (s Snapshot) QueuePosition() (pos, length int) { return s.queuePos, s.queueLen }

// AlbumTrack is the track number within the album, -1 if unknown.
func (s Snapshot) AlbumTrack() int { return s.albumTrack }

func (s Snapshot) File() string { return s.song.File }

func (s Snapshot) Artist() string { return s.artist }

func (s Snapshot) Album() string { return s.album }

// Title falls back to the file name when the song has no title tag.
func (s Snapshot) Title() string {
	if s.title != "" {
		return s.title
	}
	if s.song.File != "" {
		return path.Base(s.song.File)
	}
	return ""
}

// Render lays the header over the queue so that the result is exactly
// height lines for a terminal of the given size.
func (s Snapshot) Render(width, height int) string {
	header := s.header()
	if width > 0 {
		header = ansi.Wrap(header, width, "")
	}
	headerHeight := strings.Count(header, "\n") + 1

	body := s.queueLines(width, max(height-headerHeight, 0))
	if len(body) == 0 {
		return header
	}
	return header + "\n" + strings.Join(body, "\n")
}

func (s Snapshot) header() string {
	artist := orUnknown(s.artist)
	title := orUnknown(s.Title())

	state, colState := "><", colPause
	switch s.state {
	case mpdclient.Playing:
		state, colState = "|>", colPlay
	case mpdclient.Paused:
		state = "[]"
	}

	queueTrack := unknown
	if s.queuePos >= 0 {
		queueTrack = strconv.Itoa(s.queuePos + 1)
	}
	queueTotal := unknown
	if s.queueLen > 0 {
		queueTotal = strconv.Itoa(s.queueLen)
	}

	elapsed, duration, percent := unknown, unknown, unknown
	if s.hasTime {
		elapsed, duration = prettyTime(s.elapsed), prettyTime(s.duration)
		if secs := int64(s.duration / time.Second); secs > 0 {
			percent = strconv.FormatInt(100*int64(s.elapsed/time.Second)/secs, 10)
		}
	}

	crossfade := ""
	if s.hasCrossfade {
		crossfade = fmt.Sprintf(" (x: %d)", int64(s.crossfade/time.Second))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s%s * %s%s%s\n", colArtist, artist, colReset, colTitle, title, colReset)
	fmt.Fprintf(&sb, "(%s#%s/%s%s) %s%s%s %s(%s)%s\n",
		colTrack, optInt(s.albumTrack), optInt(s.albumTotal), colReset,
		colAlbum, orUnknown(s.album), colReset,
		colDate, orUnknown(s.date), colReset)
	fmt.Fprintf(&sb, "%s%s %s/%s: %s/%s, %s%%%s  %s%s%s\n",
		colState, state, queueTrack, queueTotal, elapsed, duration, percent, colReset,
		colRating, s.ratingText(), colReset)
	fmt.Fprintf(&sb, "%s%s, %d%%%s%s", colState, s.toggleText(), s.volume, crossfade, colReset)
	return sb.String()
}

func (s Snapshot) toggleText() string {
	letters := []byte("ersc")
	for i, on := range s.toggles {
		if on {
			letters[i] -= 'a' - 'A'
		}
	}
	return string(letters)
}

var (
	hearts    = [3]string{"<3", "< ", " ."}
	christgau = [11]string{"🦃", "💣", " ✂️", "😐", "⭐", "⭐ ⭐", "⭐ ⭐ ⭐", "B+", "A-", "A", "A+"}
)

// ratingText renders the rating sticker on a five unit scale where each
// unit is worth two points.
func (s Snapshot) ratingText() string {
	if s.opts.Easter {
		n, _ := strconv.Atoi(s.rating)
		n = min(max(n, 0), len(christgau)-1)
		return colEaster + " " + christgau[n] + " " + colReset
	}
	if !s.opts.Ratings {
		return ""
	}
	if !s.rated {
		return " ? ? ? ? ?"
	}
	n, err := strconv.ParseUint(s.rating, 10, 8)
	if err != nil || n > 10 {
		return "rating: " + s.rating
	}
	full, half := int(n/2), int(n%2)
	return strings.Repeat(hearts[0], full) +
		strings.Repeat(hearts[1], half) +
		strings.Repeat(hearts[2], 5-full-half)
}

func (s Snapshot) queueLines(width, height int) []string {
	focus := max(s.song.Pos, 0)
	indexWidth := queuewin.IndexWidth(len(s.queue))

	rows := make([]string, 0, len(s.queue))
	for i, song := range s.queue {
		rows = append(rows, queuewin.Row(i+1, indexWidth, s.rowFields(song), i == s.song.Pos))
	}
	return queuewin.Render(rows, height, width, focus)
}

func (s Snapshot) rowFields(song mpdclient.Song) []string {
	fields := make([]string, 0, len(s.opts.Format))
	for i, tag := range s.opts.Format {
		if !s.opts.Verbose && i < len(s.dittoTags) && s.dittoTags[i] {
			continue
		}
		fields = append(fields, orUnknown(song.Tag(tag)))
	}
	return fields
}

// dittoTags marks every format tag, except title, whose value is the same on
// all rows of the queue. Verbose mode disables the check.
func dittoTags(format []string, queue []mpdclient.Song, verbose bool) []bool {
	if verbose {
		return nil
	}
	tags := make([]bool, 0, len(format))
	for _, tag := range format {
		if tag == "title" {
			tags = append(tags, false)
			continue
		}
		var first string
		if len(queue) > 0 {
			first = queue[0].Tag(tag)
		}
		same := true
		for _, song := range queue {
			if song.Tag(tag) != first {
				same = false
				break
			}
		}
		tags = append(tags, same)
	}
	return tags
}

func prettyTime(d time.Duration) string {
	n := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", n/60, n%60)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func optInt(n int) string {
	if n < 0 {
		return unknown
	}
	return strconv.Itoa(n)
}

// parseTrack accepts "7" as well as "7/12".
func parseTrack(s string) int {
	s, _, _ = strings.Cut(s, "/")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
