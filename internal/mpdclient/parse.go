package mpdclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

func parseStatus(attrs mpd.Attrs) Status {
	st := Status{
		SongPos:  atoiOr(attrs["song"], -1),
		QueueLen: atoiOr(attrs["playlistlength"], 0),
		Volume:   atoiOr(attrs["volume"], 0),
		Repeat:   attrs["repeat"] == "1",
		Random:   attrs["random"] == "1",
		Single:   attrs["single"] == "1",
		Consume:  attrs["consume"] == "1",
	}

	switch attrs["state"] {
	case "play":
		st.State = Playing
	case "pause":
		st.State = Paused
	default:
		st.State = Stopped
	}

	elapsed, okElapsed := parseSeconds(attrs["elapsed"])
	duration, okDuration := parseSeconds(attrs["duration"])
	// Older servers only send "time: elapsed:total".
	if !okElapsed || !okDuration {
		if e, d, found := strings.Cut(attrs["time"], ":"); found {
			elapsed, okElapsed = parseSeconds(e)
			duration, okDuration = parseSeconds(d)
		}
	}
	if okElapsed && okDuration {
		st.Elapsed, st.Duration, st.HasTime = elapsed, duration, true
	}

	if xfade, ok := parseSeconds(attrs["xfade"]); ok {
		st.Crossfade, st.HasCrossfade = xfade, true
	}
	return st
}

func parseSong(attrs mpd.Attrs) Song {
	song := Song{
		File: attrs["file"],
		Pos:  atoiOr(attrs["Pos"], -1),
		Tags: make(map[string]string, len(attrs)),
	}
	for k, v := range attrs {
		song.Tags[k] = v
	}
	return song
}

func parseSongs(list []mpd.Attrs) []Song {
	songs := make([]Song, 0, len(list))
	for _, attrs := range list {
		songs = append(songs, parseSong(attrs))
	}
	return songs
}

func parseSeconds(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
