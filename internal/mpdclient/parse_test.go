package mpdclient

import (
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

func TestParseStatusPlaying(t *testing.T) {
	st := parseStatus(mpd.Attrs{
		"state":          "play",
		"song":           "3",
		"playlistlength": "12",
		"elapsed":        "61.250",
		"duration":       "180.000",
		"volume":         "75",
		"repeat":         "1",
		"random":         "0",
		"single":         "1",
		"consume":        "0",
		"xfade":          "5",
	})

	if st.State != Playing {
		t.Fatalf("unexpected state: %v", st.State)
	}
	if st.SongPos != 3 || st.QueueLen != 12 {
		t.Fatalf("unexpected queue place: pos=%d len=%d", st.SongPos, st.QueueLen)
	}
	if !st.HasTime {
		t.Fatal("expected elapsed/duration to be present")
	}
	if st.Elapsed != 61250*time.Millisecond {
		t.Fatalf("unexpected elapsed: %v", st.Elapsed)
	}
	if st.Duration != 180*time.Second {
		t.Fatalf("unexpected duration: %v", st.Duration)
	}
	if st.Volume != 75 {
		t.Fatalf("unexpected volume: %d", st.Volume)
	}
	if !st.Repeat || st.Random || !st.Single || st.Consume {
		t.Fatalf("unexpected toggles: %+v", st)
	}
	if !st.HasCrossfade || st.Crossfade != 5*time.Second {
		t.Fatalf("unexpected crossfade: %v (%v)", st.Crossfade, st.HasCrossfade)
	}
}

func TestParseStatusStoppedHasNoTime(t *testing.T) {
	st := parseStatus(mpd.Attrs{"state": "stop", "playlistlength": "0", "volume": "50"})
	if st.State != Stopped {
		t.Fatalf("unexpected state: %v", st.State)
	}
	if st.SongPos != -1 {
		t.Fatalf("expected no song position, got %d", st.SongPos)
	}
	if st.HasTime {
		t.Fatal("expected no time while stopped")
	}
	if st.HasCrossfade {
		t.Fatal("expected no crossfade")
	}
}

func TestParseStatusLegacyTimeField(t *testing.T) {
	st := parseStatus(mpd.Attrs{"state": "pause", "time": "30:200"})
	if st.State != Paused {
		t.Fatalf("unexpected state: %v", st.State)
	}
	if !st.HasTime || st.Elapsed != 30*time.Second || st.Duration != 200*time.Second {
		t.Fatalf("unexpected time: %v/%v (%v)", st.Elapsed, st.Duration, st.HasTime)
	}
}

func TestSongTagIsCaseInsensitive(t *testing.T) {
	song := parseSong(mpd.Attrs{"file": "a/b.flac", "Pos": "2", "Album": "Blue", "ALBUMARTIST": "Joni"})
	if song.File != "a/b.flac" || song.Pos != 2 {
		t.Fatalf("unexpected song: %+v", song)
	}
	tests := map[string]string{
		"album":       "Blue",
		"Album":       "Blue",
		"albumartist": "Joni",
		"date":        "",
	}
	for tag, want := range tests {
		if got := song.Tag(tag); got != want {
			t.Fatalf("Tag(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestEscapeFilter(t *testing.T) {
	got := escapeFilter(`say "hi" \ bye`)
	want := `say \"hi\" \\ bye`
	if got != want {
		t.Fatalf("escapeFilter = %q, want %q", got, want)
	}
}

func TestNormalizeSubsystem(t *testing.T) {
	if normalizeSubsystem("playlist") != "queue" {
		t.Fatal("expected playlist to map to queue")
	}
	if normalizeSubsystem("mixer") != "mixer" {
		t.Fatal("expected mixer to pass through")
	}
	got := appendUnique([]string{"queue"}, "queue")
	if len(got) != 1 {
		t.Fatalf("expected duplicate to be dropped, got %v", got)
	}
}
