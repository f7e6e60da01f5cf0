// Package mpdclient is the connection layer between the display/input
// components and an MPD server.
package mpdclient

import (
	"errors"
	"strings"
	"time"
)

// ErrNoSticker is returned by Sticker when the song carries no such sticker.
var ErrNoSticker = errors.New("no such sticker")

// State is the playback state reported by the server.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "play"
	case Paused:
		return "pause"
	default:
		return "stop"
	}
}

// Status is the subset of the MPD status reply consumed by this client.
type Status struct {
	SongPos      int // -1 when no song is selected
	QueueLen     int
	Elapsed      time.Duration
	Duration     time.Duration
	HasTime      bool // Elapsed and Duration are only meaningful while a track is loaded
	State        State
	Volume       int
	Repeat       bool
	Random       bool
	Single       bool
	Consume      bool
	Crossfade    time.Duration
	HasCrossfade bool
}

// Song is one track record, either the current song or a queue entry.
type Song struct {
	File string
	Pos  int // position in the queue, -1 if unknown
	Tags map[string]string
}

// Tag looks a tag up ignoring case. Missing tags yield "".
func (s Song) Tag(name string) string {
	if v, ok := s.Tags[name]; ok {
		return v
	}
	var value string
	for k, v := range s.Tags {
		if strings.EqualFold(k, name) {
			value = v
		}
	}
	return value
}

// Client is the set of server operations the display and input sides use.
type Client interface {
	Status() (Status, error)
	CurrentSong() (Song, error)
	Queue() ([]Song, error)
	Search(tag, value string, window int) ([]Song, error)

	Sticker(uri, name string) (string, error)
	SetSticker(uri, name, value string) error
	DeleteSticker(uri, name string) error

	Subscribe(channel string) error
	Unsubscribe(channel string) error
	Channels() ([]string, error)

	Play() error
	Pause(pause bool) error
	Previous() error
	Next() error
	SetVolume(volume int) error
	SeekTo(d time.Duration) error
	SetRepeat(on bool) error
	SetRandom(on bool) error
	SetSingle(on bool) error
	SetConsume(on bool) error
	Shuffle() error
	SetCrossfade(d time.Duration) error
	Stop() error

	Picture(uri string) ([]byte, error)
	Ping() error
	Close() error
}
