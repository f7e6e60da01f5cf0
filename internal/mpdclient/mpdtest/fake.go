// Package mpdtest provides an in-memory mpdclient.Client for tests.
package mpdtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go-mpd-display/internal/mpdclient"
)

// ErrTransport is a canned transport failure.
var ErrTransport = errors.New("connection refused")

// Fake records every call and applies playback verbs to its own Status so a
// later Status call observes them.
type Fake struct {
	mu sync.Mutex

	StatusReply mpdclient.Status
	StatusErr   error
	Current     mpdclient.Song
	CurrentErr  error
	QueueReply  []mpdclient.Song
	QueueErr    error
	Library     []mpdclient.Song
	SearchErr   error
	StickerErr  error
	Stickers    map[string]map[string]string
	Subscribed  map[string]bool
	Art         []byte

	calls map[string]int
	ops   []string
}

func New() *Fake {
	return &Fake{
		StatusReply: mpdclient.Status{SongPos: -1},
		Current:     mpdclient.Song{Pos: -1},
		Stickers:    make(map[string]map[string]string),
		Subscribed:  make(map[string]bool),
		calls:       make(map[string]int),
	}
}

// Song builds a song record from alternating tag/value pairs.
func Song(file string, pos int, kv ...string) mpdclient.Song {
	s := mpdclient.Song{File: file, Pos: pos, Tags: map[string]string{"file": file}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Tags[kv[i]] = kv[i+1]
	}
	return s
}

// Calls reports how often the named method ran.
func (f *Fake) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// Ops lists channel and playback operations in call order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// Update mutates the fake while holding its lock, for use while other
// goroutines are talking to it.
func (f *Fake) Update(fn func(*Fake)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
	f.ops = nil
}

func (f *Fake) record(name string, op ...string) {
	f.calls[name]++
	if len(op) > 0 {
		f.ops = append(f.ops, strings.Join(append([]string{name}, op...), " "))
	} else if name != "Status" && name != "CurrentSong" && name != "Queue" && name != "Channels" && name != "Sticker" {
		f.ops = append(f.ops, name)
	}
}

func (f *Fake) Status() (mpdclient.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Status")
	if f.StatusErr != nil {
		return mpdclient.Status{SongPos: -1}, f.StatusErr
	}
	return f.StatusReply, nil
}

func (f *Fake) CurrentSong() (mpdclient.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CurrentSong")
	if f.CurrentErr != nil {
		return mpdclient.Song{Pos: -1}, f.CurrentErr
	}
	return f.Current, nil
}

func (f *Fake) Queue() ([]mpdclient.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Queue")
	if f.QueueErr != nil {
		return nil, f.QueueErr
	}
	return append([]mpdclient.Song(nil), f.QueueReply...), nil
}

func (f *Fake) Search(tag, value string, window int) ([]mpdclient.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Search")
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	var out []mpdclient.Song
	for _, s := range f.Library {
		if strings.EqualFold(s.Tag(tag), value) {
			out = append(out, s)
		}
		if len(out) >= window {
			break
		}
	}
	return out, nil
}

func (f *Fake) Sticker(uri, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Sticker")
	if f.StickerErr != nil {
		return "", f.StickerErr
	}
	v, ok := f.Stickers[uri][name]
	if !ok {
		return "", mpdclient.ErrNoSticker
	}
	return v, nil
}

func (f *Fake) SetSticker(uri, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetSticker", name, value)
	if f.Stickers[uri] == nil {
		f.Stickers[uri] = make(map[string]string)
	}
	f.Stickers[uri][name] = value
	return nil
}

func (f *Fake) DeleteSticker(uri, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteSticker", name)
	delete(f.Stickers[uri], name)
	return nil
}

func (f *Fake) Subscribe(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Subscribe", channel)
	f.Subscribed[channel] = true
	return nil
}

func (f *Fake) Unsubscribe(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Unsubscribe", channel)
	delete(f.Subscribed, channel)
	return nil
}

func (f *Fake) Channels() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Channels")
	out := make([]string, 0, len(f.Subscribed))
	for ch := range f.Subscribed {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out, nil
}

func (f *Fake) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Play")
	f.StatusReply.State = mpdclient.Playing
	return nil
}

func (f *Fake) Pause(pause bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Pause")
	if pause {
		f.StatusReply.State = mpdclient.Paused
	} else {
		f.StatusReply.State = mpdclient.Playing
	}
	return nil
}

func (f *Fake) Previous() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Previous")
	return nil
}

func (f *Fake) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Next")
	return nil
}

func (f *Fake) SetVolume(volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetVolume")
	f.StatusReply.Volume = volume
	return nil
}

func (f *Fake) SeekTo(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SeekTo", d.String())
	f.StatusReply.Elapsed = d
	return nil
}

func (f *Fake) SetRepeat(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetRepeat")
	f.StatusReply.Repeat = on
	return nil
}

func (f *Fake) SetRandom(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetRandom")
	f.StatusReply.Random = on
	return nil
}

func (f *Fake) SetSingle(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetSingle")
	f.StatusReply.Single = on
	return nil
}

func (f *Fake) SetConsume(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetConsume")
	f.StatusReply.Consume = on
	return nil
}

func (f *Fake) Shuffle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Shuffle")
	return nil
}

func (f *Fake) SetCrossfade(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetCrossfade", d.String())
	f.StatusReply.Crossfade = d
	f.StatusReply.HasCrossfade = d > 0
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Stop")
	f.StatusReply.State = mpdclient.Stopped
	return nil
}

func (f *Fake) Picture(uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Picture")
	if f.Art == nil {
		return nil, errors.New("no artwork")
	}
	return f.Art, nil
}

func (f *Fake) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Ping")
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Close")
	// The server forgets a client's subscriptions once it disconnects.
	clear(f.Subscribed)
	return nil
}

// Waiter replays scripted change sets; once they run out Wait blocks until
// the context is cancelled.
type Waiter struct {
	Events chan []string
}

func NewWaiter(buffer int) *Waiter {
	return &Waiter{Events: make(chan []string, buffer)}
}

func (w *Waiter) Wait(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-w.Events:
		if !ok {
			return nil, mpdclient.ErrWatcherClosed
		}
		return ev, nil
	}
}

func (w *Waiter) Close() error { return nil }
