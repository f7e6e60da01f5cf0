package mpdclient_test

import (
	"bufio"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"

	"go-mpd-display/internal/mpdclient"
)

// server speaks just enough of the MPD protocol to drive a Conn over TCP.
type server struct {
	ln net.Listener

	mu       sync.Mutex
	counts   map[string]int
	channels map[string]bool
	drop     map[string]bool // close the connection the first time this command arrives
}

func newServer(t *testing.T) *server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &server{
		ln:       ln,
		counts:   make(map[string]int),
		channels: make(map[string]bool),
		drop:     make(map[string]bool),
	}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *server) endpoint() mpdclient.Endpoint {
	return mpdclient.Endpoint{Network: "tcp", Addr: s.ln.Addr().String()}
}

func (s *server) count(cmd string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[cmd]
}

func (s *server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *server) handle(conn net.Conn) {
	defer conn.Close()
	fmt.Fprint(conn, "OK MPD 0.23.5\n")
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.Trim(arg, `"`)
		if name == "close" {
			return
		}
		reply, ok := s.reply(name, arg)
		if !ok {
			return
		}
		if _, err := fmt.Fprint(conn, reply); err != nil {
			return
		}
	}
}

func (s *server) reply(name, arg string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
	if s.drop[name] {
		delete(s.drop, name)
		return "", false
	}
	switch name {
	case "subscribe":
		s.channels[arg] = true
	case "unsubscribe":
		delete(s.channels, arg)
	case "channels":
		var b strings.Builder
		names := make([]string, 0, len(s.channels))
		for ch := range s.channels {
			names = append(names, ch)
		}
		slices.Sort(names)
		for _, ch := range names {
			fmt.Fprintf(&b, "channel: %s\n", ch)
		}
		b.WriteString("OK\n")
		return b.String(), true
	case "status":
		return "volume: 50\nstate: play\nOK\n", true
	}
	return "OK\n", true
}

func TestConnChannels(t *testing.T) {
	srv := newServer(t)
	conn, err := mpdclient.Dial(srv.endpoint(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	for _, ch := range []string{"quit_abc", "help_abc"} {
		if err := conn.Subscribe(ch); err != nil {
			t.Fatalf("Subscribe(%q): %v", ch, err)
		}
	}
	got, err := conn.Channels()
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if want := []string{"help_abc", "quit_abc"}; !slices.Equal(got, want) {
		t.Errorf("Channels() = %v, want %v", got, want)
	}

	if err := conn.Unsubscribe("help_abc"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	got, err = conn.Channels()
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if want := []string{"quit_abc"}; !slices.Equal(got, want) {
		t.Errorf("Channels() after unsubscribe = %v, want %v", got, want)
	}
}

func TestConnRetriesQueriesAfterReconnect(t *testing.T) {
	srv := newServer(t)
	conn, err := mpdclient.Dial(srv.endpoint(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	srv.mu.Lock()
	srv.drop["status"] = true
	srv.mu.Unlock()

	st, err := conn.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != mpdclient.Playing || st.Volume != 50 {
		t.Errorf("Status() = %+v, want playing at volume 50", st)
	}
	if n := srv.count("status"); n != 2 {
		t.Errorf("status sent %d times, want 2", n)
	}
}

func TestConnDoesNotResendCommands(t *testing.T) {
	srv := newServer(t)
	conn, err := mpdclient.Dial(srv.endpoint(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	srv.mu.Lock()
	srv.drop["next"] = true
	srv.mu.Unlock()

	if err := conn.Next(); err == nil {
		t.Fatal("Next() succeeded on a dropped connection")
	}
	if n := srv.count("next"); n != 1 {
		t.Errorf("next sent %d times, want 1", n)
	}

	// The connection was redialed, so the following command goes through.
	if err := conn.Next(); err != nil {
		t.Fatalf("Next after reconnect: %v", err)
	}
	if n := srv.count("next"); n != 2 {
		t.Errorf("next sent %d times, want 2", n)
	}
}
