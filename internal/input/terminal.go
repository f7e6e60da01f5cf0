package input

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Terminal reads single keystrokes from a terminal put in raw mode.
type Terminal struct {
	f     *os.File
	state *term.State
}

// OpenTerminal switches f to raw mode. Call Restore before exiting.
func OpenTerminal(f *os.File) (*Terminal, error) {
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	return &Terminal{f: f, state: state}, nil
}

// ReadKey returns the next byte as a key.
func (t *Terminal) ReadKey() (rune, error) {
	var buf [1]byte
	if _, err := t.f.Read(buf[:]); err != nil {
		return 0, err
	}
	return rune(buf[0]), nil
}

func (t *Terminal) Restore() error {
	return term.Restore(int(t.f.Fd()), t.state)
}
