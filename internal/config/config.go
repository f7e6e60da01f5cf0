// Package config loads settings from a TOML file, the MPD_* environment
// variables and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"go-mpd-display/internal/mpdclient"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 6600
	DefaultTimeout  = 10
	DefaultGNTPPort = 23053
)

type MPD struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	Timeout  int    `toml:"timeout"` // seconds
}

type Display struct {
	Format  []string `toml:"format"`
	Verbose bool     `toml:"verbose"`
	Ratings bool     `toml:"ratings"`
	Easter  bool     `toml:"easter"`
}

type Log struct {
	File   string `toml:"file"`
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type GNTP struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	IconMode string `toml:"icon_mode"` // binary, dataurl, fileurl, httpurl
}

type Config struct {
	MPD     MPD     `toml:"mpd"`
	Display Display `toml:"display"`
	Log     Log     `toml:"log"`
	GNTP    GNTP    `toml:"gntp"`
}

func Default() Config {
	return Config{
		MPD: MPD{
			Host:    DefaultHost,
			Port:    DefaultPort,
			Timeout: DefaultTimeout,
		},
		Display: Display{
			Format: []string{"title", "artist", "album"},
		},
		Log: Log{Level: "info", Format: "text"},
		GNTP: GNTP{
			Host:     "localhost",
			Port:     DefaultGNTPPort,
			IconMode: "binary",
		},
	}
}

// DefaultPath is config.toml in the per-user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mpd-display", "config.toml"), nil
}

// Load reads path over the defaults. An empty path means DefaultPath. A
// missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the server settings from MPD_HOST, MPD_PORT and
// MPD_TIMEOUT. MPD_HOST may carry a password as password@host and may name
// a socket path or an abstract socket starting with @.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("MPD_HOST"); v != "" {
		c.MPD.Password, c.MPD.Host = ParseHost(v, c.MPD.Password)
	}
	if v := os.Getenv("MPD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for MPD_PORT: %q", v)
		}
		c.MPD.Port = port
	}
	if v := os.Getenv("MPD_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			c.MPD.Timeout = t
		}
	}
	return nil
}

// ParseHost splits an MPD_HOST style value into password and host. pass is
// returned unchanged when the value carries none.
func ParseHost(v, pass string) (password, host string) {
	switch {
	case strings.HasPrefix(v, "@"):
		return pass, v
	case strings.Contains(v, "@@"):
		p, socket, _ := strings.Cut(v, "@@")
		return p, "@" + socket
	case strings.Contains(v, "@"):
		p, h, _ := strings.Cut(v, "@")
		return p, h
	default:
		return pass, v
	}
}

// ParseFormat splits a comma separated tag list, dropping empty entries.
func ParseFormat(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsSocket reports whether host names a unix socket rather than a TCP host.
func IsSocket(host string) bool {
	return strings.HasPrefix(host, "@") || strings.Contains(host, "/")
}

// Endpoint is where the client connects.
func (c Config) Endpoint() mpdclient.Endpoint {
	ep := mpdclient.Endpoint{
		Network:  "tcp",
		Addr:     net.JoinHostPort(c.MPD.Host, strconv.Itoa(c.MPD.Port)),
		Password: c.MPD.Password,
		Timeout:  time.Duration(c.MPD.Timeout) * time.Second,
	}
	if IsSocket(c.MPD.Host) {
		ep.Network, ep.Addr = "unix", c.MPD.Host
	}
	return ep
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.MPD.Host) == "" {
		return errors.New("mpd host must not be empty")
	}
	if !IsSocket(c.MPD.Host) && (c.MPD.Port < 1 || c.MPD.Port > 65535) {
		return fmt.Errorf("mpd port out of range: %d", c.MPD.Port)
	}
	if c.MPD.Timeout < 0 {
		return fmt.Errorf("mpd timeout must not be negative: %d", c.MPD.Timeout)
	}
	if len(c.Display.Format) == 0 {
		return errors.New("display format must name at least one tag")
	}
	if c.GNTP.Enabled {
		switch strings.ToLower(c.GNTP.IconMode) {
		case "", "binary", "dataurl", "fileurl", "httpurl":
		default:
			return fmt.Errorf("unknown gntp icon mode %q", c.GNTP.IconMode)
		}
	}
	return nil
}
