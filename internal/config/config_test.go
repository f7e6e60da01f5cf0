package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go-mpd-display/internal/config"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[mpd]
host = "music.lan"
port = 6601
timeout = 3

[display]
format = ["artist", "title"]
ratings = true

[gntp]
enabled = true
icon_mode = "dataurl"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.MPD.Host != "music.lan" || cfg.MPD.Port != 6601 || cfg.MPD.Timeout != 3 {
		t.Fatalf("unexpected mpd section %+v", cfg.MPD)
	}
	if !reflect.DeepEqual(cfg.Display.Format, []string{"artist", "title"}) || !cfg.Display.Ratings {
		t.Fatalf("unexpected display section %+v", cfg.Display)
	}
	if !cfg.GNTP.Enabled || cfg.GNTP.IconMode != "dataurl" || cfg.GNTP.Port != config.DefaultGNTPPort {
		t.Fatalf("unexpected gntp section %+v", cfg.GNTP)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[mpd\nhost="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		in, pass, wantPass, wantHost string
	}{
		{"localhost", "", "", "localhost"},
		{"secret@localhost", "", "secret", "localhost"},
		{"/run/mpd/socket", "keep", "keep", "/run/mpd/socket"},
		{"secret@/run/mpd/socket", "", "secret", "/run/mpd/socket"},
		{"@mpd", "", "", "@mpd"},
		{"secret@@mpd", "", "secret", "@mpd"},
	}
	for _, tt := range tests {
		pass, host := config.ParseHost(tt.in, tt.pass)
		if pass != tt.wantPass || host != tt.wantHost {
			t.Errorf("ParseHost(%q) = %q, %q; want %q, %q", tt.in, pass, host, tt.wantPass, tt.wantHost)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MPD_HOST", "pw@10.0.0.2")
	t.Setenv("MPD_PORT", "6700")
	t.Setenv("MPD_TIMEOUT", "4")

	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	ep := cfg.Endpoint()
	if ep.Network != "tcp" || ep.Addr != "10.0.0.2:6700" || ep.Password != "pw" || ep.Timeout != 4*time.Second {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	t.Setenv("MPD_PORT", "sixty")
	cfg := config.Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}

func TestEndpointSocket(t *testing.T) {
	cfg := config.Default()
	cfg.MPD.Host = "/run/mpd/socket"
	cfg.MPD.Port = 0
	ep := cfg.Endpoint()
	if ep.Network != "unix" || ep.Addr != "/run/mpd/socket" {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("socket config should not need a port: %v", err)
	}
}

func TestEndpointIPv6(t *testing.T) {
	cfg := config.Default()
	cfg.MPD.Host = "::1"
	if got := cfg.Endpoint().Addr; got != "[::1]:6600" {
		t.Fatalf("Addr = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	got := config.ParseFormat(" title, ,artist,album ")
	if want := []string{"title", "artist", "album"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFormat = %v, want %v", got, want)
	}
	if got := config.ParseFormat(""); got != nil {
		t.Fatalf("ParseFormat(\"\") = %v, want nil", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty host", func(c *config.Config) { c.MPD.Host = "" }},
		{"bad port", func(c *config.Config) { c.MPD.Port = 70000 }},
		{"negative timeout", func(c *config.Config) { c.MPD.Timeout = -1 }},
		{"no format", func(c *config.Config) { c.Display.Format = nil }},
		{"bad icon mode", func(c *config.Config) { c.GNTP.Enabled, c.GNTP.IconMode = true, "gif" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
