package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"go-mpd-display/internal/config"
	"go-mpd-display/internal/display"
	"go-mpd-display/internal/logging"
	"go-mpd-display/internal/notify"
	"go-mpd-display/internal/player"
	"go-mpd-display/internal/signal"
)

const version = "0.3.0"

func main() {
	var (
		configFile  string
		mpdHost     string
		mpdPort     int
		mpdTimeout  int
		format      string
		titleOnly   bool
		verbose     bool
		ratings     bool
		easter      bool
		mode        string
		session     string
		logFile     string
		debugFlag   bool
		showVersion bool
	)

	flag.StringVarP(&configFile, "config", "c", "", "Path to TOML config file")
	flag.StringVarP(&mpdHost, "host", "H", "", "Connect to server at address HOST (default: 127.0.0.1 or MPD_HOST env)")
	flag.IntVarP(&mpdPort, "port", "P", 0, "Connect to server on port PORT (default: 6600 or MPD_PORT env)")
	flag.IntVar(&mpdTimeout, "timeout", 0, "Connect timeout in seconds (default: 10 or MPD_TIMEOUT env)")
	flag.StringVarP(&format, "format", "f", "", "Comma-separated list of song metadata to display")
	flag.BoolVarP(&titleOnly, "title", "t", false, "Only show the title of each queued song")
	flag.BoolVarP(&verbose, "verbose", "v", false, "Show tags even when every queued song shares them")
	flag.BoolVarP(&ratings, "ratings", "r", false, "Show the rating sticker of the current song")
	flag.BoolVar(&easter, "easter", false, "Show ratings on a different scale")
	flag.StringVar(&mode, "mode", "both", "Run both sides, or only the display or input side")
	flag.StringVar(&session, "session", "", "Session token shared by a separate display and input process")
	flag.StringVar(&logFile, "log-file", "", "Write logs to this file")
	flag.BoolVar(&debugFlag, "debug", false, "Log at debug level")
	flag.BoolVarP(&showVersion, "version", "V", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("mpd-display", version)
		return
	}

	// Check DEBUG environment variable
	debug := debugFlag || os.Getenv("DEBUG") == "1"

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Override with command line arguments
	if mpdHost != "" {
		cfg.MPD.Password, cfg.MPD.Host = config.ParseHost(mpdHost, cfg.MPD.Password)
	}
	if mpdPort > 0 {
		cfg.MPD.Port = mpdPort
	}
	if mpdTimeout > 0 {
		cfg.MPD.Timeout = mpdTimeout
	}
	if format != "" {
		cfg.Display.Format = config.ParseFormat(format)
	}
	if titleOnly {
		cfg.Display.Format = []string{"title"}
	}
	if verbose {
		cfg.Display.Verbose = true
	}
	if ratings {
		cfg.Display.Ratings = true
	}
	if easter {
		cfg.Display.Easter = true
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	runMode, err := player.ParseMode(mode)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if runMode != player.ModeDisplay && !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		log.Fatalf("❌ Keyboard input needs a terminal on stdin (use --mode display)")
	}
	if runMode != player.ModeBoth && session == "" {
		log.Fatalf("❌ --mode %s needs --session so both processes share channels", runMode)
	}
	if session != "" {
		if err := signal.ValidToken(session); err != nil {
			log.Fatalf("❌ Invalid --session: %v", err)
		}
	}

	logger, closeLog, err := logging.New(logging.Options{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Debug:  debug,
	})
	if err != nil {
		log.Fatalf("❌ Failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := player.Options{
		Mode:   runMode,
		Token:  session,
		Dialer: player.EndpointDialer{Endpoint: cfg.Endpoint(), Logger: logger.With("component", "mpd")},
		Display: display.Options{
			Format:  cfg.Display.Format,
			Verbose: cfg.Display.Verbose,
			Ratings: cfg.Display.Ratings,
			Easter:  cfg.Display.Easter,
		},
		Logger: logger,
	}
	if cfg.GNTP.Enabled {
		opts.GNTP = &notify.Config{
			Host:     cfg.GNTP.Host,
			Port:     cfg.GNTP.Port,
			IconMode: cfg.GNTP.IconMode,
		}
	}

	err = player.Run(ctx, opts)
	switch {
	case err == nil:
	case errors.Is(err, player.ErrDisconnected):
		logger.Error("session ended", "error", err)
		closeLog()
		fmt.Fprintln(os.Stderr, "mpd-display: disconnected from server.")
		os.Exit(1)
	default:
		closeLog()
		log.Fatalf("❌ %v", err)
	}
}
