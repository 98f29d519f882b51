package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rtcview/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// ErrHelp is returned by Load when -h or --help was given.
var ErrHelp = pflag.ErrHelp

// Config holds the application configuration.
type Config struct {
	SignalURL      string
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
	MaxAttempts    int
	VideoWidth     int
	VideoHeight    int
	TickInterval   time.Duration
	PingInterval   time.Duration
	ICEServers     []domain.ICEServer
	Debug          bool
	Trace          bool
	ShowStatus     bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		RetryInterval:  100 * time.Millisecond,
		MaxAttempts:    100,
		VideoWidth:     1920,
		VideoHeight:    1080,
		TickInterval:   16 * time.Millisecond,
		PingInterval:   20 * time.Second,
	}
}

// Load reads configuration from a .env file (if present), environment
// variables and then args. Environment variables take precedence over .env
// values; flags take precedence over both.
func Load(args []string) (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if err := fromEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	var iceURLs []string
	for _, s := range cfg.ICEServers {
		iceURLs = append(iceURLs, s.URL)
	}

	fs := pflag.NewFlagSet("rtcview", pflag.ContinueOnError)
	fs.Usage = func() {}
	fs.StringVar(&cfg.SignalURL, "signal-url", cfg.SignalURL, "signaling WebSocket URL")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "signaling connect timeout")
	fs.DurationVar(&cfg.RetryInterval, "retry-interval", cfg.RetryInterval, "frame source poll interval")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "frame source poll attempts")
	fs.IntVar(&cfg.VideoWidth, "width", cfg.VideoWidth, "target frame width hint")
	fs.IntVar(&cfg.VideoHeight, "height", cfg.VideoHeight, "target frame height hint")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "scheduler tick interval")
	fs.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "WebSocket keepalive interval (0 disables)")
	fs.StringArrayVar(&iceURLs, "ice-server", iceURLs, "STUN/TURN server URL (repeatable)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.BoolVar(&cfg.Trace, "trace", cfg.Trace, "enable trace logging, including pion internals")
	fs.BoolVar(&cfg.ShowStatus, "status", cfg.ShowStatus, "log a status line periodically")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.Changed("ice-server") {
		cfg.ICEServers = parseICEServers(iceURLs)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fromEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("RTCVIEW_SIGNAL_URL", &cfg.SignalURL)
	dur("RTCVIEW_CONNECT_TIMEOUT", &cfg.ConnectTimeout)
	dur("RTCVIEW_RETRY_INTERVAL", &cfg.RetryInterval)
	num("RTCVIEW_MAX_ATTEMPTS", &cfg.MaxAttempts)
	num("RTCVIEW_VIDEO_WIDTH", &cfg.VideoWidth)
	num("RTCVIEW_VIDEO_HEIGHT", &cfg.VideoHeight)
	dur("RTCVIEW_TICK_INTERVAL", &cfg.TickInterval)
	dur("RTCVIEW_PING_INTERVAL", &cfg.PingInterval)
	flag("RTCVIEW_DEBUG", &cfg.Debug)
	flag("RTCVIEW_TRACE", &cfg.Trace)
	flag("RTCVIEW_SHOW_STATUS", &cfg.ShowStatus)

	if v, ok := lookup("RTCVIEW_ICE_SERVERS"); ok && v != "" {
		cfg.ICEServers = parseICEServers(strings.Split(v, ","))
	}

	return errors.Join(errs...)
}

// parseICEServers accepts plain URLs or user:credential@url entries.
func parseICEServers(entries []string) []domain.ICEServer {
	var servers []domain.ICEServer
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		srv := domain.ICEServer{URL: e}
		if creds, url, ok := strings.Cut(e, "@"); ok {
			user, pass, _ := strings.Cut(creds, ":")
			srv = domain.ICEServer{URL: url, Username: user, Credential: pass}
		}
		servers = append(servers, srv)
	}
	return servers
}

func (c *Config) validate() error {
	if c.SignalURL == "" {
		return fmt.Errorf("RTCVIEW_SIGNAL_URL environment variable or --signal-url is required")
	}
	if !strings.HasPrefix(c.SignalURL, "ws://") && !strings.HasPrefix(c.SignalURL, "wss://") {
		return fmt.Errorf("signal url %q: scheme must be ws or wss", c.SignalURL)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive, got %s", c.RetryInterval)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.TickInterval > c.RetryInterval {
		return fmt.Errorf("tick interval %s must not exceed retry interval %s", c.TickInterval, c.RetryInterval)
	}
	if c.VideoWidth <= 0 || c.VideoHeight <= 0 {
		return fmt.Errorf("video size must be positive, got %dx%d", c.VideoWidth, c.VideoHeight)
	}
	return nil
}
