package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"rtcview/internal/domain"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(nil, env(map[string]string{"RTCVIEW_SIGNAL_URL": "ws://localhost:8080/ws"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("expected 5s connect timeout, got %s", cfg.ConnectTimeout)
	}
	if cfg.RetryInterval != 100*time.Millisecond || cfg.MaxAttempts != 100 {
		t.Errorf("expected 100ms x 100 acquisition budget, got %s x %d", cfg.RetryInterval, cfg.MaxAttempts)
	}
	if cfg.VideoWidth != 1920 || cfg.VideoHeight != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.VideoWidth, cfg.VideoHeight)
	}
	if len(cfg.ICEServers) != 0 {
		t.Errorf("expected no ICE servers, got %v", cfg.ICEServers)
	}
}

func TestLoad_EnvAndFlags(t *testing.T) {
	vars := map[string]string{
		"RTCVIEW_SIGNAL_URL":      "ws://env/ws",
		"RTCVIEW_CONNECT_TIMEOUT": "2s",
		"RTCVIEW_MAX_ATTEMPTS":    "7",
		"RTCVIEW_ICE_SERVERS":     "stun:stun.l.google.com:19302, alice:secret@turn:turn.example.com:3478",
		"RTCVIEW_DEBUG":           "true",
	}
	cfg, err := load([]string{"--signal-url", "wss://flag/ws", "--max-attempts", "3"}, env(vars))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SignalURL != "wss://flag/ws" {
		t.Errorf("expected flag to override env, got %q", cfg.SignalURL)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected flag max attempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.ConnectTimeout != 2*time.Second {
		t.Errorf("expected env connect timeout 2s, got %s", cfg.ConnectTimeout)
	}
	if !cfg.Debug {
		t.Error("expected debug from env")
	}
	if cfg.Trace {
		t.Error("expected trace off by default")
	}

	want := []domain.ICEServer{
		{URL: "stun:stun.l.google.com:19302"},
		{URL: "turn:turn.example.com:3478", Username: "alice", Credential: "secret"},
	}
	if len(cfg.ICEServers) != len(want) {
		t.Fatalf("expected %d ICE servers, got %v", len(want), cfg.ICEServers)
	}
	for i := range want {
		if cfg.ICEServers[i] != want[i] {
			t.Errorf("ICE server %d: expected %+v, got %+v", i, want[i], cfg.ICEServers[i])
		}
	}
}

func TestLoad_ICEServerFlagReplacesEnv(t *testing.T) {
	vars := map[string]string{
		"RTCVIEW_SIGNAL_URL":  "ws://env/ws",
		"RTCVIEW_ICE_SERVERS": "stun:env",
	}
	cfg, err := load([]string{"--ice-server", "stun:a", "--ice-server", "stun:b"}, env(vars))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.ICEServers) != 2 || cfg.ICEServers[0].URL != "stun:a" || cfg.ICEServers[1].URL != "stun:b" {
		t.Errorf("expected flag ICE servers, got %v", cfg.ICEServers)
	}
}

func TestLoad_Trace(t *testing.T) {
	cfg, err := load([]string{"--trace"}, env(map[string]string{"RTCVIEW_SIGNAL_URL": "ws://x"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Trace {
		t.Error("expected trace from flag")
	}

	cfg, err = load(nil, env(map[string]string{"RTCVIEW_SIGNAL_URL": "ws://x", "RTCVIEW_TRACE": "1"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Trace {
		t.Error("expected trace from env")
	}
}

func TestLoad_RequiresSignalURL(t *testing.T) {
	_, err := load(nil, env(nil))
	if err == nil || !strings.Contains(err.Error(), "RTCVIEW_SIGNAL_URL") {
		t.Errorf("expected missing url error, got %v", err)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration": {"RTCVIEW_SIGNAL_URL": "ws://x", "RTCVIEW_RETRY_INTERVAL": "soon"},
		"bad number":   {"RTCVIEW_SIGNAL_URL": "ws://x", "RTCVIEW_MAX_ATTEMPTS": "many"},
		"zero budget":  {"RTCVIEW_SIGNAL_URL": "ws://x", "RTCVIEW_MAX_ATTEMPTS": "0"},
		"http scheme":  {"RTCVIEW_SIGNAL_URL": "http://x"},
		"slow tick":    {"RTCVIEW_SIGNAL_URL": "ws://x", "RTCVIEW_TICK_INTERVAL": "250ms"},
	}
	for name, vars := range tests {
		if _, err := load(nil, env(vars)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad_Help(t *testing.T) {
	_, err := load([]string{"--help"}, env(map[string]string{"RTCVIEW_SIGNAL_URL": "ws://x"}))
	if !errors.Is(err, ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
}
