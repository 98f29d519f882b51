package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

func TestLoggerFactory_ScopesLines(t *testing.T) {
	var buf bytes.Buffer
	saved := pterm.DefaultLogger
	defer func() { pterm.DefaultLogger = saved }()

	pterm.DefaultLogger.Writer = &buf
	pterm.DefaultLogger.Formatter = pterm.LogFormatterJSON
	pterm.DefaultLogger.Level = pterm.LogLevelInfo

	var factory logging.LoggerFactory = NewLoggerFactory()
	log := factory.NewLogger("signal")

	log.Infof("connected to %s", "ws://example")
	log.Debug("hidden at info level")

	out := buf.String()
	if !strings.Contains(out, "[signal] connected to ws://example") {
		t.Errorf("expected scoped info line, got %q", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("expected debug line to be filtered, got %q", out)
	}
}

func TestEnableTrace_ShowsTraceLines(t *testing.T) {
	var buf bytes.Buffer
	saved := pterm.DefaultLogger
	defer func() { pterm.DefaultLogger = saved }()

	pterm.DefaultLogger.Writer = &buf
	pterm.DefaultLogger.Formatter = pterm.LogFormatterJSON
	pterm.DefaultLogger.Level = pterm.LogLevelInfo

	log := NewLoggerFactory().NewLogger("ice")
	log.Trace("before")
	EnableTrace()
	log.Tracef("pair %d checked", 3)

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("expected trace filtered at info level, got %q", out)
	}
	if !strings.Contains(out, "[ice] pair 3 checked") {
		t.Errorf("expected trace line after EnableTrace, got %q", out)
	}
}
