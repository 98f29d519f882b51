package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"rtcview/internal/config"
	"rtcview/internal/display"
	sigclient "rtcview/internal/signal"
	"rtcview/internal/util"
	"rtcview/internal/viewer"
	"rtcview/internal/webrtc"

	"github.com/pterm/pterm"
)

const helpText = `rtcview - Receive an H264 video track over WebRTC

Usage:
  rtcview [options]

Connects to a WebSocket signaling endpoint, offers a receive-only video
session and writes the received H264 stream to stdout. Pipe to ffplay or
ffmpeg for playback or recording. Logs go to stderr.

Environment Variables (a .env file is read if present):
  RTCVIEW_SIGNAL_URL       Signaling endpoint, ws:// or wss:// (required)
  RTCVIEW_CONNECT_TIMEOUT  Channel open timeout (default 5s)
  RTCVIEW_RETRY_INTERVAL   Frame source poll interval (default 100ms)
  RTCVIEW_MAX_ATTEMPTS     Frame source poll attempts (default 100)
  RTCVIEW_VIDEO_WIDTH      Target frame width hint (default 1920)
  RTCVIEW_VIDEO_HEIGHT     Target frame height hint (default 1080)
  RTCVIEW_TICK_INTERVAL    Scheduler tick (default 16ms)
  RTCVIEW_PING_INTERVAL    WebSocket keepalive, 0 disables (default 20s)
  RTCVIEW_ICE_SERVERS      Comma separated STUN/TURN URLs, user:pass@url for credentials
  RTCVIEW_DEBUG            Enable debug logging
  RTCVIEW_TRACE            Enable trace logging, including pion internals
  RTCVIEW_SHOW_STATUS      Log a status line every second

Examples:
  # Live playback
  rtcview --signal-url ws://localhost:8080/ws | ffplay -f h264 -

  # Record to MP4
  rtcview | ffmpeg -f h264 -i - -c copy output.mp4

Options:
      --signal-url string         Signaling endpoint
      --connect-timeout duration  Channel open timeout
      --retry-interval duration   Frame source poll interval
      --max-attempts int          Frame source poll attempts
      --width int                 Target frame width hint
      --height int                Target frame height hint
      --tick duration             Scheduler tick
      --ping-interval duration    WebSocket keepalive
      --ice-server string         STUN/TURN server URL (repeatable)
      --debug                     Enable debug logging
      --trace                     Enable trace logging, including pion internals
      --status                    Log a status line every second
  -h, --help                      Show this help message
`

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		fmt.Print(helpText)
		os.Exit(0)
	}
	if err != nil {
		pterm.DefaultLogger.Fatal(fmt.Sprintf("[main] %v", err))
	}

	switch {
	case cfg.Trace:
		util.EnableTrace()
	case cfg.Debug:
		util.EnableDebug()
	}
	lf := util.NewLoggerFactory()
	log := lf.NewLogger("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received %s, shutting down", sig)
		cancel()
	}()

	peer, err := webrtc.NewPeer(webrtc.Options{
		ICEServers:    cfg.ICEServers,
		Width:         cfg.VideoWidth,
		Height:        cfg.VideoHeight,
		LoggerFactory: lf,
	})
	if err != nil {
		log.Errorf("create peer: %v", err)
		os.Exit(1)
	}

	sc := sigclient.NewClient(sigclient.Options{
		PingInterval:  cfg.PingInterval,
		LoggerFactory: lf,
	})

	// H264 Annex-B goes to stdout
	out := display.NewWriter(os.Stdout, lf)

	v := viewer.New(sc, peer, out, viewer.Options{
		URL:            cfg.SignalURL,
		ConnectTimeout: cfg.ConnectTimeout,
		RetryInterval:  cfg.RetryInterval,
		MaxAttempts:    cfg.MaxAttempts,
		TickInterval:   cfg.TickInterval,
		Width:          cfg.VideoWidth,
		Height:         cfg.VideoHeight,
		LoggerFactory:  lf,
	})

	if cfg.ShowStatus {
		util.StartStatusReporter(ctx, time.Second, func() string {
			return fmt.Sprintf("%s frames=%d", v.Status(), out.Frames())
		})
	}

	runErr := v.Run(ctx)

	if err := peer.Close(); err != nil {
		log.Warnf("close peer: %v", err)
	}
	out.Close()

	if runErr != nil {
		log.Errorf("session failed: %v", runErr)
		os.Exit(1)
	}
	log.Infof("done")
}
