// Package rtsp implements the optional live annotated re-broadcast sink:
// the start/push/restart/stop contract from spec.md §4.7, a concrete
// ffmpeg-subprocess pusher, and the bounded-recovery health window the
// engine orchestrator relies on so a flaky re-broadcast never blocks
// detection and analytics.
package rtsp

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"gocv.io/x/gocv"
)

// Pusher is the interface boundary an RTSP re-encoder implementation
// satisfies. The concrete encoder (ffmpeg, gstreamer, a vendor SDK) is an
// external collaborator; only this contract is specified.
type Pusher interface {
	// Start opens the output pipe/connection. Returns false on failure.
	Start() bool
	// Push writes one annotated frame. Returns false on backpressure or a
	// broken pipe; the caller never blocks waiting for this to succeed.
	Push(frame gocv.Mat) bool
	// Restart tears down and reopens the pipe/connection.
	Restart() bool
	// Stop releases all resources. Idempotent.
	Stop()
}

// FFmpegPusher re-broadcasts frames to an RTSP URL by piping raw BGR
// frames into an ffmpeg subprocess, grounded on
// original_source/yoi/stream/rtsp_pusher.py's ffmpeg subprocess approach.
type FFmpegPusher struct {
	url           string
	width, height int
	fps           float64

	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewFFmpegPusher returns a pusher that will re-encode width x height BGR
// frames at fps into an H.264 RTSP stream at url.
func NewFFmpegPusher(url string, width, height int, fps float64) *FFmpegPusher {
	return &FFmpegPusher{url: url, width: width, height: height, fps: fps}
}

// Start implements Pusher.
func (p *FFmpegPusher) Start() bool {
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", p.width, p.height),
		"-r", fmt.Sprintf("%g", p.fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-f", "rtsp",
		p.url,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return false
	}
	if err := cmd.Start(); err != nil {
		return false
	}
	p.cmd = cmd
	p.stdin = stdin
	return true
}

// Push implements Pusher. A write failure (broken pipe) is reported, never
// panicked on.
func (p *FFmpegPusher) Push(frame gocv.Mat) bool {
	if p.stdin == nil {
		return false
	}
	buf := frame.ToBytes()
	if len(buf) == 0 {
		return false
	}
	_, err := p.stdin.Write(buf)
	return err == nil
}

// Restart implements Pusher.
func (p *FFmpegPusher) Restart() bool {
	p.Stop()
	return p.Start()
}

// Stop implements Pusher. Safe to call multiple times.
func (p *FFmpegPusher) Stop() {
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}
	if p.cmd != nil {
		p.cmd.Wait()
		p.cmd = nil
	}
}

// HealthConfig holds the bounded-recovery tunables from spec.md §4.7 /
// §6's environment knobs.
type HealthConfig struct {
	RecoverCooldownSeconds float64
	DropWarnSeconds        float64
}

// DefaultHealthConfig mirrors the source's defaults.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{RecoverCooldownSeconds: 10, DropWarnSeconds: 30}
}

// Broadcaster wraps a Pusher with the health window the orchestrator
// maintains: first-failure timestamp, a one-shot drop warning, cumulative
// success/fail/recover counters, and a cooldown-gated restart attempt on
// every failed push.
type Broadcaster struct {
	pusher Pusher
	cfg    HealthConfig
	logger *slog.Logger

	failing       bool
	firstFailTime time.Time
	lastRestart   time.Time
	dropWarned    bool

	successCount int
	failCount    int
	recoverCount int
}

// NewBroadcaster returns a Broadcaster driving pusher under cfg. logger may
// be nil, in which case a discarding logger is used.
func NewBroadcaster(pusher Pusher, cfg HealthConfig, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{pusher: pusher, cfg: cfg, logger: logger}
}

// Start opens the underlying pusher. A false return degrades to "no
// re-broadcast" with a warning per spec.md §7's initialization-error
// policy; it is never treated as fatal.
func (b *Broadcaster) Start() bool {
	ok := b.pusher.Start()
	if !ok {
		b.logger.Warn("rtsp broadcaster failed to start; continuing without re-broadcast")
	}
	return ok
}

// Stop releases the underlying pusher.
func (b *Broadcaster) Stop() { b.pusher.Stop() }

// Push attempts to send frame, updating the health window and, on failure,
// attempting at most one bounded-cooldown restart. now is passed in by the
// caller (the engine's per-frame clock) rather than read via time.Now here,
// keeping the health-window transition logic itself deterministic and
// testable.
func (b *Broadcaster) Push(frame gocv.Mat, now time.Time) bool {
	if b.pusher.Push(frame) {
		if b.failing {
			b.logger.Warn("rtsp re-broadcast recovered", "downtime_seconds", now.Sub(b.firstFailTime).Seconds())
			b.recoverCount++
		}
		b.failing = false
		b.dropWarned = false
		b.successCount++
		return true
	}

	b.failCount++
	if !b.failing {
		b.failing = true
		b.firstFailTime = now
	}

	if !b.dropWarned && now.Sub(b.firstFailTime).Seconds() > b.cfg.DropWarnSeconds {
		b.logger.Warn("rtsp re-broadcast down", "downtime_seconds", now.Sub(b.firstFailTime).Seconds())
		b.dropWarned = true
	}

	if now.Sub(b.lastRestart).Seconds() >= b.cfg.RecoverCooldownSeconds {
		b.lastRestart = now
		b.pusher.Restart()
	}

	return false
}

// Stats reports the cumulative success/fail/recover counters.
func (b *Broadcaster) Stats() (success, fail, recover int) {
	return b.successCount, b.failCount, b.recoverCount
}
