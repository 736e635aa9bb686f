// Package listen runs the recognition consumer: a bounded FIFO of audio
// frames feeding a streaming recognizer, with matches handed to the kiosk
// arbiter.
package listen

import (
	"context"
	"log/slog"

	"voicebox/internal/registry"
	"voicebox/pkg/stt"
)

// Gate is the slice of the kiosk state machine the loop needs.
type Gate interface {
	Listening() bool
	BeginDispatch() bool
	EnterListening() bool
}

// Match is a recognized command resolved against the registry snapshot
// that was live at match time.
type Match struct {
	Command string
	Path    string
	Text    string
}

type Config struct {
	QueueSize int
	Matching  MatchOptions
}

type Loop struct {
	reg  *registry.Registry
	rec  stt.Recognizer
	gate Gate
	cfg  Config

	frames  chan []byte
	matches chan Match
}

func NewLoop(reg *registry.Registry, rec stt.Recognizer, gate Gate, cfg Config) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	return &Loop{
		reg:     reg,
		rec:     rec,
		gate:    gate,
		cfg:     cfg,
		frames:  make(chan []byte, cfg.QueueSize),
		matches: make(chan Match, 1),
	}
}

// Push is the producer side. Frames arriving outside the listening phase
// are dropped here, not at the consumer, so the queue cannot grow while a
// command clip plays. A full queue also drops: stale audio is worthless.
func (l *Loop) Push(frame []byte) {
	if !l.gate.Listening() {
		return
	}
	select {
	case l.frames <- frame:
	default:
		slog.Debug("audio queue full, dropping frame")
	}
}

func (l *Loop) Matches() <-chan Match { return l.matches }

// Run consumes frames in capture order until ctx is cancelled. Recognizer
// errors are logged and the loop continues; only cancellation stops it.
func (l *Loop) Run(ctx context.Context) {
	for {
		var frame []byte
		select {
		case <-ctx.Done():
			return
		case frame = <-l.frames:
		}

		res, ok, err := l.rec.Accept(frame)
		if err != nil {
			slog.Error("recognition failed", "err", err)
			continue
		}
		if !ok {
			continue
		}

		// A result produced while we are no longer listening is stale
		// audio from before a transition; it must not trigger anything.
		if !l.gate.Listening() {
			continue
		}

		if res.Final {
			slog.Info("recognized", "text", res.Text)
		} else {
			slog.Debug("partial", "text", res.Text)
		}

		// Partials are matched too: latency beats precision here.
		cmd, found := MatchCommand(res.Text, l.reg.Commands(), l.cfg.Matching)
		if !found {
			continue
		}
		if !l.gate.BeginDispatch() {
			continue
		}

		l.purge()
		l.rec.Reset()

		path, ok := l.reg.Lookup(cmd)
		if !ok {
			// A rescan evicted the command between match and lookup.
			// Degraded-continuable: stay on the idle loop.
			slog.Warn("matched command vanished from registry", "command", cmd)
			l.Resume()
			continue
		}

		slog.Info("command matched", "command", cmd, "text", res.Text)
		l.matches <- Match{Command: cmd, Path: path, Text: res.Text}
	}
}

// Resume purges whatever leaked in around the transition edges and
// re-opens the gate. Called by the arbiter after clip completion.
func (l *Loop) Resume() {
	l.purge()
	l.rec.Reset()
	l.gate.EnterListening()
}

func (l *Loop) purge() {
	for {
		select {
		case <-l.frames:
		default:
			return
		}
	}
}

// Pending reports buffered frame count; test hook.
func (l *Loop) Pending() int { return len(l.frames) }
