// Package kiosk is the top-level arbiter: it sequences startup, gates the
// recognition loop through the phase machine, and swaps clips through the
// playback controller.
package kiosk

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"voicebox/internal/config"
	"voicebox/internal/ipc"
	"voicebox/internal/listen"
	"voicebox/internal/media"
	"voicebox/internal/notify"
	"voicebox/internal/player"
	"voicebox/internal/registry"
)

// shutdownGrace bounds how long teardown may take to join background
// work before the process exits anyway.
const shutdownGrace = 3 * time.Second

type Kiosk struct {
	cfg  config.Config
	gate *Gate
	reg  *registry.Registry
	mon  *media.Monitor
	play player.Player
	loop *listen.Loop

	// Seams for tests; production wiring fills these in New.
	runCapture func(ctx context.Context) error
	chime      func(path string) error

	quitOnce sync.Once
	quit     chan struct{}
}

func New(cfg config.Config, gate *Gate, reg *registry.Registry, mon *media.Monitor,
	play player.Player, loop *listen.Loop) *Kiosk {
	return &Kiosk{
		cfg:   cfg,
		gate:  gate,
		reg:   reg,
		mon:   mon,
		play:  play,
		loop:  loop,
		chime: notify.Chime,
		quit:  make(chan struct{}),
	}
}

// SetCapture installs the audio producer run function.
func (k *Kiosk) SetCapture(run func(ctx context.Context) error) {
	k.runCapture = run
}

// Run drives the whole kiosk until ctx is cancelled or Quit is called.
//
// Startup order matters: the registry must be populated before
// recognition starts, and the idle loop must be confirmed on screen
// before the welcome clip plays on top of it.
func (k *Kiosk) Run(ctx context.Context) error {
	k.reg.AddSystemEntries(k.cfg.SystemManifest())
	k.mon.ForceRescan()
	slog.Info("registry ready", "commands", k.reg.Len())

	if _, err := os.Stat(k.cfg.IdlePath()); err != nil {
		slog.Warn("idle loop clip missing", "path", k.cfg.IdlePath())
	} else if err := k.play.Play(k.cfg.IdlePath(), player.Options{Loop: true}); err != nil {
		slog.Error("failed to start idle loop", "err", err)
	}

	if _, err := os.Stat(k.cfg.WelcomePath()); err == nil {
		slog.Info("playing welcome clip")
		if err := k.play.PlayOnce(ctx, k.cfg.WelcomePath(), player.Options{Topmost: true}); err != nil &&
			!errors.Is(err, context.Canceled) {
			slog.Error("welcome clip failed", "err", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		k.mon.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		k.loop.Run(runCtx)
	}()

	if k.runCapture != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := k.runCapture(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("audio capture stopped", "err", err)
				cancel()
			}
		}()
	}

	k.gate.EnterListening()
	slog.Info("listening for commands")

	for {
		select {
		case <-runCtx.Done():
			return k.shutdown(&wg)
		case <-k.quit:
			cancel()
			return k.shutdown(&wg)
		case m := <-k.loop.Matches():
			k.dispatch(runCtx, m)
		}
	}
}

// dispatch plays one command clip to completion and returns the kiosk to
// listening. Every failure short of cancellation stays on the idle loop.
func (k *Kiosk) dispatch(ctx context.Context, m listen.Match) {
	defer k.loop.Resume()

	if k.cfg.ChimePath != "" && k.chime != nil {
		if err := k.chime(k.cfg.ChimePath); err != nil {
			slog.Warn("chime failed", "err", err)
		}
	}

	if _, err := os.Stat(m.Path); err != nil {
		slog.Warn("clip missing, staying on idle loop", "command", m.Command, "path", m.Path)
		return
	}

	slog.Info("playing command clip", "command", m.Command, "path", m.Path)
	if err := k.play.PlayOnce(ctx, m.Path, player.Options{Audible: true, Topmost: true}); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Error("command clip failed", "command", m.Command, "err", err)
	}
}

func (k *Kiosk) shutdown(wg *sync.WaitGroup) error {
	slog.Info("shutting down")
	k.play.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		slog.Warn("background work did not stop within grace period")
	}
	return nil
}

// Quit requests a shutdown from outside the run loop (control socket).
func (k *Kiosk) Quit() {
	k.quitOnce.Do(func() { close(k.quit) })
}

// HandleControl serves the daemon's unix control socket.
func (k *Kiosk) HandleControl(req ipc.Request) ipc.Response {
	switch req.Cmd {
	case "status":
		return ipc.Response{OK: true, Phase: k.gate.Phase().String(), Commands: k.reg.Commands()}
	case "rescan":
		k.mon.ForceRescan()
		return ipc.Response{OK: true, Commands: k.reg.Commands()}
	case "stop":
		k.Quit()
		return ipc.Response{OK: true}
	default:
		return ipc.Response{Error: "unknown command: " + req.Cmd}
	}
}
