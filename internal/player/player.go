// Package player owns the external video-playback process. The core rule
// is start-before-stop: during a swap the incoming process must be
// confirmed on-screen before the outgoing one is torn down, so the screen
// never shows a blank frame. The cost is a brief double-render.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

type Options struct {
	Loop    bool
	Audible bool
	Topmost bool
}

// Player is what the kiosk arbiter drives. Play swaps the persistent slot
// (the idle loop); PlayOnce blocks on a transient clip and guarantees the
// slot's content is visible again when it returns; Stop tears everything
// down and is idempotent.
type Player interface {
	Play(path string, o Options) error
	PlayOnce(ctx context.Context, path string, o Options) error
	Stop()
	Alive() bool
}

const (
	settleWindow = 150 * time.Millisecond
	settlePoll   = 25 * time.Millisecond
	swapGrace    = 500 * time.Millisecond
	stopGrace    = time.Second
)

// proc couples a started command with its reaper so liveness checks never
// hit an unreaped zombie.
type proc struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func startProc(cmd *exec.Cmd) (*proc, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &proc{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *proc) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// terminate asks politely, waits out the grace period, then kills.
func (p *proc) terminate(grace time.Duration) {
	if !p.alive() {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(grace):
		slog.Warn("player did not exit gracefully, killing", "pid", p.cmd.Process.Pid)
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

// Controller is the VLC subprocess backend: one owned slot process plus
// transient one-shots that are waited to completion and never stored.
type Controller struct {
	mu      sync.Mutex
	current *proc

	bin       string
	sweepName string

	// newCommand builds the playback command; tests substitute it.
	newCommand func(path string, o Options) *exec.Cmd
}

func NewController(bin string) *Controller {
	if bin == "" {
		bin = "cvlc"
	}
	c := &Controller{bin: bin, sweepName: "vlc"}
	c.newCommand = func(path string, o Options) *exec.Cmd {
		cmd := exec.Command(c.bin, buildArgs(path, o)...)
		cmd.Stdout = nil
		cmd.Stderr = nil
		return cmd
	}
	return c
}

func buildArgs(path string, o Options) []string {
	args := []string{
		"--intf", "dummy",
		"--no-video-title-show",
		"--fullscreen",
		"--no-osd",
		"--no-video-deco",
	}
	if o.Topmost {
		args = append(args, "--video-on-top")
	}
	if !o.Audible {
		args = append(args, "--no-audio")
	}
	if o.Loop {
		args = append(args, "--loop")
	} else {
		args = append(args, "--play-and-exit")
	}
	return append(args, path)
}

// Play swaps the slot: spawn the new process, confirm it survives the
// settle window, only then terminate the previous one. A clip that dies
// while settling fails the swap and the old clip stays up.
func (c *Controller) Play(path string, o Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := startProc(c.newCommand(path, o))
	if err != nil {
		return fmt.Errorf("spawn player: %w", err)
	}

	if err := confirm(next); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}

	if c.current != nil {
		c.current.terminate(swapGrace)
	}
	c.current = next
	slog.Debug("playing", "path", path, "loop", o.Loop, "audible", o.Audible)
	return nil
}

// confirm polls liveness across the settle window instead of sleeping
// blind, so an immediately-crashing process is caught before the old clip
// is torn down.
func confirm(p *proc) error {
	deadline := time.Now().Add(settleWindow)
	for {
		if !p.alive() {
			return fmt.Errorf("player exited during startup")
		}
		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-p.done:
		case <-time.After(settlePoll):
		}
	}
}

// PlayOnce runs a transient clip to completion. It does not touch the
// slot, so whatever the slot is rendering is exposed again the moment the
// one-shot exits. The unbounded wait happens outside the slot mutex.
func (c *Controller) PlayOnce(ctx context.Context, path string, o Options) error {
	o.Loop = false
	p, err := startProc(c.newCommand(path, o))
	if err != nil {
		return fmt.Errorf("spawn player: %w", err)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.terminate(swapGrace)
		return ctx.Err()
	}
}

// Stop tears down the slot process and sweeps for orphans left by
// abnormal exits. Calling it with nothing playing is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.current != nil {
		c.current.terminate(stopGrace)
		c.current = nil
	}
	c.mu.Unlock()

	if c.sweepName != "" {
		_ = exec.Command("pkill", "-f", c.sweepName).Run()
	}
}

func (c *Controller) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.alive()
}
