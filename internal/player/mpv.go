package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// MPV drives a single long-lived mpv process over its JSON IPC socket.
// Swaps are loadfile replacements inside one process, so there is no
// second window to race against; the trade-off is depending on mpv staying
// healthy for the kiosk's whole lifetime.
type MPV struct {
	mu     sync.Mutex
	proc   *proc
	socket string
	bin    string
	reqID  atomic.Int64

	// The slot clip restored after a one-shot finishes.
	slotPath string
	slotOpts Options
}

const (
	mpvStartTimeout = 3 * time.Second
	mpvIPCTimeout   = 2 * time.Second
	eofPoll         = 250 * time.Millisecond
)

func NewMPV(bin, socket string) *MPV {
	if bin == "" {
		bin = "mpv"
	}
	if socket == "" {
		socket = "/tmp/voicebox-mpv.sock"
	}
	return &MPV{bin: bin, socket: socket}
}

func (m *MPV) start() error {
	if m.proc != nil && m.proc.alive() {
		return nil
	}
	os.Remove(m.socket)

	cmd := exec.Command(m.bin,
		"--idle=yes",
		"--force-window=yes",
		"--fullscreen",
		"--ontop",
		"--no-border",
		"--no-osc",
		"--no-input-default-bindings",
		"--really-quiet",
		"--input-ipc-server="+m.socket,
	)
	p, err := startProc(cmd)
	if err != nil {
		return fmt.Errorf("spawn mpv: %w", err)
	}

	// Readiness is the socket accepting connections, not a fixed sleep.
	deadline := time.Now().Add(mpvStartTimeout)
	for {
		conn, err := net.Dial("unix", m.socket)
		if err == nil {
			conn.Close()
			m.proc = p
			return nil
		}
		if !p.alive() {
			return fmt.Errorf("mpv exited during startup")
		}
		if time.Now().After(deadline) {
			p.terminate(swapGrace)
			return fmt.Errorf("mpv ipc socket never came up")
		}
		time.Sleep(settlePoll)
	}
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type mpvReply struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int             `json:"request_id"`
	Event     string          `json:"event"`
}

// command sends one IPC command and waits for its reply, skipping over
// interleaved playback events on the socket.
func (m *MPV) command(args ...any) (json.RawMessage, error) {
	conn, err := net.Dial("unix", m.socket)
	if err != nil {
		return nil, fmt.Errorf("dial mpv: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(mpvIPCTimeout))

	req := mpvRequest{Command: args, RequestID: int(m.reqID.Add(1))}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write mpv command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var rep mpvReply
		if err := json.Unmarshal(scanner.Bytes(), &rep); err != nil {
			continue
		}
		if rep.Event != "" || rep.RequestID != req.RequestID {
			continue
		}
		if rep.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", rep.Error)
		}
		return rep.Data, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mpv reply: %w", err)
	}
	return nil, fmt.Errorf("mpv closed the connection")
}

func (m *MPV) load(path string, o Options) error {
	if _, err := m.command("loadfile", path, "replace"); err != nil {
		return err
	}
	loop := "no"
	if o.Loop {
		loop = "inf"
	}
	if _, err := m.command("set_property", "loop-file", loop); err != nil {
		return err
	}
	_, err := m.command("set_property", "mute", !o.Audible)
	return err
}

func (m *MPV) Play(path string, o Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.start(); err != nil {
		return err
	}
	if err := m.load(path, o); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	m.slotPath = path
	m.slotOpts = o
	slog.Debug("playing", "path", path, "loop", o.Loop, "audible", o.Audible)
	return nil
}

// PlayOnce interrupts the slot clip, polls for end-of-file, then restores
// the slot. mpv keeps rendering throughout, so no blank frame appears at
// either edge.
func (m *MPV) PlayOnce(ctx context.Context, path string, o Options) error {
	m.mu.Lock()
	if err := m.start(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.load(path, Options{Audible: o.Audible}); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("play %s: %w", path, err)
	}
	slotPath, slotOpts := m.slotPath, m.slotOpts
	m.mu.Unlock()

	err := m.waitEOF(ctx)

	if slotPath != "" {
		m.mu.Lock()
		if rerr := m.load(slotPath, slotOpts); rerr != nil {
			slog.Error("failed to restore slot clip", "path", slotPath, "err", rerr)
		}
		m.mu.Unlock()
	}
	return err
}

func (m *MPV) waitEOF(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(eofPoll):
		}
		data, err := m.command("get_property", "eof-reached")
		if err != nil {
			return err
		}
		var eof bool
		if err := json.Unmarshal(data, &eof); err == nil && eof {
			return nil
		}
	}
}

func (m *MPV) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil {
		// Ask mpv to quit over IPC first; fall back to signals.
		_, _ = m.command("quit")
		m.proc.terminate(stopGrace)
		m.proc = nil
	}
	os.Remove(m.socket)
	m.slotPath = ""
}

func (m *MPV) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil && m.proc.alive()
}
