package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMPV answers the JSON IPC protocol on a unix socket and records
// every command it receives.
type fakeMPV struct {
	ln  net.Listener
	mu  sync.Mutex
	got [][]any
	eof bool
}

func startFakeMPV(t *testing.T) (*fakeMPV, string) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	f := &fakeMPV{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f, socket
}

func (f *fakeMPV) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req mpvRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		f.mu.Lock()
		f.got = append(f.got, req.Command)
		eof := f.eof
		f.mu.Unlock()

		// Interleave a playback event first; clients must skip it.
		fmt.Fprintf(conn, `{"event":"playback-restart"}`+"\n")

		data := "null"
		if len(req.Command) > 0 && req.Command[0] == "get_property" {
			data = fmt.Sprintf("%v", eof)
		}
		fmt.Fprintf(conn, `{"error":"success","data":%s,"request_id":%d}`+"\n", data, req.RequestID)
	}
}

func (f *fakeMPV) commands() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.got...)
}

func (f *fakeMPV) setEOF(v bool) {
	f.mu.Lock()
	f.eof = v
	f.mu.Unlock()
}

// started returns an MPV handle that believes its process is already up,
// so tests exercise only the IPC protocol.
func started(socket string) *MPV {
	m := NewMPV("mpv", socket)
	m.proc = &proc{done: make(chan struct{})}
	return m
}

func TestMPVPlaySendsLoadAndLoop(t *testing.T) {
	fake, socket := startFakeMPV(t)
	m := started(socket)

	require.NoError(t, m.Play("/videos/listening.mp4", Options{Loop: true}))

	got := fake.commands()
	require.Len(t, got, 3)
	assert.Equal(t, []any{"loadfile", "/videos/listening.mp4", "replace"}, got[0])
	assert.Equal(t, []any{"set_property", "loop-file", "inf"}, got[1])
	assert.Equal(t, []any{"set_property", "mute", true}, got[2])
	assert.True(t, m.Alive())
}

func TestMPVPlayOnceRestoresSlot(t *testing.T) {
	fake, socket := startFakeMPV(t)
	m := started(socket)

	require.NoError(t, m.Play("/videos/listening.mp4", Options{Loop: true}))
	fake.setEOF(true)

	require.NoError(t, m.PlayOnce(context.Background(), "/videos/coffee.mp4", Options{Audible: true}))

	var loads [][]any
	for _, cmd := range fake.commands() {
		if len(cmd) > 0 && cmd[0] == "loadfile" {
			loads = append(loads, cmd)
		}
	}
	require.Len(t, loads, 3)
	assert.Equal(t, "/videos/coffee.mp4", loads[1][1])
	assert.Equal(t, "/videos/listening.mp4", loads[2][1], "slot clip must be restored after the one-shot")
}

func TestMPVPlayOnceCancellation(t *testing.T) {
	_, socket := startFakeMPV(t)
	m := started(socket)

	require.NoError(t, m.Play("/videos/listening.mp4", Options{Loop: true}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.PlayOnce(ctx, "/videos/coffee.mp4", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMPVCommandError(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				for scanner.Scan() {
					var req mpvRequest
					_ = json.Unmarshal(scanner.Bytes(), &req)
					fmt.Fprintf(c, `{"error":"invalid parameter","request_id":%d}`+"\n", req.RequestID)
				}
			}(conn)
		}
	}()

	m := started(socket)
	err = m.Play("/videos/listening.mp4", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid parameter")
}
