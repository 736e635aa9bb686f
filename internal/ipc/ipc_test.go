package ipc

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerRoundTrip(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")

	srv, err := StartServer(socket, func(req Request) Response {
		switch req.Cmd {
		case "status":
			return Response{OK: true, Phase: "listening", Commands: []string{"coffee"}}
		default:
			return Response{Error: "unknown command: " + req.Cmd}
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	resp, err := Send(socket, "status")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "listening", resp.Phase)
	assert.Equal(t, []string{"coffee"}, resp.Commands)

	resp, err = Send(socket, "bogus")
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "bogus")
}

func TestServerSurvivesGarbage(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")

	srv, err := StartServer(socket, func(req Request) Response {
		return Response{OK: true}
	})
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	_, _ = conn.Write([]byte("this is not json\n"))
	conn.Close()

	// The server must still answer well-formed requests afterwards.
	resp, err := Send(socket, "status")
	require.NoError(t, err)
	assert.True(t, resp.OK)
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "missing.sock"), "status")
	assert.Error(t, err)
}
