// Package ipc is the daemon's control surface: one JSON request and one
// JSON response per connection on a local unix socket.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const DefaultSocket = "/tmp/voicebox.sock"

type Request struct {
	Cmd string `json:"cmd"`
}

type Response struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Phase    string   `json:"phase,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

type Server struct {
	ln net.Listener
}

// StartServer listens on socket and serves each connection in its own
// goroutine. The handler runs on the connection goroutine; keep it quick.
func StartServer(socket string, handler func(Request) Response) (*Server, error) {
	os.Remove(socket)

	ln, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln}, nil
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func handleConn(conn net.Conn, handler func(Request) Response) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}
	_ = json.NewEncoder(conn).Encode(handler(req))
}

// Send issues one command to a running daemon and returns its reply.
func Send(socket, cmd string) (Response, error) {
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(Request{Cmd: cmd}); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
