// Package ipc is the control socket used by parle-ctl to drive a running
// parle-daemon.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
)

const DefaultSocketPath = "/tmp/parle.sock"

// Control commands.
const (
	CmdListen     = "listen"
	CmdSay        = "say"
	CmdOpen       = "open"
	CmdTranscribe = "transcribe"
	CmdQuit       = "quit"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler acts on a control message. A returned error is sent back to the
// client.
type Handler func(ControlMessage) error

type Server struct {
	ln   net.Listener
	path string
	wg   sync.WaitGroup
}

// StartServer listens on the unix socket at path, replacing a stale one.
func StartServer(path string, handler Handler) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{ln: ln, path: path}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	log.Info("Control socket ready", "path", path)

	return s, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd, "text", msg.Text)

	reply := Reply{OK: true}
	if err := handler(msg); err != nil {
		reply = Reply{Error: err.Error()}
	}

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Failed to answer control message", "err", err)
	}
}

// SendCommand delivers msg to the daemon at path and returns its reply.
func SendCommand(path string, msg ControlMessage) (Reply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	return reply, nil
}
