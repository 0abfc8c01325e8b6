// Package ipc is the unix-socket control channel between aide-ctl and the
// daemon. One JSON request per connection, one JSON response back.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// DefaultSocketPath is where the daemon listens unless configured.
const DefaultSocketPath = "/tmp/aide.sock"

// Known commands.
const (
	CmdTrigger    = "trigger"    // start listening for one command now
	CmdPause      = "pause"      // suppress command handling
	CmdResume     = "resume"     // lift a pause
	CmdSay        = "say"        // inject a text utterance (arg = text)
	CmdSummary    = "summary"    // render today's summary
	CmdReminders  = "reminders"  // list upcoming reminders
	CmdTranscribe = "transcribe" // feed an audio file as an utterance (arg = path)
)

type Request struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Response struct {
	OK   bool   `json:"ok"`
	Text string `json:"text,omitempty"`
	Err  string `json:"err,omitempty"`
}

// Handler processes one control request.
type Handler func(Request) Response

// StartServer listens on path and serves each connection on its own
// goroutine. A stale socket file from a previous run is replaced.
func StartServer(path string, handler Handler) error {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go serveConn(conn, handler)
		}
	}()

	return nil
}

func serveConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}
	resp := handler(req)
	json.NewEncoder(conn).Encode(resp)
}

// Send delivers one request to a running daemon and waits for the reply.
func Send(path string, req Request) (Response, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
