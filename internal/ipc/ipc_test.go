package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "aide.sock")

	err := StartServer(sock, func(req Request) Response {
		switch req.Cmd {
		case CmdSay:
			return Response{OK: true, Text: "echo: " + req.Arg}
		default:
			return Response{Err: "unknown command " + req.Cmd}
		}
	})
	require.NoError(t, err)

	resp, err := Send(sock, Request{Cmd: CmdSay, Arg: "hello"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "echo: hello", resp.Text)

	resp, err = Send(sock, Request{Cmd: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Err)
}

func TestSendWithoutDaemon(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "missing.sock")
	_, err := Send(sock, Request{Cmd: CmdTrigger})
	assert.Error(t, err)
}

func TestStaleSocketIsReplaced(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "aide.sock")

	require.NoError(t, StartServer(sock, func(Request) Response { return Response{OK: true} }))
	// A second daemon start reuses the path.
	require.NoError(t, StartServer(sock, func(Request) Response { return Response{OK: true, Text: "second"} }))

	resp, err := Send(sock, Request{Cmd: CmdTrigger})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Text)
}
