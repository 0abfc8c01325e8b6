package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"aide/internal/ipc"
)

const usage = `usage: aide-ctl [--socket PATH] <command> [arg]

commands:
  trigger            listen for one spoken command now
  pause              suppress command handling
  resume             lift a pause
  say <text>         send a text utterance and print the response
  summary            print today's summary
  reminders          list upcoming reminders
  transcribe <file>  feed an audio file as an utterance
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	cli.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	req := ipc.Request{Cmd: args[0]}
	if len(args) > 1 {
		req.Arg = strings.Join(args[1:], " ")
	}

	resp, err := ipc.Send(*socket, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "aide-daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Err)
		os.Exit(1)
	}
	if resp.Text != "" {
		fmt.Println(resp.Text)
	}
}
