package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"parle/internal/ipc"
)

const usage = `usage: parle-ctl [--socket path] <command>

commands:
  listen              listen for one spoken command
  say <text>          run a typed command
  open <application>  open an application by name
  transcribe <file>   run the command recorded in a voice note
  quit                stop the daemon
`

func main() {
	socketPath := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0], Text: strings.Join(args[1:], " ")}

	reply, err := ipc.SendCommand(*socketPath, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parle-daemon not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Fprintln(os.Stderr, "parle-daemon:", reply.Error)
		os.Exit(1)
	}
}
