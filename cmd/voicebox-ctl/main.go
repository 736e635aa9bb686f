package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"voicebox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocket, "Daemon control socket")
	cli.Parse()

	cmd := "status"
	if args := cli.Args(); len(args) > 0 {
		cmd = args[0]
	}

	resp, err := ipc.Send(*socket, cmd)
	if err != nil {
		fmt.Println("voicebox daemon not running:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Println("error:", resp.Error)
		os.Exit(1)
	}
	if resp.Phase != "" {
		fmt.Println("phase:", resp.Phase)
	}
	if len(resp.Commands) > 0 {
		fmt.Println("commands:", strings.Join(resp.Commands, ", "))
	}
}
