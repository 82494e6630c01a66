// Command warcore mirrors the wars of a game server, records them and
// works with the stored replays.
//
//	warcore serve  [-config dir] [-addr host:port]
//	warcore replay [-config dir] <file> [actionId]
//	warcore export [-config dir] [-db file] [-o file] <warId>
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "warcore"

func usage(w io.Writer) {
	fmt.Fprintf(w, `usage: %s <command> [flags]

commands:
  serve    run the hub and mirror the war pushed by the game server
  replay   load a replay file and seek to an action
  export   write a stored war as a replay file
  version  print the version
`, appName)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "replay":
		err = runReplay(ctx, os.Args[2:], os.Stdout)
	case "export":
		err = runExport(ctx, os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("%s %s (built %s)\n", appName, Version, BuildDate)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		stop()
		os.Exit(1)
	}
}
