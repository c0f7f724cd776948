// Command drmtool packages songs into protected containers and inspects,
// shares and recovers them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
)

const version = "1.0.0"

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = map[string]command{
	"protect":   {"protect a song", runProtect},
	"unprotect": {"recover a protected song", runUnprotect},
	"verify":    {"check every signature of a container", runVerify},
	"query":     {"print the header of a container", runQuery},
	"share":     {"share a song with another user", runShare},
	"provision": {"add a user to the user table", runProvision},
	"keygen":    {"write a random key file", runKeygen},
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: drmtool <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'drmtool <command> -h' for command flags.\n")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "version", "-version", "--version":
		fmt.Printf("drmtool version %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "drmtool: unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.run(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "drmtool %s: %v\n", name, err)
		stop()
		os.Exit(1)
	}
}
