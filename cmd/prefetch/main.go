// Package main provides the prefetch CLI for caching release artifacts ahead of offline installs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand. Without a command, fetch runs.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || (len(args[0]) > 0 && args[0][0] == '-' && !isHelp(args[0])) {
		return runFetch(ctx, args, stdout, stderr)
	}

	command := args[0]

	switch command {
	case "fetch":
		return runFetch(ctx, args[1:], stdout, stderr)
	case "resolve":
		return runResolve(ctx, args[1:], stdout, stderr)
	case "list":
		return runList(ctx, args[1:], stdout, stderr)
	case "verify":
		return runVerify(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "-help"
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `prefetch - Release artifact prefetcher for offline environments

Usage:
  prefetch [command] [options]

Commands:
  fetch    Download every configured artifact for every target (default)
  resolve  Print the download URL of one artifact
  list     Show planned artifacts and whether they are cached
  verify   Check detached OpenPGP signatures of cached artifacts
  help     Show this help

Use "prefetch <command> --help" for more information about a command.`)
}
