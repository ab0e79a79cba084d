package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/services"
)

const resolveUsage = `Usage: prefetch resolve <software> <version> [options]

Print the download URL of one artifact without downloading it.

Examples:
  prefetch resolve jdk 17 --platform linux --arch amd64
  prefetch resolve redis 7.2 --platform windows --arch x64
`

func runResolve(_ context.Context, args []string, stdout, stderr io.Writer) int {
	exeDir := executableDir()

	fs := newFlagSet("resolve", stderr, resolveUsage)
	var (
		platform     = fs.String("platform", string(entities.PlatformLinux), "Target platform: linux or windows")
		arch         = fs.String("arch", "amd64", "Target architecture")
		settingsPath = fs.String("settings", "", "Optional YAML settings file")
		logLevel     = fs.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	positional, code, ok := parseInterspersed(fs, args)
	if !ok {
		return code
	}
	if len(positional) != 2 {
		fmt.Fprintf(stderr, "Error: software and version are required\n\n")
		fs.Usage()
		return exitUsage
	}

	flags := commonFlags{settingsPath: *settingsPath, logLevel: *logLevel}
	logger, err := flags.newLogger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	settings, err := flags.loadSettings(exeDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	resolver := services.NewLinkResolver(settings.DownloadPrefixes, logger)
	link, err := resolver.Resolve(entities.Software(positional[0]), positional[1], entities.Platform(*platform), *arch)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	fmt.Fprintln(stdout, link.URL)
	return exitOK
}
