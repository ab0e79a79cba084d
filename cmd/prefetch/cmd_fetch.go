package main

import (
	"context"
	"fmt"
	"io"

	"github.com/gosuri/uitable"

	"github.com/ochairo/prefetch/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/prefetch/internal/domain-orchestrators"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/services"
)

const fetchUsage = `Usage: prefetch [fetch] [options]

Download every artifact declared in the version config for every target.
Artifacts already present under <root>/<arch>/<environment>/bin are skipped.
Failed downloads are logged and do not stop the remaining ones.

Examples:
  prefetch
  prefetch fetch --config versions.json --root /srv/offline
  prefetch fetch --target linux/amd64 --target windows/x64
`

func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exeDir := executableDir()
	var flags commonFlags

	fs := newFlagSet("fetch", stderr, fetchUsage)
	flags.register(fs, exeDir)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %v\n\n", fs.Args())
		fs.Usage()
		return exitUsage
	}

	logger, err := flags.newLogger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	settings, err := flags.loadSettings(exeDir)
	if err != nil {
		logger.Error("Failed to load settings", interfaces.F("error", err))
		return exitFailure
	}

	cfg, err := flags.loadConfig(ctx)
	if err != nil {
		logger.Error("Failed to load config", interfaces.F("path", flags.configPath), interfaces.F("error", err))
		return exitFailure
	}

	orch := orchestrators.NewFetchOrchestrator(
		services.NewLinkResolver(settings.DownloadPrefixes, logger),
		newDownloader(settings, logger, stderr),
		logger,
		orchestrators.FetchOrchestratorConfig{Root: settings.Root},
	)

	report := orch.FetchAll(ctx, cfg, settings.Targets)
	printRunReport(stdout, report)

	if ctx.Err() != nil {
		return exitInterrupted
	}
	return exitOK
}

func printRunReport(w io.Writer, report *orchestrators.RunReport) {
	table := uitable.New()
	table.AddRow("TARGET", "DOWNLOADED", "CACHED", "FAILED", "RECEIVED")
	for _, p := range report.Passes {
		table.AddRow(p.Target.String(), p.Downloaded, p.Cached, len(p.Failures), gateways.FormatBytes(p.Bytes))
	}
	fmt.Fprintln(w, table)

	if report.Failed() == 0 {
		return
	}

	fmt.Fprintf(w, "\n%d artifact(s) failed:\n", report.Failed())
	for _, p := range report.Passes {
		for _, f := range p.Failures {
			fmt.Fprintf(w, "  - %v\n", f)
		}
	}
}
