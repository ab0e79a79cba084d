package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gosuri/uitable"

	"github.com/ochairo/prefetch/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/prefetch/internal/domain-orchestrators"
	"github.com/ochairo/prefetch/internal/domain/services"
)

const listUsage = `Usage: prefetch list [options]

List the artifacts the version config plans for every target and whether
each one is already cached. Nothing is downloaded.

Examples:
  prefetch list
  prefetch list --config versions.yaml --target linux/arm64
`

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exeDir := executableDir()
	var flags commonFlags

	fs := newFlagSet("list", stderr, listUsage)
	flags.register(fs, exeDir)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

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

	cfg, err := flags.loadConfig(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	orch := orchestrators.NewFetchOrchestrator(
		services.NewLinkResolver(settings.DownloadPrefixes, logger),
		nil,
		logger,
		orchestrators.FetchOrchestratorConfig{Root: settings.Root},
	)

	table := uitable.New()
	table.AddRow("TARGET", "ENVIRONMENT", "COMPONENT", "VERSION", "STATUS", "PATH")

	total, cached := 0, 0
	for _, target := range settings.Targets {
		plan := orch.Plan(cfg, target)
		for _, job := range plan.Jobs {
			status := "missing"
			if info, err := os.Stat(job.Destination); err == nil {
				status = "cached (" + gateways.FormatBytes(info.Size()) + ")"
				cached++
			}
			total++
			table.AddRow(target.String(), job.Environment, job.Component, job.Version, status, job.Destination)
		}
		for _, f := range plan.Failures {
			total++
			table.AddRow(target.String(), f.Environment, f.Component, f.Version, "unresolved", f.Err.Error())
		}
	}

	fmt.Fprintln(stdout, table)
	fmt.Fprintf(stdout, "\n%d of %d artifact(s) cached under %s\n", cached, total, settings.Root)
	return exitOK
}
