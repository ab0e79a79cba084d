package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ochairo/prefetch/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/prefetch/internal/domain-orchestrators"
	"github.com/ochairo/prefetch/internal/domain/services"
)

const verifyUsage = `Usage: prefetch verify --keyring <file> [options]

Check the detached OpenPGP signature (<artifact>.asc) of every cached
artifact the version config plans. Artifacts that are not cached or have
no signature are reported as skipped.

Examples:
  prefetch verify --keyring release-keys.asc
  prefetch verify --keys-url https://downloads.example.org/KEYS --fetch-signatures
`

func runVerify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exeDir := executableDir()
	var flags commonFlags

	fs := newFlagSet("verify", stderr, verifyUsage)
	flags.register(fs, exeDir)
	var (
		keyring         = fs.String("keyring", "", "Armored or binary OpenPGP keyring file")
		keysURL         = fs.String("keys-url", "", "URL of a published KEYS file")
		fetchSignatures = fs.Bool("fetch-signatures", false, "Download <url>.asc when no signature is cached")
	)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *keyring == "" && *keysURL == "" {
		fmt.Fprintf(stderr, "Error: --keyring or --keys-url is required\n\n")
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
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	cfg, err := flags.loadConfig(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	verifier := gateways.NewGPGVerifier()
	if *keyring != "" {
		if err := verifier.ImportKeyFromFile(*keyring); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}
	if *keysURL != "" {
		if err := verifier.ImportKeysFromURL(ctx, *keysURL); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	planner := orchestrators.NewFetchOrchestrator(
		services.NewLinkResolver(settings.DownloadPrefixes, logger),
		nil,
		logger,
		orchestrators.FetchOrchestratorConfig{Root: settings.Root},
	)
	orch := orchestrators.NewVerifyOrchestrator(
		planner,
		verifier,
		newDownloader(settings, logger, nil),
		logger,
		orchestrators.VerifyOrchestratorConfig{FetchSignatures: *fetchSignatures},
	)

	report, err := orch.Verify(ctx, cfg, settings.Targets)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if report == nil {
			return exitFailure
		}
		return exitInterrupted
	}

	for _, job := range report.Verified {
		fmt.Fprintf(stdout, "OK      %s\n", job.Destination)
	}
	for _, s := range report.Skipped {
		name := s.Job.Destination
		if name == "" {
			name = s.Job.Environment + "/" + s.Job.Component
		}
		fmt.Fprintf(stdout, "SKIPPED %s (%s)\n", name, s.Reason)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(stdout, "FAILED  %v\n", f)
	}
	fmt.Fprintf(stdout, "\n%d verified, %d skipped, %d failed\n", len(report.Verified), len(report.Skipped), len(report.Failures))

	if report.Err() != nil {
		return exitFailure
	}
	return exitOK
}
