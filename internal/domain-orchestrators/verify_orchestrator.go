package orchestrators

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/interfaces/gateways"
)

// SignatureSuffix is appended to an artifact URL or path to locate its detached signature
const SignatureSuffix = ".asc"

// Planner computes download jobs without touching the network
type Planner interface {
	Plan(cfg *entities.Config, target entities.Target) *Plan
}

// VerifyOrchestrator checks detached signatures of cached artifacts.
// It only reads the cache and never downloads artifacts themselves.
type VerifyOrchestrator struct {
	planner         Planner
	verifier        gateways.SignatureVerifier
	downloader      gateways.ArtifactDownloader
	logger          interfaces.Logger
	fetchSignatures bool
}

// VerifyOrchestratorConfig holds configuration for the orchestrator
type VerifyOrchestratorConfig struct {
	// FetchSignatures downloads <url>.asc when no signature sits next to the artifact
	FetchSignatures bool
}

// NewVerifyOrchestrator creates a new verify orchestrator
func NewVerifyOrchestrator(
	planner Planner,
	verifier gateways.SignatureVerifier,
	downloader gateways.ArtifactDownloader,
	logger interfaces.Logger,
	config VerifyOrchestratorConfig,
) *VerifyOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &VerifyOrchestrator{
		planner:         planner,
		verifier:        verifier,
		downloader:      downloader,
		logger:          logger,
		fetchSignatures: config.FetchSignatures,
	}
}

// SkippedJob is a planned job that could not be checked
type SkippedJob struct {
	Job    entities.DownloadJob
	Reason string
}

// VerifyReport summarizes a verify run
type VerifyReport struct {
	RunID    string
	Verified []entities.DownloadJob
	Skipped  []SkippedJob
	Failures []*JobFailure
}

// Err aggregates every failed check, nil when no signature failed
func (r *VerifyReport) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		result = multierror.Append(result, f)
	}
	return result.ErrorOrNil()
}

// Verify checks every cached artifact planned for targets
func (o *VerifyOrchestrator) Verify(ctx context.Context, cfg *entities.Config, targets []entities.Target) (*VerifyReport, error) {
	if o.verifier.KeyringSize() == 0 {
		return nil, fmt.Errorf("no keys loaded: import a keyring before verifying")
	}

	report := &VerifyReport{RunID: uuid.NewString()}

	scoped := *o
	scoped.logger = o.logger.With(interfaces.F("run_id", report.RunID))
	o = &scoped

	for _, target := range targets {
		plan := o.planner.Plan(cfg, target)
		for _, f := range plan.Failures {
			report.Skipped = append(report.Skipped, SkippedJob{
				Job: entities.DownloadJob{
					Environment: f.Environment,
					Component:   f.Component,
					Version:     f.Version,
					Platform:    target.Platform,
					Arch:        target.Arch,
				},
				Reason: f.Err.Error(),
			})
		}

		for _, job := range plan.Jobs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			o.verifyJob(ctx, report, job)
		}
	}

	o.logger.Info("Verification finished",
		interfaces.F("verified", len(report.Verified)),
		interfaces.F("skipped", len(report.Skipped)),
		interfaces.F("failed", len(report.Failures)),
	)

	return report, nil
}

func (o *VerifyOrchestrator) verifyJob(ctx context.Context, report *VerifyReport, job entities.DownloadJob) {
	if !exists(job.Destination) {
		report.Skipped = append(report.Skipped, SkippedJob{Job: job, Reason: "not cached"})
		return
	}

	sigPath := job.Destination + SignatureSuffix
	if !exists(sigPath) {
		if !o.fetchSignatures {
			report.Skipped = append(report.Skipped, SkippedJob{Job: job, Reason: "no signature"})
			return
		}
		if _, err := o.downloader.Download(ctx, job.URL+SignatureSuffix, sigPath); err != nil {
			o.fail(report, job, fmt.Errorf("failed to fetch signature: %w", err))
			return
		}
	}

	if err := o.verifier.VerifyFile(job.Destination, sigPath); err != nil {
		o.fail(report, job, err)
		return
	}

	o.logger.Debug("Signature verified", interfaces.F("path", job.Destination))
	report.Verified = append(report.Verified, job)
}

func (o *VerifyOrchestrator) fail(report *VerifyReport, job entities.DownloadJob, err error) {
	f := &JobFailure{
		Environment: job.Environment,
		Component:   job.Component,
		Version:     job.RequestedVersion,
		Target:      entities.Target{Platform: job.Platform, Arch: job.Arch},
		Err:         err,
	}
	report.Failures = append(report.Failures, f)
	o.logger.Error("Signature check failed",
		append(failureFields(f), interfaces.F("path", job.Destination), interfaces.F("error", err))...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
