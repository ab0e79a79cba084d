// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/interfaces/gateways"
	"github.com/ochairo/prefetch/internal/domain/interfaces/services"
)

// binDir is the per-environment directory artifacts are stored in
const binDir = "bin"

// FetchOrchestrator turns a config into download jobs and runs them one pass per target
type FetchOrchestrator struct {
	resolver   services.LinkResolver
	downloader gateways.ArtifactDownloader
	logger     interfaces.Logger
	root       string
}

// FetchOrchestratorConfig holds configuration for the orchestrator
type FetchOrchestratorConfig struct {
	// Root is the cache directory, artifacts land in <Root>/<arch>/<environment>/bin
	Root string
}

// NewFetchOrchestrator creates a new fetch orchestrator
func NewFetchOrchestrator(
	resolver services.LinkResolver,
	downloader gateways.ArtifactDownloader,
	logger interfaces.Logger,
	config FetchOrchestratorConfig,
) *FetchOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &FetchOrchestrator{
		resolver:   resolver,
		downloader: downloader,
		logger:     logger,
		root:       config.Root,
	}
}

// JobFailure records why one (environment, component, target) entry failed
type JobFailure struct {
	Environment string
	Component   string
	Version     string
	Target      entities.Target
	Err         error
}

func (f *JobFailure) Error() string {
	return fmt.Sprintf("%s/%s %s (%s): %v", f.Environment, f.Component, f.Version, f.Target, f.Err)
}

func (f *JobFailure) Unwrap() error { return f.Err }

// Plan is the set of jobs for one target, computed without network access
type Plan struct {
	Target entities.Target
	Jobs   []entities.DownloadJob
	// Failures holds entries that could not be resolved to a URL
	Failures []*JobFailure
}

// Plan resolves every declaration in cfg for target, in declaration order
func (o *FetchOrchestrator) Plan(cfg *entities.Config, target entities.Target) *Plan {
	plan := &Plan{Target: target}

	for _, env := range cfg.Environments {
		for _, c := range env.Components {
			fail := func(err error) {
				plan.Failures = append(plan.Failures, &JobFailure{
					Environment: env.Name,
					Component:   c.Key,
					Version:     c.Version,
					Target:      target,
					Err:         err,
				})
			}

			link, err := o.resolver.Resolve(c.Software(), c.Version, target.Platform, target.Arch)
			if err != nil {
				fail(err)
				continue
			}

			dest, err := o.Destination(target.Arch, env.Name, link)
			if err != nil {
				fail(err)
				continue
			}

			plan.Jobs = append(plan.Jobs, entities.DownloadJob{
				Environment:      env.Name,
				Component:        c.Key,
				Software:         c.Software(),
				Version:          link.Version,
				RequestedVersion: c.Version,
				Platform:         target.Platform,
				Arch:             target.Arch,
				URL:              link.URL,
				Destination:      dest,
			})
		}
	}

	return plan
}

// Destination returns <root>/<arch>/<environment>/bin/<basename of the URL path>.
// Names that would place the file outside root are rejected.
func (o *FetchOrchestrator) Destination(arch, environment string, link *entities.Link) (string, error) {
	name := link.Filename
	if u, err := url.Parse(link.URL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	dest := filepath.Join(o.root, arch, environment, binDir, name)

	rel, err := filepath.Rel(filepath.Join(o.root, arch), dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) ||
		!strings.HasPrefix(rel, filepath.Clean(environment)+string(filepath.Separator)) {
		return "", &entities.PathEscapeError{Path: dest, Root: o.root}
	}
	return dest, nil
}

// PassReport summarizes one target pass
type PassReport struct {
	Target     entities.Target
	Downloaded int
	Cached     int
	Bytes      int64
	Failures   []*JobFailure
	// Interrupted is set when the context was cancelled before the pass completed
	Interrupted error
}

// RunReport summarizes a complete fetch run
type RunReport struct {
	RunID    string
	Passes   []*PassReport
	Duration time.Duration
}

// Failed returns the number of failed jobs across all passes
func (r *RunReport) Failed() int {
	n := 0
	for _, p := range r.Passes {
		n += len(p.Failures)
	}
	return n
}

// Err aggregates every job failure of the run, nil when all jobs succeeded
func (r *RunReport) Err() error {
	var result *multierror.Error
	for _, p := range r.Passes {
		for _, f := range p.Failures {
			result = multierror.Append(result, f)
		}
		if p.Interrupted != nil {
			result = multierror.Append(result, fmt.Errorf("pass %s interrupted: %w", p.Target, p.Interrupted))
		}
	}
	return result.ErrorOrNil()
}

// FetchAll runs one pass per target, sequentially. Job failures are collected
// and never stop the remaining jobs; a cancelled context stops the run.
func (o *FetchOrchestrator) FetchAll(ctx context.Context, cfg *entities.Config, targets []entities.Target) *RunReport {
	startTime := time.Now()
	report := &RunReport{RunID: uuid.NewString()}

	run := *o
	run.logger = o.logger.With(interfaces.F("run_id", report.RunID))

	run.logger.Info("Starting fetch run",
		interfaces.F("environments", len(cfg.Environments)),
		interfaces.F("components", cfg.ComponentCount()),
		interfaces.F("targets", len(targets)),
	)

	for _, target := range targets {
		pass := run.FetchTarget(ctx, cfg, target)
		report.Passes = append(report.Passes, pass)
		if pass.Interrupted != nil {
			break
		}
	}

	report.Duration = time.Since(startTime)
	run.logger.Info("Fetch run finished",
		interfaces.F("failed", report.Failed()),
		interfaces.F("duration", report.Duration.Round(time.Millisecond).String()),
	)

	return report
}

// FetchTarget runs a single pass for target
func (o *FetchOrchestrator) FetchTarget(ctx context.Context, cfg *entities.Config, target entities.Target) *PassReport {
	plan := o.Plan(cfg, target)
	pass := &PassReport{Target: target, Failures: plan.Failures}

	o.logger.Info("Starting pass",
		interfaces.F("platform", string(target.Platform)),
		interfaces.F("arch", target.Arch),
		interfaces.F("jobs", len(plan.Jobs)),
	)

	for _, f := range plan.Failures {
		o.logger.Error("Failed to resolve download link", append(failureFields(f), interfaces.F("error", f.Err))...)
	}

	for i := range plan.Jobs {
		job := &plan.Jobs[i]
		if err := ctx.Err(); err != nil {
			pass.Interrupted = err
			o.logger.Warn("Pass interrupted", interfaces.F("target", target.String()))
			return pass
		}

		result, err := o.downloader.Download(ctx, job.URL, job.Destination)
		if err != nil {
			f := &JobFailure{
				Environment: job.Environment,
				Component:   job.Component,
				Version:     job.RequestedVersion,
				Target:      target,
				Err:         err,
			}
			pass.Failures = append(pass.Failures, f)
			o.logger.Error("Failed to download artifact",
				append(failureFields(f), interfaces.F("url", job.URL), interfaces.F("error", err))...)
			continue
		}

		if result.Cached {
			pass.Cached++
			o.logger.Debug("Artifact already cached", interfaces.F("path", result.Path))
			continue
		}
		pass.Downloaded++
		pass.Bytes += result.Bytes
	}

	o.logger.Info("Pass finished",
		interfaces.F("target", target.String()),
		interfaces.F("downloaded", pass.Downloaded),
		interfaces.F("cached", pass.Cached),
		interfaces.F("failed", len(pass.Failures)),
	)

	return pass
}

func failureFields(f *JobFailure) []interfaces.Field {
	return []interfaces.Field{
		interfaces.F("environment", f.Environment),
		interfaces.F("component", f.Component),
		interfaces.F("version", f.Version),
		interfaces.F("platform", string(f.Target.Platform)),
		interfaces.F("arch", f.Target.Arch),
	}
}
