// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/staticrel/lib/binhash"
	"github.com/bureau-foundation/staticrel/lib/buildjob"
	"github.com/bureau-foundation/staticrel/lib/clock"
	"github.com/bureau-foundation/staticrel/lib/config"
	"github.com/bureau-foundation/staticrel/lib/matrix"
	"github.com/bureau-foundation/staticrel/lib/metrics"
	"github.com/bureau-foundation/staticrel/lib/packager"
	"github.com/bureau-foundation/staticrel/lib/refspec"
	"github.com/bureau-foundation/staticrel/lib/release"
	"github.com/bureau-foundation/staticrel/lib/toolchain"
	"github.com/bureau-foundation/staticrel/lib/verify"
)

// ErrNoArtifacts is returned when every job failed, so there was
// nothing to publish.
var ErrNoArtifacts = errors.New("no job produced an artifact")

// Pipeline runs builds and publishes their artifacts. Use [New] to
// build one from configuration; tests assemble it from fakes. A
// Pipeline runs one thing at a time.
type Pipeline struct {
	Config *config.Config

	TagSource refspec.TagSource
	Fetcher   buildjob.Fetcher
	Backend   buildjob.Backend

	// Inspector overrides the binary format inspector used by
	// verification.
	Inspector verify.Inspector

	// Store is opened from the configuration on first publish when
	// nil.
	Store   release.Store
	Commits release.CommitChecker

	// ResolveCommit returns the release commit when the configuration
	// does not name one.
	ResolveCommit func(ctx context.Context) (string, error)

	Clock  clock.Clock
	Logger *slog.Logger

	metrics *metrics.Metrics
}

// Report is the outcome of a run.
type Report struct {
	RunID     string
	RefSpec   refspec.RefSpec
	Records   []Record
	Release   *release.Record
	StartedAt time.Time
	Duration  time.Duration
}

// Summary counts the run's job results.
func (report Report) Summary() matrix.Summary {
	results := make([]buildjob.Result, len(report.Records))
	for index, record := range report.Records {
		results[index] = record.Result
	}
	return matrix.Summarize(results)
}

func (pipeline *Pipeline) clock() clock.Clock {
	if pipeline.Clock == nil {
		return clock.Real()
	}
	return pipeline.Clock
}

func (pipeline *Pipeline) logger() *slog.Logger {
	if pipeline.Logger == nil {
		return slog.Default()
	}
	return pipeline.Logger
}

// Resolve determines the ref and version to build.
func (pipeline *Pipeline) Resolve(ctx context.Context, explicitRef string) (refspec.RefSpec, error) {
	convention := refspec.Convention{Prefix: pipeline.Config.Project.TagPrefix}
	spec, err := refspec.Resolve(ctx, explicitRef, pipeline.TagSource, convention)
	if err != nil {
		return refspec.RefSpec{}, err
	}
	pipeline.logger().Info("resolved ref", "ref", spec.ResolvedRef, "version", spec.Version, "explicit", spec.ExplicitRef != "")
	return spec, nil
}

// Run resolves explicitRef (the latest stable tag when empty), builds
// the whole matrix, and publishes the artifacts. A run in which every
// job failed returns the report and [ErrNoArtifacts].
func (pipeline *Pipeline) Run(ctx context.Context, explicitRef string) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: pipeline.clock().Now()}
	finish := func(err error) (Report, error) {
		report.Duration = clock.Since(pipeline.clock(), report.StartedAt)
		return report, err
	}

	spec, err := pipeline.Resolve(ctx, explicitRef)
	if err != nil {
		return finish(err)
	}
	report.RefSpec = spec

	report.Records, err = pipeline.Build(ctx, report.RunID, spec)
	if err != nil {
		return finish(err)
	}

	record, err := pipeline.Publish(ctx, report.Records)
	if err != nil {
		return finish(err)
	}
	report.Release = &record
	return finish(nil)
}

// Build runs the matrix for spec and returns one record per toolchain,
// in matrix order. When selected is non-empty only those toolchains
// run. Records are also written to the results directory.
func (pipeline *Pipeline) Build(ctx context.Context, runID string, spec refspec.RefSpec, selected ...string) ([]Record, error) {
	cfg := pipeline.Config
	if err := matrix.Validate(cfg.Matrix.Toolchains); err != nil {
		return nil, err
	}
	toolchains, err := selectToolchains(cfg.Matrix.Toolchains, selected)
	if err != nil {
		return nil, err
	}

	logger := pipeline.logger().With("run_id", runID, "version", spec.Version)
	pipeline.metrics = metrics.New(spec.Version)

	jobs := make([]matrix.Job, len(toolchains))
	for index, toolchainSpec := range toolchains {
		jobs[index] = matrix.Job{Ref: spec.ResolvedRef, Toolchain: toolchainSpec}
	}
	logger.Info("running build matrix", "ref", spec.ResolvedRef, "jobs", len(jobs), "parallelism", cfg.Matrix.Parallelism)

	runner := matrix.Runner{Parallelism: cfg.Matrix.Parallelism, Logger: logger}
	results := runner.RunAll(ctx, jobs, func(ctx context.Context, job matrix.Job) buildjob.Result {
		return pipeline.runJob(ctx, logger, spec, job.Toolchain)
	})

	records := make([]Record, len(results))
	for index, result := range results {
		records[index] = Record{
			RunID:       runID,
			ExplicitRef: spec.ExplicitRef,
			Ref:         spec.ResolvedRef,
			Version:     spec.Version,
			Result:      result,
		}
		if err := WriteRecord(cfg.Paths.Results, records[index]); err != nil {
			logger.Warn("writing job record failed", "toolchain", result.Toolchain, "error", err)
		}
	}

	summary := matrix.Summarize(results)
	logger.Info("build matrix finished", "succeeded", summary.Succeeded, "failed", summary.Failed)
	pipeline.writeMetrics(logger)
	return records, nil
}

func selectToolchains(all []toolchain.Spec, selected []string) ([]toolchain.Spec, error) {
	if len(selected) == 0 {
		return all, nil
	}
	var chosen []toolchain.Spec
	for position, id := range selected {
		if first := slices.Index(selected, id); first < position {
			return nil, &matrix.ConfigError{Issues: []string{
				fmt.Sprintf("toolchain %q selected more than once", id),
			}}
		}
		index := slices.IndexFunc(all, func(spec toolchain.Spec) bool { return spec.ID == id })
		if index < 0 {
			return nil, fmt.Errorf("toolchain %q is not in the matrix", id)
		}
		chosen = append(chosen, all[index])
	}
	return chosen, nil
}

// runJob is the matrix executor: build, verify, package. The build
// job adds the toolchain to its own log lines.
func (pipeline *Pipeline) runJob(ctx context.Context, logger *slog.Logger, spec refspec.RefSpec, toolchainSpec toolchain.Spec) buildjob.Result {
	clk := pipeline.clock()
	pipeline.metrics.RecordJobStart()

	result := pipeline.build(ctx, logger, spec, toolchainSpec)
	if result.Succeeded() {
		result = pipeline.verifyAndPackage(logger.With("toolchain", toolchainSpec.ID), spec, result)
	}
	result.Duration = clock.Since(clk, result.StartedAt)

	pipeline.metrics.RecordJobComplete(result)
	return result
}

func (pipeline *Pipeline) build(ctx context.Context, logger *slog.Logger, spec refspec.RefSpec, toolchainSpec toolchain.Spec) buildjob.Result {
	cfg := pipeline.Config
	clk := pipeline.clock()
	variables := cfg.JobVariables(spec.Version, spec.ResolvedRef, toolchainSpec.ID)
	failed := func(stage buildjob.Stage, err error) buildjob.Result {
		return buildjob.Result{
			Toolchain: toolchainSpec.ID,
			Ref:       spec.ResolvedRef,
			StartedAt: clk.Now(),
		}.Failed(stage, err)
	}

	expanded, err := config.ExpandToolchain(toolchainSpec, variables)
	if err != nil {
		return failed(buildjob.StageToolchain, err)
	}
	extraArgs, err := config.ExpandArgs(cfg.Build.ExtraArgs, variables)
	if err != nil {
		return failed(buildjob.StageConfigure, fmt.Errorf("extra_args%w", err))
	}

	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	job := &buildjob.Job{
		WorkRoot: cfg.Paths.Work,
		Fetcher:  pipeline.Fetcher,
		Backend:  pipeline.Backend,
		Clock:    clk,
		Logger:   logger,
	}
	result := job.Run(ctx, spec.ResolvedRef, expanded, "", buildjob.Options{
		TargetArch:            cfg.Build.TargetArch,
		Component:             cfg.Build.Component,
		Static:                cfg.Build.Static,
		PIC:                   cfg.Build.PIC,
		CompressDebugSections: cfg.Build.CompressDebugSections,
		BuildType:             cfg.Build.BuildType,
		SourceSubdir:          cfg.Build.SourceSubdir,
		Generator:             cfg.Build.Generator,
		ExtraArgs:             extraArgs,
		Jobs:                  cfg.Build.Jobs,
	})
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("build exceeded its timeout", "toolchain", toolchainSpec.ID, "timeout", cfg.Build.Timeout)
	}
	return result
}

func (pipeline *Pipeline) verifyAndPackage(logger *slog.Logger, spec refspec.RefSpec, result buildjob.Result) buildjob.Result {
	cfg := pipeline.Config
	verifier := verify.Verifier{
		LibDir:          cfg.Verify.LibDir,
		StaticExtension: cfg.Verify.StaticExtension,
		RejectShared:    cfg.Verify.RejectShared,
		Inspector:       pipeline.Inspector,
	}
	if err := verifier.Verify(result); err != nil {
		logger.Warn("verification failed", "error", err)
		return result.Failed(buildjob.StageVerify, err)
	}

	artifact, err := packager.Packager{OutputDir: cfg.Paths.Output, Logger: logger}.Package(result, packager.Manifest{
		PackageBase: cfg.Package.Base,
		Version:     spec.Version,
		Platform:    cfg.Package.Platform,
		OS:          cfg.Package.OS,
		ToolchainID: result.Toolchain,
		Extension:   cfg.Package.Extension,
	})
	if err != nil {
		logger.Warn("packaging failed", "error", err)
		return result.Failed(buildjob.StagePackage, err)
	}
	result.ArtifactPath = artifact.Path
	result.ArtifactName = artifact.Name
	result.ArtifactSize = artifact.Size
	result.ArtifactDigest = artifact.Digest.String()
	return result
}

// Publish releases the artifacts of records. The records must come from
// a single version; failed jobs contribute only to the notes. Returns
// [ErrNoArtifacts] without touching the store when no record carries
// an artifact.
func (pipeline *Pipeline) Publish(ctx context.Context, records []Record) (release.Record, error) {
	if len(records) == 0 {
		return release.Record{}, ErrNoArtifacts
	}
	version := records[0].Version
	request := release.PublishRequest{Version: version, SourceRef: records[0].Ref}
	for _, record := range records {
		if record.Version != version {
			return release.Record{}, fmt.Errorf("records mix versions %s and %s", version, record.Version)
		}
		result := record.Result
		request.Toolchains = append(request.Toolchains, result)
		if !result.Succeeded() || result.ArtifactPath == "" {
			continue
		}
		if request.SourceCommit == "" {
			request.SourceCommit = result.Commit
		}
		digest, err := binhash.ParseDigest(result.ArtifactDigest)
		if err != nil {
			return release.Record{}, fmt.Errorf("artifact %s: %w", result.ArtifactName, err)
		}
		request.Artifacts = append(request.Artifacts, release.Artifact{
			Name:      result.ArtifactName,
			Path:      result.ArtifactPath,
			Toolchain: result.Toolchain,
			Size:      result.ArtifactSize,
			Digest:    digest.String(),
		})
	}

	logger := pipeline.logger().With("version", version)
	if len(request.Artifacts) == 0 {
		logger.Warn("nothing to publish: every job failed")
		return release.Record{}, ErrNoArtifacts
	}

	commit, err := pipeline.releaseCommit(ctx)
	if err != nil {
		return release.Record{}, err
	}
	request.Commit = commit

	if pipeline.Store == nil {
		store, err := NewStore(pipeline.Config, logger)
		if err != nil {
			return release.Record{}, fmt.Errorf("opening release store: %w", err)
		}
		pipeline.Store = store
	}
	manager := &release.Manager{
		Store:       pipeline.Store,
		Commits:     pipeline.Commits,
		PlatformTag: pipeline.Config.Release.PlatformTag,
		Logger:      logger,
	}
	record, err := manager.Publish(ctx, request)
	if err != nil {
		return release.Record{}, err
	}
	logger.Info("published release", "tag", record.Tag, "assets", len(record.UploadedArtifacts))

	if pipeline.metrics == nil {
		pipeline.metrics = metrics.New(version)
	}
	pipeline.metrics.RecordPublished(len(record.UploadedArtifacts))
	pipeline.writeMetrics(logger)
	return record, nil
}

func (pipeline *Pipeline) releaseCommit(ctx context.Context) (string, error) {
	if commit := pipeline.Config.Release.Commit; commit != "" {
		return commit, nil
	}
	if pipeline.ResolveCommit == nil {
		return "", errors.New("no release commit configured")
	}
	commit, err := pipeline.ResolveCommit(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving release commit: %w", err)
	}
	return commit, nil
}

func (pipeline *Pipeline) writeMetrics(logger *slog.Logger) {
	path := pipeline.Config.MetricsFile
	if path == "" || pipeline.metrics == nil {
		return
	}
	if err := pipeline.metrics.WriteTextfile(path, pipeline.clock().Now()); err != nil {
		logger.Warn("writing metrics failed", "error", err)
	}
}
