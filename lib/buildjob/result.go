// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"time"
)

// Status is the outcome of a job.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Stage names a step of a job. A failed result records the stage it
// stopped in; the verify and package stages are run by the pipeline
// after the build itself.
type Stage string

const (
	StageToolchain Stage = "toolchain"
	StageFetch     Stage = "fetch"
	StageConfigure Stage = "configure"
	StageCompile   Stage = "compile"
	StageVerify    Stage = "verify"
	StagePackage   Stage = "package"
)

// Result is the record of one job. The job goroutine builds it; once
// returned it is only read. Results are written to disk as CBOR and
// read back by the publish command, so every field is tagged.
type Result struct {
	Toolchain  string `json:"toolchain" cbor:"toolchain"`
	Ref        string `json:"ref" cbor:"ref"`
	Commit     string `json:"commit,omitempty" cbor:"commit,omitempty"`
	WorkDir    string `json:"work_dir" cbor:"work_dir"`
	InstallDir string `json:"install_dir" cbor:"install_dir"`
	LogPath    string `json:"log_path,omitempty" cbor:"log_path,omitempty"`

	Status Status `json:"status" cbor:"status"`
	Stage  Stage  `json:"stage,omitempty" cbor:"stage,omitempty"`
	Reason string `json:"reason,omitempty" cbor:"reason,omitempty"`

	ArtifactPath   string `json:"artifact_path,omitempty" cbor:"artifact_path,omitempty"`
	ArtifactName   string `json:"artifact_name,omitempty" cbor:"artifact_name,omitempty"`
	ArtifactSize   int64  `json:"artifact_size,omitempty" cbor:"artifact_size,omitempty"`
	ArtifactDigest string `json:"artifact_digest,omitempty" cbor:"artifact_digest,omitempty"`

	StartedAt time.Time     `json:"started_at" cbor:"started_at"`
	Duration  time.Duration `json:"duration" cbor:"duration"`
}

// Succeeded reports whether the job completed every stage it ran.
func (result Result) Succeeded() bool {
	return result.Status == StatusSuccess
}

// Failed returns a copy of result marked failed at stage.
func (result Result) Failed(stage Stage, err error) Result {
	result.Status = StatusFailed
	result.Stage = stage
	result.Reason = err.Error()
	return result
}
