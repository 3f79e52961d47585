// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI. staticrel uses git
// for three things: listing a remote's release tags, materializing a
// source tree at a ref inside a job's private working directory, and
// checking that a release target commit exists before tagging it. All
// repository commands target a specific directory via the -C flag,
// which every Repository method injects.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory: callers always say which repository they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure. Interactive credential prompts are disabled so a fetch
// against a private remote fails instead of hanging a build job.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := r.Command(ctx, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Command returns an *exec.Cmd for a git command without running it.
// The -C flag targeting this repository is prepended.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-C", r.dir}, args...)
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return command
}

// Init creates the repository directory and runs "git init" if it is
// not already a repository. Safe to call on an existing repository.
func (r *Repository) Init(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", r.dir, err)
	}
	if _, err := os.Stat(filepath.Join(r.dir, ".git")); err == nil {
		return nil
	}
	_, err := r.Run(ctx, "init", "--quiet")
	return err
}

// SetRemote points the named remote at url, adding it if absent.
func (r *Repository) SetRemote(ctx context.Context, name, url string) error {
	if _, err := r.Run(ctx, "remote", "set-url", name, url); err == nil {
		return nil
	}
	_, err := r.Run(ctx, "remote", "add", name, url)
	return err
}

// ShallowFetch fetches a single ref at depth 1 and checks it out
// detached. This succeeds for branch and tag names (and for commit
// SHAs only when the server allows fetching unadvertised objects).
func (r *Repository) ShallowFetch(ctx context.Context, remote, ref string) error {
	if _, err := r.Run(ctx, "fetch", "--quiet", "--depth", "1", "--no-tags", remote, ref); err != nil {
		return err
	}
	return r.Checkout(ctx, "FETCH_HEAD")
}

// FullFetch fetches the complete history of remote, including all
// branches and tags. If an earlier shallow fetch left the repository
// shallow, the history is deepened with --unshallow.
func (r *Repository) FullFetch(ctx context.Context, remote string) error {
	args := []string{"fetch", "--quiet", "--tags", "--force", remote,
		"+refs/heads/*:refs/remotes/" + remote + "/*"}
	shallow, err := r.IsShallow(ctx)
	if err != nil {
		return err
	}
	if shallow {
		args = append(args[:2], append([]string{"--unshallow"}, args[2:]...)...)
	}
	_, err = r.Run(ctx, args...)
	return err
}

// Checkout detaches HEAD at ref, discarding local modifications.
func (r *Repository) Checkout(ctx context.Context, ref string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", "--force", "--detach", ref)
	return err
}

// IsShallow reports whether the repository has truncated history.
func (r *Repository) IsShallow(ctx context.Context) (bool, error) {
	output, err := r.Run(ctx, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) == "true", nil
}

// HeadCommit returns the full SHA of HEAD.
func (r *Repository) HeadCommit(ctx context.Context) (string, error) {
	return r.ResolveCommit(ctx, "HEAD")
}

// ResolveCommit returns the full SHA of the commit ref points at.
func (r *Repository) ResolveCommit(ctx context.Context, ref string) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CommitExists reports whether commit names a commit object present in
// the local object database. A missing object is (false, nil); only
// failures to run git at all are errors.
func (r *Repository) CommitExists(ctx context.Context, commit string) (bool, error) {
	if commit == "" || strings.HasPrefix(commit, "-") {
		return false, nil
	}
	command := r.Command(ctx, "cat-file", "-e", commit+"^{commit}")
	var stderr bytes.Buffer
	command.Stderr = &stderr
	err := command.Run()
	if err == nil {
		return true, nil
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return false, nil
	}
	return false, fmt.Errorf("git cat-file in %s: %w (stderr: %s)", r.dir, err, strings.TrimSpace(stderr.String()))
}
