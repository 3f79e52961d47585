// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
	"github.com/bureau-foundation/staticrel/lib/clock"
	"github.com/bureau-foundation/staticrel/lib/config"
	"github.com/bureau-foundation/staticrel/lib/git"
	"github.com/bureau-foundation/staticrel/lib/github"
	"github.com/bureau-foundation/staticrel/lib/refspec"
	"github.com/bureau-foundation/staticrel/lib/release"
	"github.com/bureau-foundation/staticrel/lib/release/dirstore"
	"github.com/bureau-foundation/staticrel/lib/release/githubstore"
	"github.com/bureau-foundation/staticrel/lib/release/s3store"
)

// New builds a Pipeline from a validated configuration. The release
// store is opened on first publish, so building works without release
// credentials.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tagSource, err := NewTagSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	var backend buildjob.Backend
	switch cfg.Build.Backend {
	case "cmake":
		backend = buildjob.CMake{}
	default:
		return nil, fmt.Errorf("unknown build backend %q", cfg.Build.Backend)
	}

	repository := git.NewRepository(cfg.Release.RepositoryDir)
	return &Pipeline{
		Config:    cfg,
		TagSource: tagSource,
		Fetcher:   buildjob.GitFetcher{URL: cfg.Project.Repository, Logger: logger},
		Backend:   backend,
		Commits:   repository,
		ResolveCommit: func(ctx context.Context) (string, error) {
			return repository.ResolveCommit(ctx, "HEAD")
		},
		Clock:  clock.Real(),
		Logger: logger,
	}, nil
}

// NewTagSource returns the configured tag lister.
func NewTagSource(cfg *config.Config, logger *slog.Logger) (refspec.TagSource, error) {
	switch cfg.Project.TagSource {
	case "git":
		return git.RemoteTags{URL: cfg.Project.Repository}, nil
	case "github":
		repo, err := github.ParseRepo(cfg.Project.GitHubRepo)
		if err != nil {
			return nil, err
		}
		// Reading public tags works anonymously; a token only raises
		// the rate limit.
		client, err := newGitHubClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return github.RepoTags{Client: client, Repo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown tag source %q", cfg.Project.TagSource)
	}
}

func newGitHubClient(cfg *config.Config, logger *slog.Logger) (*github.Client, error) {
	return github.NewClient(github.Config{
		BaseURL:       cfg.Release.GitHub.BaseURL,
		UploadBaseURL: cfg.Release.GitHub.UploadURL,
		Token:         os.Getenv(cfg.Release.GitHub.TokenEnv),
		Logger:        logger,
	})
}

// NewStore opens the configured release store. Credentials are read
// from the environment variables the configuration names.
func NewStore(cfg *config.Config, logger *slog.Logger) (release.Store, error) {
	switch cfg.Release.Store {
	case "github":
		repo, err := github.ParseRepo(cfg.Release.GitHub.Repo)
		if err != nil {
			return nil, err
		}
		client, err := newGitHubClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		if !client.Authenticated() {
			return nil, fmt.Errorf("publishing to GitHub requires a token in $%s", cfg.Release.GitHub.TokenEnv)
		}
		return githubstore.Store{Client: client, Repo: repo}, nil
	case "s3":
		store, err := s3store.New(s3store.Config{
			Endpoint:  cfg.Release.S3.Endpoint,
			Bucket:    cfg.Release.S3.Bucket,
			Prefix:    cfg.Release.S3.Prefix,
			Region:    cfg.Release.S3.Region,
			Insecure:  cfg.Release.S3.Insecure,
			AccessKey: os.Getenv(cfg.Release.S3.AccessKeyEnv),
			SecretKey: os.Getenv(cfg.Release.S3.SecretKeyEnv),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "dir":
		return dirstore.Store{Root: cfg.Release.Dir}, nil
	default:
		return nil, fmt.Errorf("unknown release store %q", cfg.Release.Store)
	}
}
