// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// RemoteTags lists the tags advertised by a remote repository without
// cloning it. It implements the tag-source contract used by ref
// resolution.
type RemoteTags struct {
	// URL is anything "git ls-remote" accepts: an https URL, an ssh
	// address, or a local path.
	URL string
}

// ListTags returns the tag names advertised by the remote, without the
// refs/tags/ prefix. Peeled entries ("^{}") are excluded.
func (remote RemoteTags) ListTags(ctx context.Context) ([]string, error) {
	return LsRemoteTags(ctx, remote.URL)
}

// LsRemoteTags runs "git ls-remote --tags --refs <url>" and returns the
// tag names in the order git printed them.
func LsRemoteTags(ctx context.Context, url string) ([]string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "ls-remote", "--tags", "--refs", url)
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git ls-remote %s: %w (stderr: %s)", url, err, strings.TrimSpace(stderr.String()))
	}
	return parseLsRemote(stdout.Bytes()), nil
}

// parseLsRemote extracts tag names from ls-remote output lines of the
// form "<sha>\trefs/tags/<name>".
func parseLsRemote(output []byte) []string {
	var tags []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		_, ref, found := strings.Cut(scanner.Text(), "\t")
		if !found {
			continue
		}
		name, isTag := strings.CutPrefix(strings.TrimSpace(ref), "refs/tags/")
		if !isTag || strings.HasSuffix(name, "^{}") {
			continue
		}
		tags = append(tags, name)
	}
	return tags
}
