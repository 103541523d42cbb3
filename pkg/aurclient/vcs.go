// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package aurclient

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kraklabs/traur/pkg/aurctx"
)

const (
	gitTimeout   = 30 * time.Second
	cloneDepth   = "50"
	gitLogCount  = "20"
	logSeparator = "---END---"
)

// VCSClient drives git against a local mirror of a recipe repository's
// checkout. Every entry point validates its package base with
// aurctx.ValidateName before it touches the filesystem or a subprocess.
type VCSClient struct {
	baseURL string
	logger  *slog.Logger
}

// NewVCSClient returns a VCSClient that clones from the package index's
// git remote.
func NewVCSClient(logger *slog.Logger) *VCSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &VCSClient{
		baseURL: "https://aur.archlinux.org",
		logger:  logger,
	}
}

// EnsureRepo makes dir a checkout of base's recipe repository: clones it
// if dir has no .git, otherwise fast-forwards it. Clones are shallow
// (depth 50) since only recent history feeds the temporal analyzers.
func (c *VCSClient) EnsureRepo(ctx context.Context, base, dir string) error {
	if err := aurctx.ValidateName(base); err != nil {
		return fmt.Errorf("invalid package base %q: %w", base, err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := c.runGit(ctx, dir, "pull", "--ff-only"); err != nil {
			return fmt.Errorf("pull %s: %w", base, err)
		}
		return nil
	}

	remote := c.baseURL + "/" + base + ".git"
	if err := c.runGit(ctx, "", "clone", "--depth", cloneDepth, remote, dir); err != nil {
		return fmt.Errorf("clone %s: %w", base, err)
	}
	return nil
}

// ReadPkgbuild returns the PKGBUILD at the HEAD of the checkout in dir.
func (c *VCSClient) ReadPkgbuild(ctx context.Context, dir string) (string, error) {
	return c.readWorktreeFile(ctx, dir, "PKGBUILD")
}

// ReadInstallScript returns the contents of the .install file a PKGBUILD
// declares via install=, or ("", false) when it declares none or the
// declared file is absent from the checkout.
func (c *VCSClient) ReadInstallScript(ctx context.Context, dir, pkgbuild string) (string, bool) {
	name := installScriptName(pkgbuild)
	if name == "" {
		return "", false
	}
	content, err := c.readWorktreeFile(ctx, dir, name)
	if err != nil {
		return "", false
	}
	return content, true
}

func installScriptName(pkgbuild string) string {
	for _, line := range strings.Split(pkgbuild, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "install=") {
			continue
		}
		value := strings.TrimPrefix(line, "install=")
		value = strings.Trim(value, `"'`)
		return value
	}
	return ""
}

func (c *VCSClient) readWorktreeFile(ctx context.Context, dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// ReadPkgbuildAtRevision returns the PKGBUILD as it existed at rev,
// without checking out rev into the worktree.
func (c *VCSClient) ReadPkgbuildAtRevision(ctx context.Context, dir, rev string) (string, error) {
	out, err := c.runGitOutput(ctx, dir, "show", rev+":PKGBUILD")
	if err != nil {
		return "", fmt.Errorf("show %s:PKGBUILD: %w", rev, err)
	}
	return out, nil
}

// ReadGitLog returns up to 20 commits from dir's HEAD, newest first. Only
// the newest commit's Diff field is populated, via a separate
// git diff HEAD~1..HEAD call, matching GetLatestDiff.
func (c *VCSClient) ReadGitLog(ctx context.Context, dir string) ([]aurctx.Commit, error) {
	format := "%H%n%an%n%at%n%s%n" + logSeparator
	out, err := c.runGitOutput(ctx, dir, "log", "-"+gitLogCount, "--format="+format)
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	commits := parseGitLog(out)
	if len(commits) == 0 {
		return commits, nil
	}

	diff, err := c.GetLatestDiff(ctx, dir)
	if err == nil {
		commits[0].Diff = diff
	}
	return commits, nil
}

func parseGitLog(out string) []aurctx.Commit {
	var commits []aurctx.Commit
	var hash, author, subject string
	var timestamp int64
	field := 0

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == logSeparator {
			commits = append(commits, aurctx.Commit{
				Author:    author,
				Timestamp: timestamp,
				Subject:   subject,
			})
			field = 0
			continue
		}
		switch field {
		case 0:
			hash = line
			_ = hash
		case 1:
			author = line
		case 2:
			timestamp, _ = strconv.ParseInt(line, 10, 64)
		case 3:
			subject = line
		}
		field++
	}
	return commits
}

// GetLatestDiff returns the unified diff between HEAD~1 and HEAD. Callers
// on a repository with fewer than two commits get an error, which
// ReadGitLog treats as "no diff available" rather than a failure.
func (c *VCSClient) GetLatestDiff(ctx context.Context, dir string) (string, error) {
	out, err := c.runGitOutput(ctx, dir, "diff", "HEAD~1..HEAD")
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return out, nil
}

func (c *VCSClient) runGit(ctx context.Context, dir string, args ...string) error {
	_, err := c.runGitOutput(ctx, dir, args...)
	return err
}

func (c *VCSClient) runGitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out after %s", strings.Join(args, " "), gitTimeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
