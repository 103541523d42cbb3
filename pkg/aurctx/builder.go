// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package aurctx

import (
	"context"
	"fmt"
	"log/slog"
)

// MetadataFetcher fetches index metadata for a single package name.
// Satisfied by *aurclient.RPCClient.
type MetadataFetcher interface {
	FetchPackageInfo(ctx context.Context, name string) (*Metadata, error)
}

// MaintainerFetcher fetches every package currently maintained by a user.
// Satisfied by *aurclient.RPCClient.
type MaintainerFetcher interface {
	FetchMaintainerPackages(ctx context.Context, maintainer string) ([]Metadata, error)
}

// CommentsFetcher fetches recent user comments for a package. Satisfied by
// *aurclient.RPCClient.
type CommentsFetcher interface {
	FetchComments(ctx context.Context, name string) []string
}

// GithubInfo is the outcome of an upstream star-count lookup.
type GithubInfo struct {
	Stars int
	Found bool
}

// StarsFetcher resolves an upstream code-host URL to a star count. Returns
// nil when url doesn't name a repository on the well-known code host.
// Satisfied by *aurclient.GithubClient.
type StarsFetcher interface {
	FetchStars(ctx context.Context, url string) *GithubInfo
}

// RepoClient drives the recipe repository's VCS surface against a local
// working copy. Satisfied by *aurclient.VCSClient.
type RepoClient interface {
	EnsureRepo(ctx context.Context, base, dir string) error
	ReadPkgbuild(ctx context.Context, dir string) (string, error)
	ReadInstallScript(ctx context.Context, dir, pkgbuild string) (string, bool)
	ReadGitLog(ctx context.Context, dir string) ([]Commit, error)
	ReadPkgbuildAtRevision(ctx context.Context, dir, rev string) (string, error)
}

// Builder assembles a PackageContext from its external collaborators (the
// aurclient package's RPCClient, VCSClient, and GithubClient satisfy the
// respective interfaces). A nil collaborator is skipped and the facts it
// supplies stay absent; the recipe repository is read only when both Repo
// and CacheDir are set.
type Builder struct {
	Metadata    MetadataFetcher
	Maintainers MaintainerFetcher
	Comments    CommentsFetcher
	Stars       StarsFetcher
	Repo        RepoClient

	// CacheDir resolves the local working-copy directory for a package
	// base: $CACHE_ROOT/git/<package_base>.
	CacheDir func(packageBase string) string

	Logger *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// BuildContext performs the full 11-step acquisition described in spec
// §4.2: fetch metadata, derive the package base, clone-or-pull the recipe
// repository, read current and prior recipe text and the install script,
// read the bounded commit log with the newest commit's diff, fetch the
// maintainer's other packages, fetch upstream star count, and fetch recent
// comments. Name validation happens before any I/O. A clone failure is
// fatal: with no recipe there is no meaningful analysis.
func (b *Builder) BuildContext(ctx context.Context, name string) (*PackageContext, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid package name %q: %w", name, err)
	}

	var metadata *Metadata
	if b.Metadata != nil {
		m, err := b.Metadata.FetchPackageInfo(ctx, name)
		if err != nil {
			b.logger().Warn("aurctx.metadata.fetch.error", "package", name, "err", err)
		} else {
			metadata = m
		}
	}

	return b.build(ctx, name, metadata, nil, true)
}

// BuildContextPrefetched is the same acquisition as BuildContext but
// starting from already-fetched metadata and maintainer packages: only the
// repository clone/pull touches the network. A clone failure is fatal.
func (b *Builder) BuildContextPrefetched(ctx context.Context, name string, metadata *Metadata, maintainerPackages []Metadata) (*PackageContext, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid package name %q: %w", name, err)
	}
	return b.build(ctx, name, metadata, maintainerPackages, false)
}

func (b *Builder) build(ctx context.Context, name string, metadata *Metadata, maintainerPackages []Metadata, fetchMaintainers bool) (*PackageContext, error) {
	pc := &PackageContext{Name: name, Metadata: metadata}

	packageBase := name
	if metadata != nil && metadata.PackageBase != "" {
		packageBase = metadata.PackageBase
	}

	if b.Repo != nil && b.CacheDir != nil {
		dir := b.CacheDir(packageBase)
		if err := b.Repo.EnsureRepo(ctx, packageBase, dir); err != nil {
			return nil, fmt.Errorf("clone recipe repository for %s: %w", packageBase, err)
		}

		if content, err := b.Repo.ReadPkgbuild(ctx, dir); err == nil {
			pc.PkgbuildContent = content
			pc.HasPkgbuild = true

			if installContent, ok := b.Repo.ReadInstallScript(ctx, dir, content); ok {
				pc.InstallScriptContent = installContent
				pc.HasInstallScript = true
			}
		}

		log, err := b.Repo.ReadGitLog(ctx, dir)
		if err != nil {
			b.logger().Warn("aurctx.gitlog.error", "package", packageBase, "err", err)
		} else {
			pc.GitLog = log
		}

		if len(pc.GitLog) >= 2 {
			if prior, err := b.Repo.ReadPkgbuildAtRevision(ctx, dir, "HEAD~1"); err == nil {
				pc.PriorPkgbuildContent = prior
				pc.HasPriorPkgbuild = true
			}
		}
	}

	if fetchMaintainers && metadata != nil && metadata.Maintainer != "" && b.Maintainers != nil {
		pkgs, err := b.Maintainers.FetchMaintainerPackages(ctx, metadata.Maintainer)
		if err != nil {
			b.logger().Warn("aurctx.maintainer.fetch.error", "maintainer", metadata.Maintainer, "err", err)
		} else {
			maintainerPackages = pkgs
		}
	}
	pc.MaintainerPackages = excludePackage(maintainerPackages, name)

	if metadata != nil && metadata.URL != "" && b.Stars != nil {
		if info := b.Stars.FetchStars(ctx, metadata.URL); info != nil {
			if info.Found {
				stars := info.Stars
				pc.GithubStars = &stars
			} else {
				pc.GithubNotFound = true
			}
		}
	}

	if b.Comments != nil {
		pc.AurComments = b.Comments.FetchComments(ctx, name)
	}

	return pc, nil
}

// excludePackage drops the currently-scanned package from a maintainer's
// package list: the AUR search-by-maintainer RPC naturally includes it,
// but maintainer_packages names every OTHER package the maintainer
// currently maintains.
func excludePackage(packages []Metadata, name string) []Metadata {
	if len(packages) == 0 {
		return packages
	}
	out := make([]Metadata, 0, len(packages))
	for _, p := range packages {
		if p.Name == name {
			continue
		}
		out = append(out, p)
	}
	return out
}
