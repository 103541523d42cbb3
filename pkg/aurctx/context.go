// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package aurctx assembles the PackageContext every analyzer consumes and
// validates package names before any filesystem or network contact.
package aurctx

import (
	"regexp"
	"strings"
)

// Metadata is the subset of the package index's record that analyzers
// consume.
type Metadata struct {
	Name           string
	PackageBase    string
	URL            string
	NumVotes       int
	Popularity     float64
	OutOfDate      *int64 // epoch seconds, nil when not flagged
	Maintainer     string
	Submitter      string
	FirstSubmitted int64 // epoch seconds
	LastModified   int64
	License        []string
}

// Commit is one entry of a recipe repository's log, newest first.
type Commit struct {
	Author    string
	Timestamp int64
	Subject   string
	Diff      string // only populated for the newest commit
}

// PackageContext is the sole input every analyzer receives. All fields are
// read-only to analyzers; no analyzer may mutate a PackageContext.
type PackageContext struct {
	Name string

	// Metadata is nil when the package is unknown to the index. When nil,
	// every index-derived field below is absent/empty.
	Metadata *Metadata

	PkgbuildContent      string
	HasPkgbuild          bool
	InstallScriptContent string
	HasInstallScript     bool
	PriorPkgbuildContent string
	HasPriorPkgbuild     bool

	// GitLog is ordered newest first. Only GitLog[0].Diff is populated.
	GitLog []Commit

	MaintainerPackages []Metadata

	GithubStars    *int
	GithubNotFound bool

	// AurComments holds up to ten recent comment strings, newest first.
	AurComments []string
}

var validNameChars = regexp.MustCompile(`^[A-Za-z0-9\-_.+@]+$`)

// ValidateName rejects anything but non-empty ASCII alphanumerics plus
// -_.+@, and refuses a path-traversal "..". Every caller must validate
// before any filesystem or network contact.
func ValidateName(name string) error {
	if name == "" {
		return errEmptyName
	}
	if !validNameChars.MatchString(name) {
		return errInvalidChars
	}
	if strings.Contains(name, "..") {
		return errPathTraversal
	}
	return nil
}

// HasVCSSuffix reports whether name conventionally denotes a live
// source-control checkout (-git, -svn, -hg, -bzr).
func HasVCSSuffix(name string) bool {
	for _, suffix := range []string{"-git", "-svn", "-hg", "-bzr"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// IsBinPackage reports whether name conventionally installs prebuilt
// binaries instead of compiling from source.
func IsBinPackage(name string) bool {
	return strings.HasSuffix(name, "-bin")
}

// PackageBase returns the package base the metadata declares, or name
// itself when metadata is absent or declares no base.
func (c *PackageContext) PackageBase() string {
	if c.Metadata != nil && c.Metadata.PackageBase != "" {
		return c.Metadata.PackageBase
	}
	return c.Name
}
