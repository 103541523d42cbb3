// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the trust-scoring
// engine's command-line surfaces.
//
// UserError carries what went wrong, why, and how to fix it, plus an exit
// code. The category constructors below map onto the engine's error
// taxonomy: Input, Network, Integrity, Parse, and Config errors.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes. The CLI boundary collapses these to the two-value contract
// scoring.md requires (0 clean/warning, 1 everything else); ExitCode is kept
// richer internally so log output and JSON errors stay diagnostic.
const (
	ExitSuccess    = 0
	ExitInput      = 1
	ExitNetwork    = 2
	ExitIntegrity  = 3
	ExitParse      = 4
	ExitConfig     = 5
	ExitPermission = 6
	ExitInternal   = 10
)

// UserError represents an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred.
	Cause string

	// Fix suggests how to resolve it.
	Fix string

	// ExitCode is the process exit code this error implies.
	ExitCode int

	// Err is the wrapped underlying error, if any.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewInputError reports a bad package name, bad path, or conflicting flags.
// No analysis runs after an Input error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewNetworkError reports a per-request failure (index timeout, HTTP
// failure). The caller degrades the affected fact to absent and continues;
// this constructor exists for the cases where degradation isn't possible
// (e.g. the one-shot CLI path with no context to fall back on).
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNetwork, Err: err}
}

// NewIntegrityError reports a VCS clone/pull failure after retries are
// exhausted. Fatal for the individual package.
func NewIntegrityError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitIntegrity, Err: err}
}

// NewParseError reports malformed index JSON or a malformed pattern rule.
// The offending item is skipped by the caller; this constructor is for
// paths where skipping isn't an option (e.g. the rule file itself is
// unreadable).
func NewParseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitParse, Err: err}
}

// NewConfigError reports a missing or malformed config file.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewPermissionError reports insufficient filesystem permissions, typically
// while resolving an elevation-user's cache or config root.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitPermission, Err: err}
}

// NewInternalError reports a bug: an invariant the engine itself should
// have upheld was violated.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, honoring NO_COLOR and the
// noColor override. Empty Cause/Fix fields are omitted.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the machine-readable rendering of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err and exits with status 1 (argument/IO errors
// collapse to the same exit code as a Suspicious+ verdict per the external
// contract), for a UserError and for any other error alike. A nil err is a
// no-op: FatalError returns without printing or exiting.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
