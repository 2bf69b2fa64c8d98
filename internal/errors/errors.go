// Package errors re-exports github.com/cockroachdb/errors and defines the
// error classes the poster reports.
//
// Concrete failures are marked with one of the sentinels below so that the
// cause stays readable while callers still branch on the class:
//
//	return errors.Mark(fmt.Errorf("parse %s: %w", path, err), errors.ErrCorruptState)
//
//	if errors.Is(err, errors.ErrCorruptState) { ... }
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing hints
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

var (
	// ErrCorruptState indicates persisted history exists but cannot be parsed.
	ErrCorruptState = New("corrupt posted history")

	// ErrStateUnavailable indicates the history storage cannot be read or written.
	ErrStateUnavailable = New("posted history unavailable")

	// ErrLockContention indicates another run holds the exclusive run lock.
	ErrLockContention = New("run lock held by another process")

	// ErrPublish indicates a single item failed to post.
	ErrPublish = New("publish failed")

	// ErrFormat indicates content formatting failed for a single item.
	ErrFormat = New("format failed")

	// ErrDuplicateRecord indicates an append for a key that is already recorded.
	ErrDuplicateRecord = New("natural key already recorded")

	// ErrInvalidArgument indicates a bad command-line argument.
	ErrInvalidArgument = New("invalid argument")

	// ErrConfig indicates missing or invalid startup configuration.
	ErrConfig = New("invalid configuration")
)

// IsAbort reports whether err is one of the classes that abort a posting run.
func IsAbort(err error) bool {
	return err != nil && IsAny(err, ErrCorruptState, ErrStateUnavailable, ErrLockContention)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsAny(err, ErrInvalidArgument, ErrConfig):
		return 2
	default:
		return 1
	}
}
