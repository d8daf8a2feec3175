package codegen

import "errors"

// Error kinds of the back end. Everything the front end guarantees by
// contract (types, declared identifiers) is not re-validated here; a broken
// contract surfaces as ErrInvalidNode.
var (
	// ErrOutputOpen reports that the output file could not be opened.
	ErrOutputOpen = errors.New("unable to open output file for writing")

	// ErrUnresolvedLabel reports a deferred jump whose target was never
	// defined. This indicates an internal bug.
	ErrUnresolvedLabel = errors.New("unresolved label")

	// ErrInvalidNode reports a structural precondition violation in the AST.
	ErrInvalidNode = errors.New("invalid AST node")
)

// IsOutputOpen reports whether err is an output-open failure.
func IsOutputOpen(err error) bool { return errors.Is(err, ErrOutputOpen) }

// IsUnresolvedLabel reports whether err is an unresolved-label failure.
func IsUnresolvedLabel(err error) bool { return errors.Is(err, ErrUnresolvedLabel) }

// IsInvalidNode reports whether err is an invalid-node failure.
func IsInvalidNode(err error) bool { return errors.Is(err, ErrInvalidNode) }
