// Package apkerr defines the sentinel error taxonomy shared by every
// pipeline stage, so callers can distinguish recoverable conditions
// (ManifestParseFailed, RewriteInfeasible) from fatal ones
// (SignFailed, Cancelled) with errors.Is.
package apkerr

import "errors"

var (
	// NotFound is returned when a required archive entry is missing.
	NotFound = errors.New("apkdebug: entry not found")
	// MalformedArchive is returned when a buffer does not parse as a zip
	// container, or when a compiled-XML buffer carries no string pool.
	MalformedArchive = errors.New("apkdebug: malformed archive")
	// EmptyBundle is returned when a bundle contains no nested application archives.
	EmptyBundle = errors.New("apkdebug: bundle has no nested archives")

	// InvalidMagic is returned when a compiled-XML buffer's file magic doesn't match.
	InvalidMagic = errors.New("apkdebug: invalid compiled-xml magic")
	// TruncatedChunk is returned when a chunk header claims more bytes than are present.
	TruncatedChunk = errors.New("apkdebug: truncated compiled-xml chunk")
	// StringIndexOutOfRange is returned when an index into the string pool is out of bounds.
	StringIndexOutOfRange = errors.New("apkdebug: string pool index out of range")
	// RewriteInfeasible is returned when a structural rewrite would violate the
	// resource-id/string-pool prefix alignment invariant.
	RewriteInfeasible = errors.New("apkdebug: structural rewrite infeasible")

	// ManifestParseFailed wraps a compiled-XML parse error for the manifest entry.
	ManifestParseFailed = errors.New("apkdebug: manifest parse failed")

	// SignFailed wraps key generation, certificate construction, or CMS signing failures.
	SignFailed = errors.New("apkdebug: signing failed")

	// Cancelled is returned when the caller's context is done at a stage boundary.
	Cancelled = errors.New("apkdebug: pipeline cancelled")

	// InputInvalid is returned when the input archive cannot be opened at all.
	InputInvalid = errors.New("apkdebug: invalid input")
)
