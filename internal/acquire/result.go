package acquire

import (
	"fmt"
	"time"
)

// ErrorKind classifies every failure the acquisition adapter can
// surface. External tool diagnostics are matched against known
// signatures and re-expressed as one of these kinds; raw upstream text
// is never passed through to callers.
type ErrorKind int

const (
	// InvalidInput covers empty or malformed source URLs.
	InvalidInput ErrorKind = iota
	// UnsupportedSource means no extraction capability exists for the URL.
	UnsupportedSource
	// AuthRequired means the source demands credentials we lack.
	AuthRequired
	// RateLimited means the source throttled the request.
	RateLimited
	// NoEligibleFormat means no representation satisfied the quality
	// and compatibility constraints (e.g. no transcoder and no muxed
	// stream exists).
	NoEligibleFormat
	// AcquisitionFailed is the catch-all for unclassified failures.
	AcquisitionFailed
)

func (kind ErrorKind) String() string {
	switch kind {
	case InvalidInput:
		return "INVALID_INPUT"
	case UnsupportedSource:
		return "UNSUPPORTED_SOURCE"
	case AuthRequired:
		return "AUTH_REQUIRED"
	case RateLimited:
		return "RATE_LIMITED"
	case NoEligibleFormat:
		return "NO_ELIGIBLE_FORMAT"
	case AcquisitionFailed:
		return "ACQUISITION_FAILED"
	}

	return "UNKNOWN"
}

// Error is the normalized failure shape for an acquisition. Detail is a
// sanitized, human-readable message safe to return to clients.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("acquisition failed (%s): %s", e.Kind, e.Detail)
}

func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Artifact describes a file the adapter has materialized in the staging
// store. The name is opaque and random; nothing in it derives from the
// request or the source media.
type Artifact struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// acquisitionState tracks the lifecycle of a single acquisition.
type acquisitionState int

const (
	stateIdle acquisitionState = iota
	stateResolving
	stateSelecting
	stateTransferring
	stateDone
	stateFailed
)

func (state acquisitionState) String() string {
	return []string{"IDLE", "RESOLVING", "SELECTING", "TRANSFERRING", "DONE", "FAILED"}[state]
}
