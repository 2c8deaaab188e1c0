package controllers

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the admission, aggregation and winner paths.
// Handlers map them onto HTTP statuses; raw store errors never reach the
// client beyond a safe category.
var (
	errTokenInvalid     = errors.New("upload token invalid")
	errTokenAlreadyUsed = errors.New("upload token already used")
	errTrackNotFound    = errors.New("track not found")
	errInvalidScore     = errors.New("score outside allowed range")
	errNoEligibleTracks = errors.New("no eligible tracks")
	errVoteContention   = errors.New("vote update contention, retry")
)

// PartialUploadError marks an upload that committed some durable state
// before a later step failed. Operators reconcile these from the log; they
// must never be presented as a clean validation failure.
type PartialUploadError struct {
	Stage string // step that failed, e.g. "consume-token"
	Err   error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("partial upload failure at %s: %v", e.Stage, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }
