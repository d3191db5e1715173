package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the player wraps exactly one of them.
var (
	// ErrResolution is a search or lookup miss, an unrecognized link or an exhausted quota.
	ErrResolution = errors.New("resolution failure")
	// ErrTransport is a rejected voice join, leave or send.
	ErrTransport = errors.New("transport failure")
	// ErrStream is an audio source that could not be opened or failed while playing.
	ErrStream = errors.New("stream failure")
	// ErrPrecondition is an operation issued in a state that does not allow it.
	ErrPrecondition = errors.New("precondition failure")
)

var (
	ErrNoResults        = fmt.Errorf("%w: no results found", ErrResolution)
	ErrEmptyPlaylist    = fmt.Errorf("%w: playlist has no playable items", ErrResolution)
	ErrUnrecognizedLink = fmt.Errorf("%w: unrecognized link form", ErrResolution)
	ErrQuotaExceeded    = fmt.Errorf("%w: resolution quota exceeded", ErrResolution)

	ErrTrackUnavailable = fmt.Errorf("%w: track unavailable", ErrStream)
)
