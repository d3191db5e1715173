package usecases

import (
	"fmt"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Use case errors. Each wraps one of the domain error kinds.
var (
	// ErrEmptyQuery is returned when play is called without a query.
	ErrEmptyQuery = fmt.Errorf("%w: query is empty", domain.ErrPrecondition)

	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = fmt.Errorf("%w: not connected to a voice channel", domain.ErrPrecondition)

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = fmt.Errorf("%w: nothing is currently playing", domain.ErrPrecondition)

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = fmt.Errorf("%w: playback is already paused", domain.ErrPrecondition)

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = fmt.Errorf("%w: playback is not paused", domain.ErrPrecondition)

	// ErrPlayerClosed is returned when a command reaches a player that has been torn down.
	ErrPlayerClosed = fmt.Errorf("%w: player is closed", domain.ErrPrecondition)

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = fmt.Errorf("%w: you must join a voice channel first", domain.ErrTransport)
)
