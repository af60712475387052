package domain

import "errors"

var (
	// ErrEmptySelection is returned when a submission carries no selected option.
	ErrEmptySelection = errors.New("no selection made")
	// ErrSubmissionLocked is returned when the current scenario was already evaluated.
	ErrSubmissionLocked = errors.New("scenario already evaluated")
	// ErrPlaythroughComplete is returned for input after the last scenario finished.
	ErrPlaythroughComplete = errors.New("playthrough complete")
	// ErrControllerClosed is returned once a playthrough has been torn down.
	ErrControllerClosed = errors.New("playthrough closed")
	// ErrGameNotFound indicates the game catalog could not be loaded.
	ErrGameNotFound = errors.New("game not found")
	// ErrOptionNotFound indicates a selected option ID is not part of the current scenario.
	ErrOptionNotFound = errors.New("option not found")
	// ErrPlaythroughNotFound is returned when a playthrough has not been started.
	ErrPlaythroughNotFound = errors.New("playthrough not found")
	// ErrUnsupportedInput is returned when input does not fit the game's selection mode.
	ErrUnsupportedInput = errors.New("input not supported by this game")
	// ErrInvalidRecord indicates an external record failed schema validation.
	ErrInvalidRecord = errors.New("invalid record")
)
