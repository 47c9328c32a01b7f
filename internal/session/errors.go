package session

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is the family of operations refused because another
	// operation currently owns the session. Callers may retry later.
	ErrConflict = errors.New("conflicting operation")

	// ErrUninitialized is returned when no graph has been loaded yet.
	ErrUninitialized = errors.New("simulation not initialized")

	// ErrAlreadyRunning is returned by Start while a day-advance is active.
	ErrAlreadyRunning = fmt.Errorf("%w: simulation already running", ErrConflict)

	// ErrRunning is returned by Step, Init and Rewind while a day-advance
	// is active.
	ErrRunning = fmt.Errorf("%w: simulation is running", ErrConflict)

	// ErrFinished is returned by Start once the outbreak has ended; a new
	// graph or a rewind is required first.
	ErrFinished = fmt.Errorf("%w: simulation has finished", ErrConflict)
)
