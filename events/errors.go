package events

import (
	"errors"
)

var (
	// ErrDisposed is returned by Publish after the publisher has been disposed.
	ErrDisposed = errors.New(`events: publisher disposed`)

	// ErrNotInitialized indicates use of a Slot before Initialize.
	ErrNotInitialized = errors.New(`events: publisher is not initialized`)

	// ErrAlreadyInitialized indicates a second call to Slot.Initialize.
	ErrAlreadyInitialized = errors.New(`events: publisher already initialized`)

	// ErrUnknownEventType is returned when decoding an unrecognised discriminator.
	ErrUnknownEventType = errors.New(`events: unknown event type`)
)
