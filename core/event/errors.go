package event

import "errors"

var (
	// ErrBufferFull is returned when the channel buffer is full.
	ErrBufferFull = errors.New("event buffer is full")

	// ErrTransportClosed is returned when dispatching to a closed transport.
	ErrTransportClosed = errors.New("event transport is closed")

	// ErrTransportNotBound is returned by a sync transport used before a Processor owns it.
	ErrTransportNotBound = errors.New("sync transport not bound to a processor")

	// ErrNilPayload is returned when publishing a nil event.
	ErrNilPayload = errors.New("event payload is nil")

	// ErrProcessorAlreadyStarted is returned when attempting to start a processor that is already running.
	ErrProcessorAlreadyStarted = errors.New("processor already started")

	// ErrProcessorNotStarted is returned when attempting to stop a processor that is not running.
	ErrProcessorNotStarted = errors.New("processor not started")
)
