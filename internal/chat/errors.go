package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyTaken is matched by every *AlreadyTakenError.
	ErrAlreadyTaken = errors.New("display name already taken")
	// ErrMalformedFrame is matched by every *MalformedFrameError.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrOutboxClosed is returned by Push once the outbox has been closed.
	ErrOutboxClosed = errors.New("outbox closed")
	// ErrConnClosed marks a clean end of the inbound stream reported by a
	// transport that has no io.EOF of its own.
	ErrConnClosed = errors.New("connection closed")
)

const (
	invalidMessageText = "invalid message"
	bodyFormatText     = "body format is wrong"
	somethingWrongText = "something went wrong"
)

// AlreadyTakenError reports an admission failure: Name is held by another
// live member of Room.
type AlreadyTakenError struct {
	Room string
	Name string
}

func (e *AlreadyTakenError) Error() string {
	return fmt.Sprintf("user with name %q already exists in chat %q", e.Name, e.Room)
}

func (e *AlreadyTakenError) Is(target error) bool {
	return target == ErrAlreadyTaken
}

// MalformedFrameError reports an inbound frame that could not be decoded
// into a message. Reason is the text shown to the client.
type MalformedFrameError struct {
	Reason string
	Err    error
}

func (e *MalformedFrameError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// errorText maps an error to the message placed in an error frame. Internal
// details never leak to clients.
func errorText(err error) string {
	var taken *AlreadyTakenError
	if errors.As(err, &taken) {
		return taken.Error()
	}
	var malformed *MalformedFrameError
	if errors.As(err, &malformed) {
		return malformed.Reason
	}
	return somethingWrongText
}
