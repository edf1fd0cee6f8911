package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrStateNotFound indicates that a state value has no registered State.
	ErrStateNotFound = errors.New("state not found")
	// ErrFinalized indicates that the machine's transition table is locked.
	ErrFinalized = errors.New("state machine is finalized")
	// ErrParse indicates that a serialized machine could not be decoded.
	ErrParse = errors.New("failed to parse state machine")
	// ErrChecksumMismatch indicates that a document's checksum does not match its content.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrConditionNotSerializable indicates a condition that has no textual form.
	ErrConditionNotSerializable = errors.New("condition is not serializable")
	// ErrDuplicateCondition indicates two conditional transitions of one state
	// with the same source text, which a document cannot represent.
	ErrDuplicateCondition = errors.New("duplicate condition")
	// ErrInvalidCondition indicates that a condition expression failed to compile.
	ErrInvalidCondition = errors.New("invalid condition expression")
	// ErrInvalidOption indicates an option whose value type does not fit the machine.
	ErrInvalidOption = errors.New("option does not apply to this machine")
	// ErrInvalidCodecValue indicates a value the codec cannot encode or decode.
	ErrInvalidCodecValue = errors.New("invalid codec value")

	// ErrSelfTransition indicates a transition that targets its own source state.
	ErrSelfTransition = errors.New("transition targets its own state")
	// ErrUnknownDestination indicates a transition whose destination is not registered.
	ErrUnknownDestination = errors.New("transition destination does not exist")
	// ErrMissingStartingState indicates that the starting state is not registered.
	ErrMissingStartingState = errors.New("starting state does not exist")
	// ErrMissingCurrentState indicates that the current state is not registered.
	ErrMissingCurrentState = errors.New("current state does not exist")
	// ErrMissingDomainState indicates a member of the state domain without a registered State.
	ErrMissingDomainState = errors.New("state domain member is not registered")
	// ErrNilState indicates a registered state value backed by a nil State.
	ErrNilState = errors.New("state is nil")
)

// StateError wraps an error with the state it relates to.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %q: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with the transition it relates to.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %q -> %q: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// ParseError reports a failure to decode a serialized machine. It matches
// both ErrParse and the underlying cause with errors.Is.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrParse, e.Err)
	}

	return fmt.Sprintf("%v at %s: %v", ErrParse, e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{State: state, Err: err}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{From: from, To: to, Err: err}
}

func parseError(path string, err error) error {
	return &ParseError{Path: path, Err: err}
}
