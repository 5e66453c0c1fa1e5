package quiz

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	KindGenerationFailed FailureKind = "GENERATION_FAILED"
	KindEmptyResult      FailureKind = "EMPTY_RESULT"
)

const (
	emptyResultMessage  = "De AI kon geen vragen genereren. Probeer het opnieuw."
	unknownErrorMessage = "Er is een onbekende fout opgetreden."
)

// ErrGenerationInProgress is returned when a start is requested while the
// previous one is still waiting for the generator.
var ErrGenerationInProgress = errors.New("question generation already in progress")

// Failure is the user-facing error state left on a session after a failed start.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// GenerationError is what Start reports to its caller. The same information is
// stored on the session as a Failure.
type GenerationError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// UserMessenger is implemented by generator errors that carry a message meant
// for the person taking the quiz.
type UserMessenger interface {
	UserMessage() string
}

func userMessage(err error) string {
	var um UserMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return unknownErrorMessage
}
