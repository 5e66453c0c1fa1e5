package services

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

const generationFailedMessage = "Kon de quizvragen niet genereren. Controleer de API-sleutel en probeer het opnieuw."

// GeneratorError wraps every failure of the question generator. The cause is
// kept for logs; players only ever see UserMessage.
type GeneratorError struct {
	Err error
}

func (e *GeneratorError) Error() string { return "question generation failed: " + e.Err.Error() }

func (e *GeneratorError) Unwrap() error { return e.Err }

func (e *GeneratorError) UserMessage() string { return generationFailedMessage }
