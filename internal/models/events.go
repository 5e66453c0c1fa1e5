package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRun is one recorded question-generation attempt. Only the outcome
// is kept; questions and scores are not stored.
type GenerationRun struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	Attempt       int       `json:"attempt"`
	Status        string    `json:"status"` // "completed" | "failed"
	QuestionCount int       `json:"question_count"`
	ErrorKind     *string   `json:"error_kind"`
	ErrorMessage  *string   `json:"error_message"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	Attempt   int       `json:"attempt"`
	StepName  string    `json:"step_name"`
}

type CompletedEvent struct {
	SessionID     uuid.UUID `json:"session_id"`
	Attempt       int       `json:"attempt"`
	QuestionCount int       `json:"question_count"`
}

type ErrorEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	Attempt      int       `json:"attempt"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// UpdatesChannel is the Redis pub/sub channel carrying a session's events.
func UpdatesChannel(sessionID uuid.UUID) string {
	return "session_updates:" + sessionID.String()
}
