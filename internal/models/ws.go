package models

import "time"

// WSMessage is the envelope for everything pushed to clients over the
// WebSocket event stream.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Notification is a user-facing alert scheduled for immediate delivery.
type Notification struct {
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	SoundEnabled bool      `json:"sound_enabled"`
	Priority     string    `json:"priority"`
	At           time.Time `json:"at"`
}

// API error response

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
