package models

import "time"

// Status event constants.
const (
	StatusEventSent        = "sent"
	StatusEventRejected    = "rejected"
	StatusEventRateLimited = "rate_limited"
	StatusEventFailed      = "failed"
)

// StatusEvent reports the outcome of one send attempt.
type StatusEvent struct {
	MessageID        string            `json:"message_id"`
	Channel          string            `json:"channel"`
	EventType        string            `json:"event_type"`
	ProviderResponse *ProviderResponse `json:"provider_response,omitempty"`
	Error            string            `json:"error,omitempty"`
	TraceID          string            `json:"trace_id,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// ProviderResponse mirrors the adapter response in status events.
type ProviderResponse struct {
	Status  string            `json:"status"`
	Code    *int              `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Raw     string            `json:"raw,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}
