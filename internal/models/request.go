package models

import "time"

// ChannelSMS is the only channel this service delivers.
const ChannelSMS = "sms"

// Body types accepted for SMS content.
const (
	BodyTypeText = "text"
)

// Envelope captures attributes shared by every message request.
type Envelope struct {
	MessageID string            `json:"message_id"`
	Channel   string            `json:"channel"`
	TenantID  string            `json:"tenant_id,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// MessageBody encapsulates the message content.
type MessageBody struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SMSRequest models the payload expected for SMS messages. To holds exactly
// one recipient once validated. From is informational; the gateway sender id
// comes from the transport configuration.
type SMSRequest struct {
	Envelope
	From string      `json:"from,omitempty"`
	To   []string    `json:"to"`
	Body MessageBody `json:"body"`
}

// GetMessageID returns the UUID of the message request.
func (e Envelope) GetMessageID() string { return e.MessageID }

// GetTraceID returns the trace identifier attached to the request if any.
func (e Envelope) GetTraceID() string { return e.TraceID }
