package common

import "time"

// ValidatedMessage is a request that passed validation. Adapters receive it
// when sending; Request holds the channel specific model.
type ValidatedMessage struct {
	Channel   string
	MessageID string
	TraceID   string
	TenantID  string
	CreatedAt time.Time
	Metadata  map[string]string
	Request   any
}
