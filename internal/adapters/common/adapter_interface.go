package common

import "context"

// Adapter converts a validated channel request into a transport send and
// returns a normalized ProviderResponse. Errors returned alongside the
// response are classified with WrapTransient or WrapPermanent.
type Adapter interface {
	Send(ctx context.Context, msg *ValidatedMessage) (*ProviderResponse, error)
}
