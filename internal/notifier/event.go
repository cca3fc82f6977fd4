package notifier

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"
)

// Event is emitted around every send performed through Deliver.
type Event interface {
	OriginalMessage() Message
}

// MessageEvent is dispatched before a message is handed to a transport.
type MessageEvent struct {
	Message Message
}

func (e MessageEvent) OriginalMessage() Message { return e.Message }

// SentMessageEvent is dispatched after a transport accepted a message.
type SentMessageEvent struct {
	Sent *SentMessage
}

func (e SentMessageEvent) OriginalMessage() Message { return e.Sent.OriginalMessage() }

// FailedMessageEvent is dispatched when a transport failed to send a message.
type FailedMessageEvent struct {
	Message Message
	Err     error
}

func (e FailedMessageEvent) OriginalMessage() Message { return e.Message }

// Dispatcher receives send lifecycle events. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, event Event)

func (f DispatcherFunc) Dispatch(ctx context.Context, event Event) { f(ctx, event) }

// LogDispatcher writes every event to a zerolog logger.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher returns a dispatcher logging to logger.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, event Event) {
	msg := event.OriginalMessage()
	switch e := event.(type) {
	case MessageEvent:
		d.logger.Debug().
			Str("kind", string(msg.Kind())).
			Str("transport", msg.TransportName()).
			Msg("sending message")
	case SentMessageEvent:
		d.logger.Info().
			Str("kind", string(msg.Kind())).
			Str("via", e.Sent.Transport()).
			Str("provider_id", e.Sent.MessageID()).
			Msg("message sent")
	case FailedMessageEvent:
		d.logger.Warn().
			Str("kind", string(msg.Kind())).
			Err(e.Err).
			Msg("message failed")
	}
}

// Deliver runs send for msg and reports the outcome to dispatcher, which may
// be nil. Exactly one of the returned values is non-nil.
func Deliver(ctx context.Context, dispatcher Dispatcher, msg Message, send func(context.Context, Message) (*SentMessage, error)) (*SentMessage, error) {
	if dispatcher == nil {
		return send(ctx, msg)
	}

	dispatcher.Dispatch(ctx, MessageEvent{Message: msg})

	sent, err := send(ctx, msg)
	if err != nil {
		dispatcher.Dispatch(ctx, FailedMessageEvent{Message: msg, Err: err})
		return nil, err
	}

	dispatcher.Dispatch(ctx, SentMessageEvent{Sent: sent})
	return sent, nil
}
