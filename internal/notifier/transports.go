package notifier

import (
	"context"
	"errors"
	"strings"
)

// Transports routes messages across several named transports.
type Transports struct {
	names      []string
	transports map[string]Transport
}

// NewTransports returns a registry holding the given transports in order.
func NewTransports(named ...NamedTransport) (*Transports, error) {
	if len(named) == 0 {
		return nil, errors.New("notifier: at least one transport is required")
	}
	t := &Transports{transports: make(map[string]Transport, len(named))}
	for _, n := range named {
		if n.Transport == nil {
			return nil, errors.New("notifier: transport " + n.Name + " is nil")
		}
		if _, dup := t.transports[n.Name]; dup {
			return nil, errors.New("notifier: duplicate transport name " + n.Name)
		}
		t.names = append(t.names, n.Name)
		t.transports[n.Name] = n.Transport
	}
	return t, nil
}

// NamedTransport pairs a transport with its registry name.
type NamedTransport struct {
	Name      string
	Transport Transport
}

func (t *Transports) String() string {
	parts := make([]string, len(t.names))
	for i, name := range t.names {
		parts[i] = t.transports[name].String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Supports reports whether the message can be routed to any transport.
func (t *Transports) Supports(msg Message) bool {
	if name := msg.TransportName(); name != "" {
		tr, ok := t.transports[name]
		return ok && tr.Supports(msg)
	}
	for _, name := range t.names {
		if t.transports[name].Supports(msg) {
			return true
		}
	}
	return false
}

// Send hands msg to the transport it names, or to the first transport that
// supports it.
func (t *Transports) Send(ctx context.Context, msg Message) (*SentMessage, error) {
	if name := msg.TransportName(); name != "" {
		tr, ok := t.transports[name]
		if !ok {
			return nil, &UnknownTransportError{Name: name, Available: t.names}
		}
		return tr.Send(ctx, msg)
	}

	for _, name := range t.names {
		if tr := t.transports[name]; tr.Supports(msg) {
			return tr.Send(ctx, msg)
		}
	}
	return nil, &UnsupportedMessageTypeError{Transport: t.String(), Got: msg.Kind()}
}
