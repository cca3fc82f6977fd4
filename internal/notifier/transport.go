package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport delivers messages to one remote service.
//
// String returns a stable identifier of the configured endpoint; it is
// embedded into every SentMessage and must never contain credentials.
type Transport interface {
	fmt.Stringer
	Supports(msg Message) bool
	Send(ctx context.Context, msg Message) (*SentMessage, error)
}

// TransportFactory builds transports from DSNs.
type TransportFactory interface {
	Create(dsn DSN) (Transport, error)
	Supports(dsn DSN) bool
	SupportedSchemes() []string
}

// Endpoint joins host and port the way transports print and dial them. An
// empty host falls back to defaultHost and a zero port is left out.
func Endpoint(host string, port int, defaultHost string) string {
	if host == "" {
		host = defaultHost
	}
	if port != 0 {
		return host + ":" + strconv.Itoa(port)
	}
	return host
}

// FromDSN parses raw and builds a transport with the first factory that
// supports its scheme.
func FromDSN(raw string, factories ...TransportFactory) (Transport, error) {
	dsn, err := ParseDSN(raw)
	if err != nil {
		return nil, err
	}
	for _, f := range factories {
		if f.Supports(dsn) {
			return f.Create(dsn)
		}
	}
	return nil, &UnsupportedSchemeError{DSN: dsn}
}
