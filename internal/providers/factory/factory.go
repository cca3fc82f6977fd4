// Package factory wires configured transports from their DSNs.
package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/promosms-notifier/internal/config"
	"github.com/ajayykmr/promosms-notifier/internal/notifier"
	"github.com/ajayykmr/promosms-notifier/internal/providers/promosms"
	smsprovider "github.com/ajayykmr/promosms-notifier/internal/providers/sms"
)

// TransportName is the registry name the SMS transport is published under.
const TransportName = "sms"

// SMS constructs the transport selected by cfg.SMSDSN. Supports the promosms
// and mock schemes. Every send is reported through a log dispatcher and HTTP
// calls are bounded by timeout.
func SMS(cfg config.ProviderConfig, timeout time.Duration, logger zerolog.Logger) (*notifier.Transports, error) {
	client := &http.Client{Timeout: timeout}
	dispatcher := notifier.NewLogDispatcher(logger)

	transport, err := notifier.FromDSN(cfg.SMSDSN,
		promosms.NewFactory(
			promosms.WithFactoryHTTPClient(client),
			promosms.WithFactoryDispatcher(dispatcher),
			promosms.WithFactoryLogger(logger),
		),
		smsprovider.NewMockFactory(logger, dispatcher),
	)
	if err != nil {
		return nil, fmt.Errorf("factory: sms transport init: %w", err)
	}

	transports, err := notifier.NewTransports(notifier.NamedTransport{Name: TransportName, Transport: transport})
	if err != nil {
		return nil, fmt.Errorf("factory: sms transport init: %w", err)
	}

	logger.Info().
		Str("transport", transport.String()).
		Msg("sms transport initialised")
	return transports, nil
}
