package sms

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/promosms-notifier/internal/notifier"
)

// Scheme is the DSN scheme handled by MockFactory.
const Scheme = "mock"

var _ notifier.TransportFactory = (*MockFactory)(nil)

// MockFactory builds MockTransports from DSNs such as
//
//	mock://default?scenario=permanent&latency=10ms
type MockFactory struct {
	logger     zerolog.Logger
	dispatcher notifier.Dispatcher
}

// NewMockFactory returns a MockFactory. dispatcher may be nil.
func NewMockFactory(logger zerolog.Logger, dispatcher notifier.Dispatcher) *MockFactory {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &MockFactory{logger: logger, dispatcher: dispatcher}
}

func (f *MockFactory) SupportedSchemes() []string { return []string{Scheme} }

func (f *MockFactory) Supports(dsn notifier.DSN) bool { return dsn.Scheme() == Scheme }

// Create builds a MockTransport from dsn.
func (f *MockFactory) Create(dsn notifier.DSN) (notifier.Transport, error) {
	if !f.Supports(dsn) {
		return nil, &notifier.UnsupportedSchemeError{DSN: dsn, Provider: Scheme, Supported: f.SupportedSchemes()}
	}

	opts := []Option{WithDispatcher(f.dispatcher)}

	scenario := Scenario(strings.ToLower(dsn.Option("scenario", string(ScenarioSuccess))))
	switch scenario {
	case ScenarioSuccess, ScenarioTransient, ScenarioPermanent, ScenarioTimeout:
		opts = append(opts, WithScenario(scenario))
	default:
		return nil, fmt.Errorf("sms mock: unsupported scenario %q", scenario)
	}

	if raw, ok := dsn.LookupOption("latency"); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("sms mock: latency: %w", err)
		}
		opts = append(opts, WithLatency(d))
	}

	return NewMockTransport(f.logger, opts...), nil
}
