// Package sms holds a scenario-driven SMS transport used for local runs and
// tests in place of a real gateway.
package sms

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/promosms-notifier/internal/notifier"
)

// Scenario enumerates the mock behaviours supported by the SMS transport.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"
)

// A message text starting with e.g. "[scenario:permanent]" forces that
// outcome for the one message.
const scenarioPrefix = "[scenario:"

// Option customises the mock transport.
type Option func(*MockTransport)

// WithScenario sets the default scenario used when a message does not specify one.
func WithScenario(s Scenario) Option {
	return func(p *MockTransport) {
		p.defaultScenario = s
	}
}

// WithLatency configures the artificial latency injected before sending.
func WithLatency(d time.Duration) Option {
	return func(p *MockTransport) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithDispatcher sets the dispatcher notified around every send.
func WithDispatcher(d notifier.Dispatcher) Option {
	return func(p *MockTransport) {
		p.dispatcher = d
	}
}

var _ notifier.Transport = (*MockTransport)(nil)

// MockTransport is a deterministic SMS transport. It never does network I/O.
type MockTransport struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	latency         time.Duration
	dispatcher      notifier.Dispatcher

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockTransport constructs a mock SMS transport.
func NewMockTransport(logger zerolog.Logger, opts ...Option) *MockTransport {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &MockTransport{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		latency:         25 * time.Millisecond,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- predictable in tests.
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *MockTransport) String() string {
	return fmt.Sprintf("mock://default?scenario=%s", p.defaultScenario)
}

// Supports reports whether msg is an SMS.
func (p *MockTransport) Supports(msg notifier.Message) bool {
	_, ok := msg.(*notifier.SMSMessage)
	return ok
}

// Send simulates sending msg according to the configured scenario.
func (p *MockTransport) Send(ctx context.Context, msg notifier.Message) (*notifier.SentMessage, error) {
	return notifier.Deliver(ctx, p.dispatcher, msg, p.doSend)
}

func (p *MockTransport) doSend(ctx context.Context, msg notifier.Message) (*notifier.SentMessage, error) {
	sms, ok := msg.(*notifier.SMSMessage)
	if !ok {
		return nil, &notifier.UnsupportedMessageTypeError{Transport: p.String(), Expected: notifier.KindSMS, Got: msg.Kind()}
	}

	// honour context cancellation before work begins
	select {
	case <-ctx.Done():
		return nil, notifier.NewUnreachableError("mock: context done", ctx.Err())
	default:
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, notifier.NewUnreachableError("mock: context done", ctx.Err())
		case <-timer.C:
		}
	}

	scenario := scenarioFor(sms.Text, p.defaultScenario)
	p.logger.Debug().Str("scenario", string(scenario)).Msg("mock sms send")

	switch scenario {
	case ScenarioSuccess:
		sent := notifier.NewSentMessage(msg, p.String())
		sent.SetMessageID(p.generateID())
		return sent, nil
	case ScenarioTransient:
		return nil, notifier.NewRejectedError(`[429] unable to send the SMS: "rate limited"`,
			http.StatusTooManyRequests, []byte(`{"status":"rate limited"}`))
	case ScenarioPermanent:
		return nil, notifier.NewRejectedError(`unable to send the SMS: "invalid recipient"`,
			http.StatusOK, []byte(`{"response":{"recipientsResults":[{"status":5}]}}`))
	case ScenarioTimeout:
		// Simulate a timeout by waiting until the context expires.
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, notifier.NewUnreachableError("mock: timeout", ctx.Err())
		case <-timer.C:
			return nil, notifier.NewUnreachableError("mock: timeout", context.DeadlineExceeded)
		}
	default:
		return nil, fmt.Errorf("sms mock unknown scenario: %s", scenario)
	}
}

func scenarioFor(text string, def Scenario) Scenario {
	if !strings.HasPrefix(text, scenarioPrefix) {
		return def
	}
	end := strings.IndexByte(text, ']')
	if end < 0 {
		return def
	}
	val := strings.ToLower(strings.TrimSpace(text[len(scenarioPrefix):end]))
	if val == "" {
		return def
	}
	return Scenario(val)
}

func (p *MockTransport) generateID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("sms-%d", p.rnd.Int63())
}
