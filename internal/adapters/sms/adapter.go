package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	common "github.com/ajayykmr/promosms-notifier/internal/adapters/common"
	"github.com/ajayykmr/promosms-notifier/internal/models"
	"github.com/ajayykmr/promosms-notifier/internal/notifier"
)

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithRawBodyLimit overrides how much of the gateway body to keep in responses.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// WithRateLimit spaces sends to at most perSecond per second with the given
// burst. A non-positive rate leaves sends unthrottled.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(a *Adapter) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxInFlight caps the number of concurrent sends. Zero means no cap.
func WithMaxInFlight(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.inFlight = semaphore.NewWeighted(int64(n))
		}
	}
}

// Adapter implements common.Adapter for the SMS channel on top of a
// notifier.Transport.
type Adapter struct {
	logger      zerolog.Logger
	transport   notifier.Transport
	maxRawChars int
	limiter     *rate.Limiter
	inFlight    *semaphore.Weighted
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter constructs an SMS adapter sending through transport.
func NewAdapter(transport notifier.Transport, logger zerolog.Logger, opts ...Option) (*Adapter, error) {
	if transport == nil {
		return nil, errors.New("sms adapter: transport dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	a := &Adapter{
		logger:      logger,
		transport:   transport,
		maxRawChars: common.DefaultRawBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Send hands the validated SMS request to the transport. The returned
// response is non-nil whenever a send was attempted.
func (a *Adapter) Send(ctx context.Context, msg *common.ValidatedMessage) (*common.ProviderResponse, error) {
	if msg == nil || msg.Request == nil {
		return nil, common.WrapPermanent(errors.New("sms adapter: message request is nil"))
	}

	req, ok := msg.Request.(*models.SMSRequest)
	if !ok {
		return nil, common.WrapPermanent(fmt.Errorf("sms adapter: expected *models.SMSRequest, got %T", msg.Request))
	}
	if len(req.To) != 1 {
		return nil, common.WrapPermanent(fmt.Errorf("sms adapter: exactly one recipient is supported, got %d", len(req.To)))
	}

	if err := a.acquire(ctx); err != nil {
		return nil, common.WrapTransient(fmt.Errorf("sms adapter: %w", err))
	}
	if a.inFlight != nil {
		defer a.inFlight.Release(1)
	}

	sms := notifier.NewSMSMessage(req.To[0], req.Body.Content)

	sent, err := a.transport.Send(ctx, sms)
	if err != nil {
		resp, classified := a.classify(err)
		a.logger.Warn().
			Str("message_id", req.MessageID).
			Str("channel", models.ChannelSMS).
			Str("provider_status", resp.Status).
			Err(err).
			Msg("sms adapter send failed")
		return resp, classified
	}

	resp := &common.ProviderResponse{
		Status:  common.StatusOK,
		Message: "sent",
		Meta: map[string]string{
			"provider_id": sent.MessageID(),
			"transport":   sent.Transport(),
		},
	}
	a.logger.Debug().
		Str("message_id", req.MessageID).
		Str("channel", models.ChannelSMS).
		Str("provider_id", sent.MessageID()).
		Msg("sms adapter send succeeded")
	return resp, nil
}

func (a *Adapter) acquire(ctx context.Context) error {
	if a.inFlight != nil {
		if err := a.inFlight.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			if a.inFlight != nil {
				a.inFlight.Release(1)
			}
			return err
		}
	}
	return nil
}

// classify maps a transport failure to a response status and a
// transient/permanent error.
func (a *Adapter) classify(err error) (*common.ProviderResponse, error) {
	resp := &common.ProviderResponse{Status: common.StatusUnknown, Message: err.Error()}

	var te *notifier.TransportError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			code := te.StatusCode
			resp.Code = &code
		}
		resp.Raw = common.TruncateRaw(string(te.Body), a.maxRawChars)
	}

	var unsupported *notifier.UnsupportedMessageTypeError
	switch {
	case errors.As(err, &unsupported):
		resp.Status = common.StatusRejected
		return resp, common.WrapPermanent(err)
	case errors.Is(err, notifier.ErrUnreachable):
		resp.Status = common.StatusUnreachable
		return resp, common.WrapTransient(err)
	case errors.Is(err, notifier.ErrRejected):
		if te != nil && (te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= http.StatusInternalServerError) {
			resp.Status = common.StatusRateLimited
			return resp, common.WrapTransient(err)
		}
		resp.Status = common.StatusRejected
		return resp, common.WrapPermanent(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Status = common.StatusUnreachable
		return resp, common.WrapTransient(err)
	default:
		// undecodable bodies and anything unexpected
		return resp, common.WrapTransient(err)
	}
}
