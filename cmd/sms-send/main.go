// Command sms-send validates one SMS request and delivers it through the
// transport configured by SMS_DSN, printing the resulting status event as JSON.
//
//	sms-send -to +48500100200 -text "hello"
//	echo '{"to":["+48500100200"],"body":{"content":"hello"}}' | sms-send -f -
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/promosms-notifier/internal/adapters/common"
	smsadapter "github.com/ajayykmr/promosms-notifier/internal/adapters/sms"
	"github.com/ajayykmr/promosms-notifier/internal/config"
	"github.com/ajayykmr/promosms-notifier/internal/logger"
	"github.com/ajayykmr/promosms-notifier/internal/models"
	"github.com/ajayykmr/promosms-notifier/internal/providers/factory"
	smsvalidator "github.com/ajayykmr/promosms-notifier/internal/validator/sms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		stop()
		fail(err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("sms-send", flag.ContinueOnError)
	var (
		to      = fs.String("to", "", "recipient phone number in E.164 form")
		text    = fs.String("text", "", "message text")
		traceID = fs.String("trace-id", "", "optional trace identifier")
		file    = fs.String("f", "", "read a JSON request from this file (- for stdin)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	log := baseLogger.With().Str("service", "sms-send").Logger()

	timeout := time.Duration(cfg.Timeouts.ProviderTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport, err := factory.SMS(cfg.Providers, timeout, logger.Component(log, "sms-transport"))
	if err != nil {
		return err
	}

	adapter, err := smsadapter.NewAdapter(transport, logger.Component(log, "sms-adapter"),
		smsadapter.WithRawBodyLimit(cfg.Delivery.RawBodyLimit),
		smsadapter.WithRateLimit(cfg.Delivery.RateLimitPerSecond, cfg.Delivery.RateBurst),
		smsadapter.WithMaxInFlight(cfg.Delivery.MaxInFlight),
	)
	if err != nil {
		return err
	}

	payload, err := readPayload(*file, stdin, *to, *text, *traceID)
	if err != nil {
		return err
	}

	validator := smsvalidator.New(cfg.Validation, logger.Component(log, "sms-validator"))
	msg, err := validator.ParseAndValidate(ctx, payload)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, sendErr := adapter.Send(sendCtx, msg)
	event := statusEvent(msg, resp, sendErr, time.Now().UTC())

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(event); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	if sendErr != nil {
		return sendErr
	}
	log.Info().
		Str("message_id", msg.MessageID).
		Str("provider_id", event.ProviderResponse.Meta["provider_id"]).
		Msg("sms sent")
	return nil
}

// readPayload returns the JSON request from file, or builds one from the
// flag values when no file is given.
func readPayload(file string, stdin io.Reader, to, text, traceID string) ([]byte, error) {
	switch file {
	case "":
	case "-":
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(file)
	}

	if to == "" || text == "" {
		return nil, errors.New("either -f or both -to and -text are required")
	}
	req := models.SMSRequest{
		Envelope: models.Envelope{Channel: models.ChannelSMS, TraceID: traceID},
		To:       []string{to},
		Body:     models.MessageBody{Type: models.BodyTypeText, Content: text},
	}
	return json.Marshal(req)
}

// statusEvent maps the adapter outcome onto a status event.
func statusEvent(msg *common.ValidatedMessage, resp *common.ProviderResponse, err error, now time.Time) models.StatusEvent {
	event := models.StatusEvent{
		MessageID: msg.MessageID,
		Channel:   msg.Channel,
		TraceID:   msg.TraceID,
		Timestamp: now,
	}
	if resp != nil {
		event.ProviderResponse = &models.ProviderResponse{
			Status:  resp.Status,
			Code:    resp.Code,
			Message: resp.Message,
			Raw:     resp.Raw,
			Meta:    resp.Meta,
		}
	}

	switch {
	case err == nil:
		event.EventType = models.StatusEventSent
	case resp != nil && resp.Status == common.StatusRateLimited:
		event.EventType = models.StatusEventRateLimited
	case errors.Is(err, common.ErrPermanent):
		event.EventType = models.StatusEventRejected
	default:
		event.EventType = models.StatusEventFailed
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}

func fail(err error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger.Fatal().Err(err).Msg("sms-send failed")
}
