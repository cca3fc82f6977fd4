// Package promosms sends SMS through the Promosms REST gateway.
package promosms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/promosms-notifier/internal/notifier"
)

// MessageType selects the gateway delivery class. Values are passed to the
// gateway verbatim, so types the gateway adds later work without a change.
type MessageType int

const (
	TypeFlash MessageType = 0
	TypeEco   MessageType = 1
	TypeFull  MessageType = 3
	TypeSpeed MessageType = 4
)

const (
	// DefaultHost is the gateway host used when no override is configured.
	DefaultHost = "promosms.com"

	sendPath = "/api/rest/v3_2/sms"
)

// Option customises a Transport at construction.
type Option func(*Transport)

// WithType sets the message type sent with every SMS. Defaults to TypeEco.
func WithType(t MessageType) Option {
	return func(tr *Transport) {
		tr.messageType = t
	}
}

// WithHost overrides the gateway host. An empty host keeps DefaultHost.
func WithHost(host string) Option {
	return func(tr *Transport) {
		tr.host = host
	}
}

// WithPort overrides the gateway port. Zero means the scheme default.
func WithPort(port int) Option {
	return func(tr *Transport) {
		tr.port = port
	}
}

// WithHTTPClient overrides the HTTP client used to talk to the gateway.
func WithHTTPClient(client notifier.HTTPClient) Option {
	return func(tr *Transport) {
		if client != nil {
			tr.client = client
		}
	}
}

// WithDispatcher sets the dispatcher notified around every send.
func WithDispatcher(d notifier.Dispatcher) Option {
	return func(tr *Transport) {
		tr.dispatcher = d
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(tr *Transport) {
		if !reflect.ValueOf(logger).IsZero() {
			tr.logger = logger
		}
	}
}

var _ notifier.Transport = (*Transport)(nil)

// Transport implements notifier.Transport for SMS messages. It is immutable
// once built and safe for concurrent use.
type Transport struct {
	authToken   string
	from        string
	messageType MessageType
	host        string
	port        int

	client     notifier.HTTPClient
	dispatcher notifier.Dispatcher
	logger     zerolog.Logger
}

// New builds a transport authenticating as login:password and sending from
// the sender id from.
func New(login, password, from string, opts ...Option) *Transport {
	t := &Transport{
		authToken:   base64.StdEncoding.EncodeToString([]byte(login + ":" + password)),
		from:        from,
		messageType: TypeEco,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// String identifies the transport as promosms://host[:port]?from=..&type=..
//
// from and type are left out when they are the empty string or zero, so a
// TypeFlash transport does not show its type.
func (t *Transport) String() string {
	var query []string
	if t.from != "" {
		query = append(query, "from="+url.QueryEscape(t.from))
	}
	if t.messageType != 0 {
		query = append(query, "type="+strconv.Itoa(int(t.messageType)))
	}

	s := "promosms://" + t.endpoint()
	if len(query) > 0 {
		s += "?" + strings.Join(query, "&")
	}
	return s
}

// Supports reports whether msg is an SMS.
func (t *Transport) Supports(msg notifier.Message) bool {
	_, ok := msg.(*notifier.SMSMessage)
	return ok
}

// Send delivers msg with a single request to the gateway.
func (t *Transport) Send(ctx context.Context, msg notifier.Message) (*notifier.SentMessage, error) {
	return notifier.Deliver(ctx, t.dispatcher, msg, t.doSend)
}

func (t *Transport) endpoint() string {
	return notifier.Endpoint(t.host, t.port, DefaultHost)
}

type sendRequest struct {
	Type                 MessageType `json:"type"`
	Sender               string      `json:"sender"`
	Recipients           []string    `json:"recipients"`
	Text                 string      `json:"text"`
	LongSMS              int         `json:"long-sms"`
	SpecialChars         int         `json:"special-chars"`
	ReturnSendRecipients int         `json:"return-send-recipients"`
}

type gatewayResponse struct {
	Status   any `json:"status"`
	Response *struct {
		Status            any               `json:"status"`
		RecipientsResults []recipientResult `json:"recipientsResults"`
	} `json:"response"`
}

type recipientResult struct {
	Status any `json:"status"`
	SMSID  any `json:"sms-id"`
}

func (t *Transport) doSend(ctx context.Context, msg notifier.Message) (*notifier.SentMessage, error) {
	var sms *notifier.SMSMessage
	switch m := msg.(type) {
	case *notifier.SMSMessage:
		sms = m
	default:
		return nil, &notifier.UnsupportedMessageTypeError{Transport: t.String(), Expected: notifier.KindSMS, Got: msg.Kind()}
	}

	payload, err := json.Marshal(sendRequest{
		Type:                 t.messageType,
		Sender:               t.from,
		Recipients:           []string{sms.Phone},
		Text:                 sms.Text,
		LongSMS:              1,
		SpecialChars:         1,
		ReturnSendRecipients: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("promosms: encode request: %w", err)
	}

	endpoint := "https://" + t.endpoint() + sendPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("promosms: new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+t.authToken)
	req.Header.Set("Accept", "text/json")
	req.Header.Set("Content-Type", "application/json")

	log := t.logger.With().Str("endpoint", endpoint).Logger()
	log.Debug().Int("type", int(t.messageType)).Msg("promosms send")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, notifier.NewUnreachableError("could not reach the remote Promosms server", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, notifier.NewUnreachableError("could not reach the remote Promosms server", err)
	}

	content, err := decodeResponse(body)
	if err != nil {
		return nil, notifier.NewUndecodableError("could not decode body", resp.StatusCode, body, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status_code", resp.StatusCode).Msg("promosms request refused")
		return nil, notifier.NewRejectedError(
			fmt.Sprintf("[%d] unable to send the SMS: %q", resp.StatusCode, describeStatus(content.Status)),
			resp.StatusCode, body)
	}

	var first *recipientResult
	var messageStatus any
	if content.Response != nil {
		if len(content.Response.RecipientsResults) > 0 {
			first = &content.Response.RecipientsResults[0]
			messageStatus = first.Status
		}
		if messageStatus == nil {
			messageStatus = content.Response.Status
		}
	}

	if !isZeroStatus(messageStatus) {
		log.Warn().Str("gateway_status", describeStatus(messageStatus)).Msg("promosms message refused")
		return nil, notifier.NewRejectedError(
			fmt.Sprintf("unable to send the SMS: %q", describeStatus(messageStatus)),
			resp.StatusCode, body)
	}

	if first == nil || first.SMSID == nil {
		return nil, notifier.NewUndecodableError("could not decode body", resp.StatusCode, body,
			errors.New("response carries no sms-id"))
	}

	sent := notifier.NewSentMessage(msg, t.String())
	sent.SetMessageID(describeStatus(first.SMSID))

	log.Debug().Str("provider_id", sent.MessageID()).Msg("promosms message accepted")
	return sent, nil
}

// decodeResponse accepts any JSON object; other JSON values and empty bodies
// are errors.
func decodeResponse(body []byte) (*gatewayResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("response body is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var content gatewayResponse
	if err := dec.Decode(&content); err != nil {
		return nil, err
	}
	return &content, nil
}

// isZeroStatus reports whether the gateway status is the integer 0.
func isZeroStatus(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	i, err := n.Int64()
	return err == nil && i == 0
}

func describeStatus(v any) string {
	switch s := v.(type) {
	case nil:
		return "unknown error"
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
