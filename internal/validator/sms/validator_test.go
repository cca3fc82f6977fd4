package smsvalidator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/promosms-notifier/internal/config"
	"github.com/ajayykmr/promosms-notifier/internal/models"
	"github.com/ajayykmr/promosms-notifier/internal/util"
)

func testValidator() *Validator {
	v := New(config.ValidationConfig{
		SMSBodyMax:      10,
		MetaMaxEntries:  2,
		MetaMaxKeyLen:   8,
		MetaMaxValueLen: 8,
	}, zerolog.Nop())
	v.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func TestParseAndValidateSuccess(t *testing.T) {
	payload := `{
		"message_id": "8f14e45f-ceea-467f-a0e6-5b5a7c1f6a11",
		"channel": "SMS",
		"trace_id": " trace-1 ",
		"created_at": "2024-04-30T10:00:00+02:00",
		"to": ["+1 (650) 253-0000"],
		"body": {"content": "hello"},
		"meta": {" k ": " v "}
	}`

	msg, err := testValidator().ParseAndValidate(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := msg.Request.(*models.SMSRequest)
	if msg.Channel != models.ChannelSMS || req.Channel != models.ChannelSMS {
		t.Fatalf("unexpected channel: %q", msg.Channel)
	}
	if msg.TraceID != "trace-1" {
		t.Fatalf("unexpected trace id: %q", msg.TraceID)
	}
	if len(req.To) != 1 || req.To[0] != "+16502530000" {
		t.Fatalf("unexpected recipients: %v", req.To)
	}
	if req.Body.Type != models.BodyTypeText {
		t.Fatalf("expected default body type, got %q", req.Body.Type)
	}
	if !msg.CreatedAt.Equal(time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)) || msg.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected created_at: %v", msg.CreatedAt)
	}
	if msg.Metadata["k"] != "v" {
		t.Fatalf("unexpected metadata: %v", msg.Metadata)
	}
}

func TestParseAndValidateDefaults(t *testing.T) {
	msg, err := testValidator().ParseAndValidate(context.Background(),
		[]byte(`{"to":["+442070313000"],"body":{"type":"text","content":"hi"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := util.ParseUUIDv4(msg.MessageID); err != nil {
		t.Fatalf("expected generated uuid v4, got %q", msg.MessageID)
	}
	if msg.Channel != models.ChannelSMS {
		t.Fatalf("expected default channel, got %q", msg.Channel)
	}
	if !msg.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected defaulted created_at, got %v", msg.CreatedAt)
	}
}

func TestParseAndValidateRejects(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    string
	}{
		"empty":           {"  ", "payload is empty"},
		"unknown field":   {`{"to":["+16502530000"],"body":{"content":"hi"},"cc":[]}`, "decode"},
		"wrong channel":   {`{"channel":"email","to":["+16502530000"],"body":{"content":"hi"}}`, "channel mismatch"},
		"bad message id":  {`{"message_id":"nope","to":["+16502530000"],"body":{"content":"hi"}}`, "message_id"},
		"uuid v1":         {`{"message_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","to":["+16502530000"],"body":{"content":"hi"}}`, "version 4"},
		"no recipient":    {`{"to":[],"body":{"content":"hi"}}`, "at least 1"},
		"two recipients":  {`{"to":["+16502530000","+442070313000"],"body":{"content":"hi"}}`, "at most 1"},
		"bad phone":       {`{"to":["12345"],"body":{"content":"hi"}}`, "invalid e164"},
		"media body":      {`{"to":["+16502530000"],"body":{"type":"media","content":"hi"}}`, "unsupported body type"},
		"blank body":      {`{"to":["+16502530000"],"body":{"content":"   "}}`, "body content is required"},
		"long body":       {`{"to":["+16502530000"],"body":{"content":"ąąąąąąąąąąą"}}`, "maximum length of 10"},
		"too much meta":   {`{"to":["+16502530000"],"body":{"content":"hi"},"meta":{"a":"1","b":"2","c":"3"}}`, "metadata"},
		"long meta value": {`{"to":["+16502530000"],"body":{"content":"hi"},"meta":{"a":"123456789"}}`, "exceeds max length"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := testValidator().ParseAndValidate(context.Background(), []byte(tc.payload))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBodyLimitCountsRunes(t *testing.T) {
	_, err := testValidator().ParseAndValidate(context.Background(),
		[]byte(`{"to":["+16502530000"],"body":{"content":"ąąąąąąąąąą"}}`))
	if err != nil {
		t.Fatalf("ten runes must fit a ten rune limit: %v", err)
	}
}

func TestParseAndValidateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testValidator().ParseAndValidate(ctx, []byte(`{}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
