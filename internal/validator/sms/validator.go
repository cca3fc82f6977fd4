// Package smsvalidator turns raw SMS request payloads into validated messages
// ready for the SMS adapter.
package smsvalidator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/promosms-notifier/internal/adapters/common"
	"github.com/ajayykmr/promosms-notifier/internal/config"
	"github.com/ajayykmr/promosms-notifier/internal/models"
	"github.com/ajayykmr/promosms-notifier/internal/util"
)

// Validator checks SMS payloads against the configured limits.
type Validator struct {
	logger zerolog.Logger
	cfg    config.ValidationConfig
	now    func() time.Time
}

// New constructs a Validator.
func New(cfg config.ValidationConfig, logger zerolog.Logger) *Validator {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Validator{logger: logger, cfg: cfg, now: time.Now}
}

// ParseAndValidate parses the payload and returns a validated message.
func (v *Validator) ParseAndValidate(ctx context.Context, payload []byte) (*common.ValidatedMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, errors.New("sms validator: payload is empty")
	}

	var req models.SMSRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("sms validator: decode: %w", err)
	}

	return v.Validate(ctx, &req)
}

// Validate applies defaults to req in place and checks it.
func (v *Validator) Validate(ctx context.Context, req *models.SMSRequest) (*common.ValidatedMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if req == nil {
		return nil, errors.New("sms validator: request is nil")
	}
	if err := v.applyDefaultsAndValidate(req); err != nil {
		v.logger.Debug().Err(err).Str("message_id", req.MessageID).Msg("sms request rejected")
		return nil, err
	}

	return &common.ValidatedMessage{
		Channel:   req.Channel,
		MessageID: req.MessageID,
		TraceID:   req.TraceID,
		TenantID:  req.TenantID,
		CreatedAt: req.CreatedAt,
		Metadata:  req.Meta,
		Request:   req,
	}, nil
}

func (v *Validator) applyDefaultsAndValidate(req *models.SMSRequest) error {
	req.Channel = strings.TrimSpace(strings.ToLower(req.Channel))
	if req.Channel == "" {
		req.Channel = models.ChannelSMS
	}
	if req.Channel != models.ChannelSMS {
		return fmt.Errorf("sms validator: channel mismatch: expected %s, got %s", models.ChannelSMS, req.Channel)
	}

	req.MessageID = strings.TrimSpace(req.MessageID)
	if req.MessageID == "" {
		req.MessageID = util.NewMessageID()
	} else if _, err := util.ParseUUIDv4(req.MessageID); err != nil {
		return fmt.Errorf("sms validator: message_id: %w", err)
	}
	req.TraceID = strings.TrimSpace(req.TraceID)
	req.TenantID = strings.TrimSpace(req.TenantID)

	if req.CreatedAt.IsZero() {
		req.CreatedAt = v.now()
	}
	req.CreatedAt = req.CreatedAt.UTC()

	req.From = strings.TrimSpace(req.From)

	to, err := util.NormalizeE164List(req.To, 1, 1)
	if err != nil {
		return fmt.Errorf("sms validator: to: %w", err)
	}
	req.To = to

	req.Body.Type = strings.ToLower(strings.TrimSpace(req.Body.Type))
	if req.Body.Type == "" {
		req.Body.Type = models.BodyTypeText
	}
	if req.Body.Type != models.BodyTypeText {
		return fmt.Errorf("sms validator: unsupported body type %q", req.Body.Type)
	}
	if strings.TrimSpace(req.Body.Content) == "" {
		return errors.New("sms validator: body content is required")
	}
	if err := util.EnsureMaxRunes("body", req.Body.Content, v.cfg.SMSBodyMax); err != nil {
		return fmt.Errorf("sms validator: %w", err)
	}

	meta, err := util.ValidateMetadata(req.Meta, v.cfg.MetaMaxEntries, v.cfg.MetaMaxKeyLen, v.cfg.MetaMaxValueLen)
	if err != nil {
		return fmt.Errorf("sms validator: metadata: %w", err)
	}
	req.Meta = meta

	return nil
}
