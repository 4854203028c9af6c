package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Channel represents valid delivery channels
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// IsValid checks if the channel is a known value
func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// DeliveryStatus represents valid delivery statuses
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusSent       DeliveryStatus = "sent"
	DeliveryStatusFailed     DeliveryStatus = "failed"
	DeliveryStatusRetryWait  DeliveryStatus = "retry_wait"
)

// AttachmentSpec describes one attachment the worker must generate before
// dispatching a delivery.
type AttachmentSpec struct {
	AttachmentTemplateID int               `json:"attachment_template_id"`
	Params               map[string]string `json:"params,omitempty"`
}

// AttachmentSpecs is stored as a JSONB column on the delivery row
type AttachmentSpecs []AttachmentSpec

// Value implements driver.Valuer
func (s AttachmentSpecs) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *AttachmentSpecs) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan attachment specs from %T", src)
	}
	return json.Unmarshal(data, s)
}

// PlaceholderValues holds the flat placeholder map captured at enqueue time.
// Rendering is deferred to the worker, so the values ride on the row.
type PlaceholderValues map[string]interface{}

// Value implements driver.Valuer
func (v PlaceholderValues) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner
func (v *PlaceholderValues) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan placeholder values from %T", src)
	}
	return json.Unmarshal(data, v)
}

// Delivery represents one attempt-tracked unit of outbound communication
type Delivery struct {
	ID                     int               `json:"id" db:"id"`
	CorrelationID          string            `json:"correlation_id" db:"correlation_id"`
	Channel                Channel           `json:"channel" db:"channel"`
	TemplateKey            string            `json:"template_key" db:"template_key"`
	RequestedLanguage      *string           `json:"requested_language,omitempty" db:"requested_language"`
	UsedLanguage           *string           `json:"used_language,omitempty" db:"used_language"`
	CustomerID             int               `json:"customer_id" db:"customer_id"`
	PolicyID               *int              `json:"policy_id,omitempty" db:"policy_id"`
	RecipientPhone         *string           `json:"recipient_phone,omitempty" db:"recipient_phone"`
	RecipientEmail         *string           `json:"recipient_email,omitempty" db:"recipient_email"`
	RenderedSubject        *string           `json:"rendered_subject,omitempty" db:"rendered_subject"`
	RenderedBody           *string           `json:"rendered_body,omitempty" db:"rendered_body"`
	RenderedTextBody       *string           `json:"rendered_text_body,omitempty" db:"rendered_text_body"`
	PlaceholderValues      PlaceholderValues `json:"placeholder_values,omitempty" db:"placeholder_values"`
	DynamicAttachmentSpecs AttachmentSpecs   `json:"dynamic_attachment_specs,omitempty" db:"dynamic_attachment_specs"`
	Status                 DeliveryStatus    `json:"status" db:"status"`
	AttemptCount           int               `json:"attempt_count" db:"attempt_count"`
	MaxAttempts            int               `json:"max_attempts" db:"max_attempts"`
	LastAttemptAt          *time.Time        `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	NextAttemptAt          *time.Time        `json:"next_attempt_at,omitempty" db:"next_attempt_at"`
	LastError              *string           `json:"last_error,omitempty" db:"last_error"`
	OriginalDeliveryID     *int              `json:"original_delivery_id,omitempty" db:"original_delivery_id"`
	ProviderMessageID      *string           `json:"provider_message_id,omitempty" db:"provider_message_id"`
	CreatedAt              time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" db:"updated_at"`
}

// Recipient returns the populated recipient field for the delivery's channel,
// or an empty string when no recipient is set.
func (d *Delivery) Recipient() string {
	switch d.Channel {
	case ChannelSMS:
		if d.RecipientPhone != nil {
			return *d.RecipientPhone
		}
	case ChannelEmail:
		if d.RecipientEmail != nil {
			return *d.RecipientEmail
		}
	}
	return ""
}

// IsRendered reports whether content has already been rendered for this
// delivery. Resent deliveries carry content from the original row and must
// never be re-rendered.
func (d *Delivery) IsRendered() bool {
	return d.RenderedBody != nil && *d.RenderedBody != ""
}

// IsResend reports whether this delivery was created by a resend
func (d *Delivery) IsResend() bool {
	return d.OriginalDeliveryID != nil
}

// DeliveryWithDetails includes the customer and attachments needed to
// process a claimed delivery
type DeliveryWithDetails struct {
	Delivery
	Customer    Customer      `json:"customer"`
	Attachments []*Attachment `json:"attachments,omitempty"`
}
