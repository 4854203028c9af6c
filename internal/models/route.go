package models

import (
	"fmt"
	"time"
)

// MessagingRoute declares which channels are enabled for a template key
type MessagingRoute struct {
	ID           int       `json:"id" db:"id"`
	TemplateKey  string    `json:"template_key" db:"template_key"`
	SMSEnabled   bool      `json:"sms_enabled" db:"sms_enabled"`
	EmailEnabled bool      `json:"email_enabled" db:"email_enabled"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks if the route fields are valid
func (r *MessagingRoute) Validate() error {
	if r.TemplateKey == "" {
		return fmt.Errorf("template key is required")
	}
	if !r.SMSEnabled && !r.EmailEnabled {
		return fmt.Errorf("at least one channel must be enabled")
	}
	return nil
}

// EnabledChannels returns the channels this route sends on, in a stable order
func (r *MessagingRoute) EnabledChannels() []Channel {
	channels := []Channel{}
	if r.SMSEnabled {
		channels = append(channels, ChannelSMS)
	}
	if r.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	return channels
}
