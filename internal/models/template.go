package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// MessagingTemplate represents versioned message content keyed by
// (template_key, channel, language)
type MessagingTemplate struct {
	ID           int            `json:"id" db:"id"`
	TemplateKey  string         `json:"template_key" db:"template_key"`
	Channel      Channel        `json:"channel" db:"channel"`
	Language     string         `json:"language" db:"language"`
	Subject      *string        `json:"subject,omitempty" db:"subject"`
	Body         string         `json:"body" db:"body"`
	TextBody     *string        `json:"text_body,omitempty" db:"text_body"`
	Placeholders pq.StringArray `json:"placeholders" db:"placeholders"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks if the template fields are valid
func (t *MessagingTemplate) Validate() error {
	if t.TemplateKey == "" {
		return fmt.Errorf("template key is required")
	}
	if !t.Channel.IsValid() {
		return fmt.Errorf("invalid channel: must be 'sms' or 'email'")
	}
	if t.Language == "" {
		return fmt.Errorf("language is required")
	}
	if t.Body == "" {
		return fmt.Errorf("body is required")
	}
	if t.Channel == ChannelEmail && (t.Subject == nil || *t.Subject == "") {
		return fmt.Errorf("subject is required for email templates")
	}
	return nil
}

// Texts returns every template text that may contain placeholders
func (t *MessagingTemplate) Texts() []string {
	texts := []string{t.Body}
	if t.Subject != nil {
		texts = append(texts, *t.Subject)
	}
	if t.TextBody != nil {
		texts = append(texts, *t.TextBody)
	}
	return texts
}
