package models

import (
	"fmt"
	"time"
)

// AttachmentKind represents the closed set of attachment template kinds.
// Adding a kind is a deliberate, reviewed change, not a plugin point.
type AttachmentKind string

const (
	AttachmentKindMemberCard AttachmentKind = "member_card"
	AttachmentKindHTML       AttachmentKind = "html"
)

// AttachmentTemplate describes how the worker generates a PDF attachment
type AttachmentTemplate struct {
	ID        int            `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Kind      AttachmentKind `json:"kind" db:"kind"`
	HTMLBody  *string        `json:"html_body,omitempty" db:"html_body"`
	IsActive  bool           `json:"is_active" db:"is_active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks if the attachment template fields are valid
func (t *AttachmentTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch t.Kind {
	case AttachmentKindMemberCard:
		// card layout is built in
	case AttachmentKindHTML:
		if t.HTMLBody == nil || *t.HTMLBody == "" {
			return fmt.Errorf("html_body is required for html templates")
		}
	default:
		return fmt.Errorf("invalid kind: must be 'member_card' or 'html'")
	}
	return nil
}
