// Package provider holds the thin channel adapters the worker dispatches
// through. Providers surface send failures synchronously; the retry policy
// lives entirely in the worker.
package provider

import "context"

// Attachment is one binary part of an email
type Attachment struct {
	FileName string
	MimeType string
	Content  []byte
}

// EmailMessage is the channel-agnostic email send request
type EmailMessage struct {
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// SMSProvider sends an SMS and returns the provider's message id
type SMSProvider interface {
	Send(ctx context.Context, to, message string) (string, error)
}

// EmailProvider sends an email and returns the provider's message id
type EmailProvider interface {
	Send(ctx context.Context, msg *EmailMessage) (string, error)
}
