package provider

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend email provider configuration
type ResendConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

// ResendProvider implements EmailProvider using the Resend API
type ResendProvider struct {
	client *resend.Client
	config ResendConfig
}

// NewResendProvider creates a new Resend-backed email provider
func NewResendProvider(cfg ResendConfig) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

// Send implements EmailProvider
func (p *ResendProvider) Send(ctx context.Context, msg *EmailMessage) (string, error) {
	from := p.config.SenderEmail
	if p.config.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", p.config.SenderName, p.config.SenderEmail)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
	}

	if len(msg.Attachments) > 0 {
		req.Attachments = make([]*resend.Attachment, len(msg.Attachments))
		for i, a := range msg.Attachments {
			req.Attachments[i] = &resend.Attachment{
				Filename:    a.FileName,
				Content:     a.Content,
				ContentType: a.MimeType,
			}
		}
	}

	sent, err := p.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}

	return sent.Id, nil
}
