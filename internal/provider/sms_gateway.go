package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSGatewayConfig holds the SMS gateway adapter configuration
type SMSGatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// SMSGateway implements SMSProvider against an HTTP JSON gateway. The
// gateway's wire format is an external boundary; this adapter only needs the
// abstract send contract.
type SMSGateway struct {
	config SMSGatewayConfig
	client *http.Client
}

// NewSMSGateway creates a new SMS gateway adapter
func NewSMSGateway(cfg SMSGatewayConfig) *SMSGateway {
	return &SMSGateway{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type smsGatewayRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type smsGatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send implements SMSProvider
func (g *SMSGateway) Send(ctx context.Context, to, message string) (string, error) {
	body, err := json.Marshal(smsGatewayRequest{
		To:       to,
		Message:  message,
		SenderID: g.config.SenderID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read sms gateway response: %w", err)
	}

	var gatewayResp smsGatewayResponse
	if err := json.Unmarshal(data, &gatewayResp); err != nil {
		return "", fmt.Errorf("failed to decode sms gateway response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := gatewayResp.Error
		if reason == "" {
			reason = string(data)
		}
		return "", fmt.Errorf("sms gateway rejected send (status %d): %s", resp.StatusCode, reason)
	}

	return gatewayResp.MessageID, nil
}
