package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// mockSender simulates a gateway with a configurable success rate. Used in
// development environments where no real provider credentials exist.
type mockSender struct {
	successRate float64
	rand        *rand.Rand
	mu          sync.Mutex
	counter     int
}

func newMockSender(successRate float64) *mockSender {
	if successRate < 0.0 {
		successRate = 0.0
	}
	if successRate > 1.0 {
		successRate = 1.0
	}
	return &mockSender{
		successRate: successRate,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *mockSender) send(kind, to string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Simulate network latency (50-200ms)
	time.Sleep(time.Duration(50+m.rand.Intn(150)) * time.Millisecond)

	if m.rand.Float64() >= m.successRate {
		failures := []string{
			"network timeout",
			"invalid recipient",
			"rate limit exceeded",
			"service temporarily unavailable",
		}
		return "", fmt.Errorf("failed to send %s to %s: %s", kind, to, failures[m.rand.Intn(len(failures))])
	}

	m.counter++
	return fmt.Sprintf("mock-%s-%d", kind, m.counter), nil
}

// MockSMSProvider implements SMSProvider with simulated sends
type MockSMSProvider struct {
	sender *mockSender
}

// NewMockSMSProvider creates a mock SMS provider with the given success rate
func NewMockSMSProvider(successRate float64) *MockSMSProvider {
	return &MockSMSProvider{sender: newMockSender(successRate)}
}

// Send implements SMSProvider
func (p *MockSMSProvider) Send(_ context.Context, to, _ string) (string, error) {
	return p.sender.send("sms", to)
}

// MockEmailProvider implements EmailProvider with simulated sends
type MockEmailProvider struct {
	sender *mockSender
}

// NewMockEmailProvider creates a mock email provider with the given success rate
func NewMockEmailProvider(successRate float64) *MockEmailProvider {
	return &MockEmailProvider{sender: newMockSender(successRate)}
}

// Send implements EmailProvider
func (p *MockEmailProvider) Send(_ context.Context, msg *EmailMessage) (string, error) {
	return p.sender.send("email", msg.To)
}
