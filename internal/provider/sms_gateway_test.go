package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMSGateway_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the message and returns the gateway message id", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotReq smsGatewayRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(smsGatewayResponse{MessageID: "msg-123"})
		}))
		defer server.Close()

		gateway := NewSMSGateway(SMSGatewayConfig{
			BaseURL:  server.URL,
			APIKey:   "test-key",
			SenderID: "COVERMSG",
		})

		messageID, err := gateway.Send(ctx, "+254722000001", "Hi Amina")
		require.NoError(t, err)
		require.Equal(t, "msg-123", messageID)

		require.Equal(t, "/v1/messages", gotPath)
		require.Equal(t, "Bearer test-key", gotAuth)
		require.Equal(t, "+254722000001", gotReq.To)
		require.Equal(t, "Hi Amina", gotReq.Message)
		require.Equal(t, "COVERMSG", gotReq.SenderID)
	})

	t.Run("gateway error body becomes the error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(smsGatewayResponse{Error: "invalid phone number"})
		}))
		defer server.Close()

		gateway := NewSMSGateway(SMSGatewayConfig{BaseURL: server.URL, APIKey: "k"})

		_, err := gateway.Send(ctx, "not-a-phone", "hello")
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 422")
		require.Contains(t, err.Error(), "invalid phone number")
	})

	t.Run("non-json response is reported with the status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>upstream down</html>"))
		}))
		defer server.Close()

		gateway := NewSMSGateway(SMSGatewayConfig{BaseURL: server.URL, APIKey: "k"})

		_, err := gateway.Send(ctx, "+254722000001", "hello")
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 502")
	})

	t.Run("unreachable gateway is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		gateway := NewSMSGateway(SMSGatewayConfig{BaseURL: server.URL, APIKey: "k"})

		_, err := gateway.Send(ctx, "+254722000001", "hello")
		require.Error(t, err)
	})
}
