package whatsapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/config"
	"github.com/praveenrathi4/complain-app/internal/whatsapp"
)

type captured struct {
	path string
	auth string
	body map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestClient_SendText(t *testing.T) {
	// Arrange
	srv, got := newServer(t, http.StatusOK, `{"messages":[{"id":"wamid.1"}]}`)
	client := whatsapp.NewClient(config.WhatsAppConfig{
		BaseURL: srv.URL, APIVersion: "v18.0", Token: "tok", PhoneNumberID: "12345",
	})

	// Act
	resp, err := client.SendText(context.Background(), "+1 (555) 010-2030", "hello")

	// Assert
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "/v18.0/12345/messages", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "whatsapp", got.body["messaging_product"])
	assert.Equal(t, "15550102030", got.body["to"])
	assert.Equal(t, "text", got.body["type"])
	assert.Equal(t, "hello", got.body["text"].(map[string]any)["body"])
}

func TestClient_MarkRead(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"success":true}`)
	client := whatsapp.NewClient(config.WhatsAppConfig{
		BaseURL: srv.URL, APIVersion: "v18.0", Token: "tok", PhoneNumberID: "12345",
	})

	require.NoError(t, client.MarkRead(context.Background(), "wamid.in"))

	assert.Equal(t, "read", got.body["status"])
	assert.Equal(t, "wamid.in", got.body["message_id"])
}

func TestClient_APIErrorIsReturned(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"error":{"message":"bad token"}}`)
	client := whatsapp.NewClient(config.WhatsAppConfig{
		BaseURL: srv.URL, APIVersion: "v18.0", Token: "tok", PhoneNumberID: "12345",
	})

	_, err := client.SendText(context.Background(), "15550102030", "hi")

	var apiErr *whatsapp.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_NotConfigured(t *testing.T) {
	client := whatsapp.NewClient(config.WhatsAppConfig{BaseURL: "http://127.0.0.1:1"})

	assert.False(t, client.Configured())
	_, err := client.SendText(context.Background(), "1", "hi")
	assert.ErrorIs(t, err, whatsapp.ErrNotConfigured)
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
	  "object": "whatsapp_business_account",
	  "entry": [{
	    "id": "biz",
	    "changes": [{
	      "field": "messages",
	      "value": {
	        "messaging_product": "whatsapp",
	        "contacts": [{"wa_id": "15550102030", "profile": {"name": "Ann"}}],
	        "messages": [
	          {"id": "m1", "from": "15550102030", "type": "text", "text": {"body": "HELP"}},
	          {"id": "m2", "from": "15550102030", "type": "image"}
	        ]
	      }
	    }]
	  }]
	}`)

	payload, err := whatsapp.ParseWebhook(body)
	require.NoError(t, err)

	messages := payload.Messages()
	require.Len(t, messages, 2)
	text, ok := messages[0].TextBody()
	assert.True(t, ok)
	assert.Equal(t, "HELP", text)
	_, ok = messages[1].TextBody()
	assert.False(t, ok)
}
