package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, reply string, received *SendRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v21.0/PN_1/messages", r.URL.Path)
		assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
		if received != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(received))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(base string) *Client {
	c := NewClient(ClientConfig{AccessToken: "test_token", PhoneNumberID: "PN_1"})
	c.SetGraphAPIBase(base)
	return c
}

const okReply = `{"messaging_product":"whatsapp","contacts":[{"input":"521","wa_id":"521"}],"messages":[{"id":"wamid.out"}]}`

func TestSendText(t *testing.T) {
	var received SendRequest
	server := newTestServer(t, http.StatusOK, okReply, &received)

	resp, err := newTestClient(server.URL).SendText(context.Background(), "521", "Hola")
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.out", resp.Messages[0].ID)
	assert.Equal(t, "whatsapp", received.MessagingProduct)
	assert.Equal(t, "text", received.Type)
	assert.Equal(t, "521", received.To)
	require.NotNil(t, received.Text)
	assert.Equal(t, "Hola", received.Text.Body)
}

func TestSendInteractiveButtons(t *testing.T) {
	var received SendRequest
	server := newTestServer(t, http.StatusOK, okReply, &received)

	buttons := []Button{
		{Type: "reply", Reply: Reply{ID: "a", Title: "A"}},
		{Type: "reply", Reply: Reply{ID: "b", Title: "B"}},
	}
	_, err := newTestClient(server.URL).SendInteractiveButtons(context.Background(), "521", "Elige", buttons)
	require.NoError(t, err)
	require.NotNil(t, received.Interactive)
	assert.Equal(t, "button", received.Interactive.Type)
	assert.Equal(t, "Elige", received.Interactive.Body.Text)
	assert.Equal(t, buttons, received.Interactive.Action.Buttons)
}

func TestSendMedia(t *testing.T) {
	t.Run("audio drops caption", func(t *testing.T) {
		var received SendRequest
		server := newTestServer(t, http.StatusOK, okReply, &received)
		_, err := newTestClient(server.URL).SendMedia(context.Background(), "521", "audio", MediaObject{Link: "https://x/a.mp3", Caption: "hi"})
		require.NoError(t, err)
		require.NotNil(t, received.Audio)
		assert.Equal(t, "https://x/a.mp3", received.Audio.Link)
		assert.Empty(t, received.Audio.Caption)
		assert.Equal(t, "individual", received.RecipientType)
	})

	t.Run("document keeps filename", func(t *testing.T) {
		var received SendRequest
		server := newTestServer(t, http.StatusOK, okReply, &received)
		_, err := newTestClient(server.URL).SendMedia(context.Background(), "521", "document", MediaObject{Link: "https://x/d.pdf", Caption: "Catálogo", Filename: "premiumcar.pdf"})
		require.NoError(t, err)
		require.NotNil(t, received.Document)
		assert.Equal(t, "premiumcar.pdf", received.Document.Filename)
		assert.Equal(t, "Catálogo", received.Document.Caption)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := newTestClient("http://unused").SendMedia(context.Background(), "521", "sticker", MediaObject{Link: "x"})
		assert.Error(t, err)
	})
}

func TestMarkRead(t *testing.T) {
	var received SendRequest
	server := newTestServer(t, http.StatusOK, `{"success":true}`, &received)

	resp, err := newTestClient(server.URL).MarkRead(context.Background(), "wamid.in")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "read", received.Status)
	assert.Equal(t, "wamid.in", received.MessageID)
}

func TestSend_APIError(t *testing.T) {
	server := newTestServer(t, http.StatusBadRequest,
		`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"fbtrace_id":"abc"}}`, nil)

	resp, err := newTestClient(server.URL).SendText(context.Background(), "521", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
	require.NotNil(t, resp)
	assert.Equal(t, 100, resp.Error.Code)
}

func TestSend_NonJSONResponse(t *testing.T) {
	server := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, nil)
	_, err := newTestClient(server.URL).SendText(context.Background(), "521", "x")
	assert.Error(t, err)
}
