package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "test@example.com"}, nil)
	assert.Nil(t, sender)
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "PremiumCar", sender.fromName())
	assert.Nil(t, sender.replyTo)
}

func TestSendGridSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "bot@premiumcar.mx"}, nil)
	sender.client.BaseURL = srv.URL + "/v3/mail/send"

	err := sender.Send(context.Background(), EmailMessage{To: "ventas@premiumcar.mx", Subject: "Nuevo", Body: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", got["subject"])
	assert.Equal(t, []any{"lead"}, got["categories"])
	assert.NotContains(t, got, "reply_to")
}

func TestSendGridSender_ReplyTo(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "bot@premiumcar.mx", ReplyTo: "ventas@premiumcar.mx"}, nil)
	sender.client.BaseURL = srv.URL + "/v3/mail/send"

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "gerencia@premiumcar.mx", Subject: "s", HTML: "<p>x</p>"}))
	replyTo, ok := got["reply_to"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ventas@premiumcar.mx", replyTo["email"])
}

func TestSendGridSender_RejectsEmptyRecipient(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "bot@premiumcar.mx"}, nil)
	assert.Error(t, sender.Send(context.Background(), EmailMessage{Subject: "s"}))
}

func TestSendGridSender_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "bot@premiumcar.mx"}, nil)
	sender.client.BaseURL = srv.URL + "/v3/mail/send"

	err := sender.Send(context.Background(), EmailMessage{To: "x@y.z", Subject: "s", Body: "b"})
	assert.Error(t, err)
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"})
	assert.Error(t, err)
}

func TestStubEmailSender_Send(t *testing.T) {
	assert.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.c"}))
}

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = in
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "bot@premiumcar.mx"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "ventas@premiumcar.mx", Subject: "Nuevo", Body: "texto"})
	require.NoError(t, err)
	assert.Equal(t, `"PremiumCar" <bot@premiumcar.mx>`, aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"ventas@premiumcar.mx"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "texto", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Html)
	assert.Nil(t, api.input.ConfigurationSetName)
	require.Len(t, api.input.EmailTags, 1)
	assert.Equal(t, "lead", aws.ToString(api.input.EmailTags[0].Value))
}

func TestSESSender_ConfigurationSetAndEncodedName(t *testing.T) {
	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "bot@premiumcar.mx", FromName: "Concesionaria Peña", ConfigurationSet: "leads"}, nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "ventas@premiumcar.mx", HTML: "<p>hola</p>"}))
	assert.Equal(t, "leads", aws.ToString(api.input.ConfigurationSetName))
	assert.Contains(t, aws.ToString(api.input.FromEmailAddress), "=?utf-8?")
	assert.Nil(t, api.input.Content.Simple.Body.Text)
}

func TestSESSender_RejectsEmptyRecipient(t *testing.T) {
	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "bot@premiumcar.mx"}, nil)
	assert.Error(t, sender.Send(context.Background(), EmailMessage{Subject: "x"}))
	assert.Nil(t, api.input)
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&stubSES{err: errors.New("throttled")}, SESConfig{FromEmail: "a@b.c"}, nil)
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "x@y.z"}))
}

type recordingSender struct {
	sent []EmailMessage
	fail map[string]bool
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	if r.fail[msg.To] {
		return errors.New("rejected")
	}
	return nil
}

func TestLeadNotifier(t *testing.T) {
	assert.Nil(t, NewLeadNotifier(&recordingSender{}, []string{" "}, nil))
	assert.Nil(t, NewLeadNotifier(nil, []string{"a@b.c"}, nil))

	sender := &recordingSender{fail: map[string]bool{"b@x.com": true}}
	n := NewLeadNotifier(sender, []string{"a@x.com", " b@x.com "}, nil)
	require.NotNil(t, n)

	err := n.Append(context.Background(), "Citas", []string{"521", "Ana López", "SUV", "prueba", "lunes", "2025-03-10T14:30:05.123Z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b@x.com")

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Nuevo registro en Citas", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Nombre: Ana López")
	assert.Contains(t, sender.sent[0].Body, "Fecha preferida: lunes")
}

func TestFormatLead_Sale(t *testing.T) {
	body := formatLead("AutoVenta", []string{"521", "vender", "Mazda 3 2019", "ts"})
	assert.Contains(t, body, "Intención: vender")
	assert.Contains(t, body, "Vehículo: Mazda 3 2019")
}

func TestFormatLead_UnknownShape(t *testing.T) {
	body := formatLead("Otra", []string{"a", "b"})
	assert.Contains(t, body, "Campo 1: a")
}
