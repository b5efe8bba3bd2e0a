package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

const maxWebhookBody = 1 << 20

// InboundFunc receives each parsed inbound message. Returning an error only
// logs; the webhook has already been acknowledged.
type InboundFunc func(ctx context.Context, in flow.Inbound) error

// WebhookHandler handles WhatsApp webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onMessage   InboundFunc
	logger      *logging.Logger
	metrics     *metrics.MessagingMetrics
}

// NewWebhookHandler creates a new webhook handler. Signature verification is
// enabled only when appSecret is non-empty.
func NewWebhookHandler(verifyToken, appSecret string, onMessage InboundFunc, logger *logging.Logger, m *metrics.MessagingMetrics) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onMessage:   onMessage,
		logger:      logger,
		metrics:     m,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) == 1 {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	h.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.metrics.ObserveInbound("webhook", "read_error")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.metrics.ObserveInbound("webhook", "bad_signature")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.ObserveInbound("webhook", "malformed")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Meta retries anything slower than a few seconds.
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	for _, in := range ParseWebhookEvent(event) {
		eventType := flow.EventType(in.Event)
		if h.onMessage == nil {
			h.metrics.ObserveInbound(eventType, "dropped")
			continue
		}
		if err := h.onMessage(ctx, in); err != nil {
			h.metrics.ObserveInbound(eventType, "enqueue_error")
			h.logger.Error("failed to hand off inbound message", "error", err, "message_id", in.MessageID)
			continue
		}
		h.metrics.ObserveInbound(eventType, "accepted")
	}
}

// ParseWebhookEvent extracts inbound messages from a webhook payload.
// Delivery statuses and messages without a sender or id are skipped.
func ParseWebhookEvent(event WebhookEvent) []flow.Inbound {
	var out []flow.Inbound

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range change.Value.Messages {
				if m.From == "" || m.ID == "" {
					continue
				}
				out = append(out, flow.Inbound{
					UserID:      m.From,
					MessageID:   m.ID,
					DisplayName: names[m.From],
					Event:       toEvent(m),
				})
			}
		}
	}

	return out
}

func toEvent(m Message) flow.Event {
	switch m.Type {
	case "text":
		if m.Text == nil {
			return flow.UnsupportedEvent{Type: m.Type}
		}
		return flow.TextEvent{Body: m.Text.Body}
	case "interactive":
		if m.Interactive == nil {
			return flow.UnsupportedEvent{Type: m.Type}
		}
		reply := m.Interactive.ButtonReply
		if reply == nil {
			reply = m.Interactive.ListReply
		}
		if reply == nil {
			return flow.UnsupportedEvent{Type: m.Type}
		}
		return flow.InteractiveEvent{OptionID: reply.ID, Title: reply.Title}
	case "button":
		if m.Button == nil {
			return flow.UnsupportedEvent{Type: m.Type}
		}
		return flow.InteractiveEvent{OptionID: m.Button.Payload, Title: m.Button.Text}
	default:
		return flow.UnsupportedEvent{Type: m.Type}
	}
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) || len(signature) == len(prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sigHex)))
}
