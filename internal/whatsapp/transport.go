package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// ErrTooManyOptions is returned when an interactive choice exceeds the
// reply-button limit of the channel.
var ErrTooManyOptions = errors.New("whatsapp: too many reply options")

// ErrUnsupportedIntent is returned for intents the transport cannot render.
var ErrUnsupportedIntent = errors.New("whatsapp: unsupported intent")

// Transport renders flow intents as Cloud API messages.
type Transport struct {
	client  *Client
	logger  *logging.Logger
	metrics *metrics.MessagingMetrics
	tracer  trace.Tracer
}

var _ flow.Transport = (*Transport)(nil)

// NewTransport wraps a Cloud API client as a flow.Transport.
func NewTransport(client *Client, logger *logging.Logger, m *metrics.MessagingMetrics) *Transport {
	if logger == nil {
		logger = logging.Default()
	}
	return &Transport{
		client:  client,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("premiumcar-router/whatsapp"),
	}
}

// Send delivers one intent to the user.
func (t *Transport) Send(ctx context.Context, userID string, intent flow.Intent) error {
	kind := flow.IntentKind(intent)
	ctx, span := t.tracer.Start(ctx, "whatsapp.send", trace.WithAttributes(
		attribute.String("intent.kind", kind),
	))
	defer span.End()

	err := t.send(ctx, userID, intent)
	t.metrics.ObserveOutbound(kind, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	t.logger.Debug("whatsapp message sent", "kind", kind, "to", userID)
	return nil
}

func (t *Transport) send(ctx context.Context, to string, intent flow.Intent) error {
	var err error
	switch v := intent.(type) {
	case flow.PlainText:
		_, err = t.client.SendText(ctx, to, v.Body)
	case flow.InteractiveChoice:
		if len(v.Options) > flow.MaxOptions {
			return fmt.Errorf("%w: %d", ErrTooManyOptions, len(v.Options))
		}
		buttons := make([]Button, 0, len(v.Options))
		for _, o := range v.Options {
			buttons = append(buttons, Button{Type: "reply", Reply: Reply{ID: o.ID, Title: o.Title}})
		}
		_, err = t.client.SendInteractiveButtons(ctx, to, v.Prompt, buttons)
	case flow.Media:
		_, err = t.client.SendMedia(ctx, to, string(v.Kind), MediaObject{
			Link:     v.URL,
			Caption:  v.Caption,
			Filename: v.Filename,
		})
	case flow.ContactCard:
		_, err = t.client.SendContacts(ctx, to, []ContactMessage{contactMessage(v.Contact)})
	case flow.Location:
		_, err = t.client.SendLocation(ctx, to, LocationMessage{
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			Name:      v.Name,
			Address:   v.Address,
		})
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedIntent, intent)
	}
	return err
}

// MarkRead marks the inbound message as read.
func (t *Transport) MarkRead(ctx context.Context, messageID string) error {
	ctx, span := t.tracer.Start(ctx, "whatsapp.mark_read")
	defer span.End()

	_, err := t.client.MarkRead(ctx, messageID)
	t.metrics.ObserveOutbound("read", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func contactMessage(c flow.Contact) ContactMessage {
	msg := ContactMessage{
		Name: ContactName{
			FormattedName: c.FormattedName,
			FirstName:     c.FirstName,
			LastName:      c.LastName,
		},
	}
	if c.Company != "" || c.Department != "" || c.Title != "" {
		msg.Org = &ContactOrg{Company: c.Company, Department: c.Department, Title: c.Title}
	}
	if c.Email != "" {
		msg.Emails = []ContactEmail{{Email: c.Email, Type: "WORK"}}
	}
	if c.Phone != "" {
		msg.Phones = []ContactPhone{{Phone: c.Phone, Type: "WORK"}}
	}
	if c.URL != "" {
		msg.URLs = []ContactURL{{URL: c.URL, Type: "WORK"}}
	}
	return msg
}
