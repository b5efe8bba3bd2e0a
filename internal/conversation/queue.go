package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/premiumcar-router/internal/flow"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeInbound jobType = "whatsapp.inbound.v1"

// inboundPayload is the wire form of flow.Inbound. Events are flattened
// because flow.Event is a closed interface.
type inboundPayload struct {
	UserID      string `json:"user_id"`
	MessageID   string `json:"message_id"`
	DisplayName string `json:"display_name,omitempty"`
	EventType   string `json:"event_type"`
	Body        string `json:"body,omitempty"`
	OptionID    string `json:"option_id,omitempty"`
	Title       string `json:"title,omitempty"`
}

type queuePayload struct {
	ID         string         `json:"id"`
	Kind       jobType        `json:"kind"`
	Inbound    inboundPayload `json:"inbound"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

var errUnknownEvent = errors.New("conversation: unknown event type")

func encodeInbound(in flow.Inbound) (inboundPayload, error) {
	p := inboundPayload{
		UserID:      in.UserID,
		MessageID:   in.MessageID,
		DisplayName: in.DisplayName,
		EventType:   flow.EventType(in.Event),
	}
	switch e := in.Event.(type) {
	case flow.TextEvent:
		p.Body = e.Body
	case flow.InteractiveEvent:
		p.OptionID = e.OptionID
		p.Title = e.Title
	case flow.UnsupportedEvent:
	default:
		return inboundPayload{}, fmt.Errorf("%w: %T", errUnknownEvent, in.Event)
	}
	return p, nil
}

func (p inboundPayload) decode() flow.Inbound {
	in := flow.Inbound{
		UserID:      p.UserID,
		MessageID:   p.MessageID,
		DisplayName: p.DisplayName,
	}
	switch p.EventType {
	case "text":
		in.Event = flow.TextEvent{Body: p.Body}
	case "interactive":
		in.Event = flow.InteractiveEvent{OptionID: p.OptionID, Title: p.Title}
	default:
		in.Event = flow.UnsupportedEvent{Type: p.EventType}
	}
	return in
}

func encodePayload(in flow.Inbound, now time.Time) (queuePayload, string, error) {
	inbound, err := encodeInbound(in)
	if err != nil {
		return queuePayload{}, "", err
	}
	payload := queuePayload{
		ID:         uuid.NewString(),
		Kind:       jobTypeInbound,
		Inbound:    inbound,
		EnqueuedAt: now.UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}
	return payload, string(body), nil
}
