package flow

// Event is an inbound message after ingress parsing. Only the types in this
// package implement it.
type Event interface {
	eventType() string
}

// TextEvent is a free-text message.
type TextEvent struct {
	Body string
}

// InteractiveEvent is a reply to an interactive button or list message.
type InteractiveEvent struct {
	OptionID string
	Title    string
}

// UnsupportedEvent is any other message type (stickers, reactions, ...).
// It is acknowledged at ingress but never routed.
type UnsupportedEvent struct {
	Type string
}

func (TextEvent) eventType() string        { return "text" }
func (InteractiveEvent) eventType() string { return "interactive" }
func (e UnsupportedEvent) eventType() string {
	if e.Type == "" {
		return "unsupported"
	}
	return e.Type
}

// EventType reports the wire type name of an event.
func EventType(e Event) string {
	if e == nil {
		return ""
	}
	return e.eventType()
}

// Inbound is a single inbound message addressed to the dispatcher.
type Inbound struct {
	UserID      string
	MessageID   string
	DisplayName string
	Event       Event
}
